package lexer

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pattyshack/gt/parseutil"
)

const (
	initialPeekWindowSize = 64
)

type SymbolId int

const (
	SpacesToken = SymbolId(iota + 1)
	NewlinesToken
	LineCommentToken
	BlockCommentToken

	IdentifierToken
	IntegerLiteralToken
	FloatLiteralToken

	PercentToken
	AtToken
	ColonToken
	BangToken
	CommaToken
	EqualToken
	LparenToken
	RparenToken
	LbraceToken
	RbraceToken
)

var symbolNames = map[SymbolId]string{
	SpacesToken:         "SPACES",
	NewlinesToken:       "NEWLINES",
	LineCommentToken:    "LINE_COMMENT",
	BlockCommentToken:   "BLOCK_COMMENT",
	IdentifierToken:     "IDENTIFIER",
	IntegerLiteralToken: "INTEGER_LITERAL",
	FloatLiteralToken:   "FLOAT_LITERAL",
	PercentToken:        "PERCENT",
	AtToken:             "AT",
	ColonToken:          "COLON",
	BangToken:           "BANG",
	CommaToken:          "COMMA",
	EqualToken:          "EQUAL",
	LparenToken:         "LPAREN",
	RparenToken:         "RPAREN",
	LbraceToken:         "LBRACE",
	RbraceToken:         "RBRACE",
}

func (id SymbolId) String() string {
	name, ok := symbolNames[id]
	if ok {
		return name
	}
	return fmt.Sprintf("?unknown symbol %d?", int(id))
}

type Token struct {
	SymbolId
	parseutil.StartEndPos

	Value string
}

func (token *Token) String() string {
	return fmt.Sprintf("%s(%q) %s", token.SymbolId, token.Value, token.Loc())
}

type RawLexer struct {
	parseutil.BufferedByteLocationReader
}

func NewRawLexer(
	reader parseutil.BufferedByteLocationReader,
) *RawLexer {
	return &RawLexer{
		BufferedByteLocationReader: reader,
	}
}

func (lexer *RawLexer) CurrentLocation() parseutil.Location {
	return lexer.Location
}

func isIdentifierStart(char byte) bool {
	return ('a' <= char && char <= 'z') ||
		('A' <= char && char <= 'Z') ||
		char == '_'
}

func isIdentifierChar(char byte) bool {
	return isIdentifierStart(char) || isDigit(char) || char == '.'
}

func isDigit(char byte) bool {
	return '0' <= char && char <= '9'
}

func isSpace(char byte) bool {
	return char == ' ' || char == '\t'
}

func isNewline(char byte) bool {
	return char == '\r' || char == '\n'
}

func (lexer *RawLexer) peekNextToken() (SymbolId, string, error) {
	peeked, err := lexer.Peek(2)
	if len(peeked) > 0 && err == io.EOF {
		err = nil
	}
	if err != nil {
		return 0, "", err
	}

	char := peeked[0]

	if isIdentifierStart(char) {
		return IdentifierToken, "", nil
	}

	if isDigit(char) || char == '-' {
		return IntegerLiteralToken, "", nil
	}

	switch char {
	case ' ', '\t':
		return SpacesToken, "", nil
	case '\r', '\n':
		return NewlinesToken, "", nil
	case '%':
		return PercentToken, "%", nil
	case '@':
		return AtToken, "@", nil
	case ':':
		return ColonToken, ":", nil
	case '!':
		return BangToken, "!", nil
	case ',':
		return CommaToken, ",", nil
	case '=':
		return EqualToken, "=", nil
	case '(':
		return LparenToken, "(", nil
	case ')':
		return RparenToken, ")", nil
	case '{':
		return LbraceToken, "{", nil
	case '}':
		return RbraceToken, "}", nil
	case '/':
		if len(peeked) > 1 {
			if peeked[1] == '/' {
				return LineCommentToken, "", nil
			} else if peeked[1] == '*' {
				return BlockCommentToken, "", nil
			}
		}
	}

	if char < utf8.RuneSelf {
		return 0, "", parseutil.NewLocationError(
			lexer.Location,
			"unexpected character (%q)",
			char)
	}

	return 0, "", parseutil.NewLocationError(
		lexer.Location,
		"unexpected utf8 rune")
}

// Returns the length of the longest prefix whose bytes are accepted by the
// predicate.  The predicate is given the byte's index and the preceding byte,
// and is invoked exactly once per byte, in order.
func (lexer *RawLexer) scan(
	accept func(idx int, prev byte, char byte) bool,
) (
	int,
	error,
) {
	idx := 0
	prev := byte(0)
	windowSize := initialPeekWindowSize
	for {
		peeked, err := lexer.Peek(windowSize)
		if err != nil && err != io.EOF {
			return 0, err
		}

		for ; idx < len(peeked); idx++ {
			char := peeked[idx]
			if !accept(idx, prev, char) {
				return idx, nil
			}
			prev = char
		}

		if len(peeked) < windowSize {
			return len(peeked), nil
		}

		windowSize *= 2
	}
}

func (lexer *RawLexer) consume(symbolId SymbolId, size int) (*Token, error) {
	start := lexer.Location

	value := ""
	if size > 0 {
		peeked, err := lexer.Peek(size)
		if err != nil {
			return nil, err
		}
		value = string(peeked[:size])

		_, err = lexer.Discard(size)
		if err != nil {
			return nil, err
		}
	}

	return &Token{
		SymbolId:    symbolId,
		StartEndPos: parseutil.NewStartEndPos(start, lexer.Location),
		Value:       value,
	}, nil
}

func (lexer *RawLexer) lexSpacesToken() (*Token, error) {
	size, err := lexer.scan(func(_ int, _ byte, char byte) bool {
		return isSpace(char)
	})
	if err != nil {
		return nil, err
	}
	return lexer.consume(SpacesToken, size)
}

func (lexer *RawLexer) lexNewlinesToken() (*Token, error) {
	size, err := lexer.scan(func(_ int, _ byte, char byte) bool {
		return isNewline(char) || isSpace(char)
	})
	if err != nil {
		return nil, err
	}
	return lexer.consume(NewlinesToken, size)
}

func (lexer *RawLexer) lexLineCommentToken() (*Token, error) {
	size, err := lexer.scan(func(_ int, _ byte, char byte) bool {
		return !isNewline(char)
	})
	if err != nil {
		return nil, err
	}
	return lexer.consume(LineCommentToken, size)
}

func (lexer *RawLexer) lexBlockCommentToken() (*Token, error) {
	terminated := false
	size, err := lexer.scan(func(idx int, prev byte, char byte) bool {
		if terminated {
			return false
		}
		if idx > 2 && prev == '*' && char == '/' {
			terminated = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	token, err := lexer.consume(BlockCommentToken, size)
	if err != nil {
		return nil, err
	}

	if !terminated {
		return nil, parseutil.NewLocationError(
			token.StartPos,
			"block comment not terminated")
	}

	return token, nil
}

func (lexer *RawLexer) lexIntegerOrFloatLiteralToken() (*Token, error) {
	isFloat := false
	hasDigits := false
	size, err := lexer.scan(func(idx int, prev byte, char byte) bool {
		switch {
		case isDigit(char):
			hasDigits = true
			return true
		case char == '-':
			return idx == 0 || prev == 'e' || prev == 'E'
		case char == '+':
			return prev == 'e' || prev == 'E'
		case char == '.' || char == 'e' || char == 'E':
			isFloat = true
			return hasDigits
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	symbolId := IntegerLiteralToken
	if isFloat {
		symbolId = FloatLiteralToken
	}

	token, err := lexer.consume(symbolId, size)
	if err != nil {
		return nil, err
	}

	if !hasDigits {
		return nil, parseutil.NewLocationError(
			token.StartPos,
			"%s has no digits",
			symbolId)
	}

	return token, nil
}

func (lexer *RawLexer) lexIdentifierToken() (*Token, error) {
	size, err := lexer.scan(func(idx int, _ byte, char byte) bool {
		if idx == 0 {
			return isIdentifierStart(char)
		}
		return isIdentifierChar(char)
	})
	if err != nil {
		return nil, err
	}
	return lexer.consume(IdentifierToken, size)
}

func (lexer *RawLexer) Next() (*Token, error) {
	symbolId, value, err := lexer.peekNextToken()
	if err != nil {
		return nil, err
	}

	// fixed length token
	size := len(value)
	if size > 0 {
		return lexer.consume(symbolId, size)
	}

	// variable length token
	switch symbolId {
	case SpacesToken:
		return lexer.lexSpacesToken()
	case NewlinesToken:
		return lexer.lexNewlinesToken()
	case LineCommentToken:
		return lexer.lexLineCommentToken()
	case BlockCommentToken:
		return lexer.lexBlockCommentToken()
	case IntegerLiteralToken:
		return lexer.lexIntegerOrFloatLiteralToken()
	case IdentifierToken:
		return lexer.lexIdentifierToken()
	}

	panic(fmt.Sprintf("unhandled variable length token: %v", symbolId))
}
