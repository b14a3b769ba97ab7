package lexer

import (
	"strings"

	"github.com/pattyshack/gt/parseutil"
)

// Lexer drops spaces and comments, and merges consecutive newlines into a
// single NEWLINES token.  A block comment spanning multiple lines counts as a
// newline.
type Lexer struct {
	raw *RawLexer

	lookahead *Token
}

func NewLexer(
	reader parseutil.BufferedByteLocationReader,
) *Lexer {
	return &Lexer{
		raw: NewRawLexer(reader),
	}
}

func (lexer *Lexer) CurrentLocation() parseutil.Location {
	return lexer.raw.CurrentLocation()
}

func (lexer *Lexer) nextRaw() (*Token, error) {
	if lexer.lookahead != nil {
		token := lexer.lookahead
		lexer.lookahead = nil
		return token, nil
	}

	for {
		token, err := lexer.raw.Next()
		if err != nil {
			return nil, err
		}

		switch token.SymbolId {
		case SpacesToken, LineCommentToken:
			continue
		case BlockCommentToken:
			if !strings.ContainsAny(token.Value, "\r\n") {
				continue
			}
			token.SymbolId = NewlinesToken
		}

		return token, nil
	}
}

func (lexer *Lexer) Next() (*Token, error) {
	token, err := lexer.nextRaw()
	if err != nil {
		return nil, err
	}

	if token.SymbolId != NewlinesToken {
		return token, nil
	}

	for {
		next, err := lexer.nextRaw()
		if err != nil {
			// The error (usually io.EOF) is returned again by the next call.
			return token, nil
		}

		if next.SymbolId != NewlinesToken {
			lexer.lookahead = next
			return token, nil
		}

		token.EndPos = next.EndPos
		token.Value += next.Value
	}
}
