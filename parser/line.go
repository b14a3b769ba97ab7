package parser

import (
	"strconv"

	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/parser/lexer"
)

// :-prefixed block label of the form: :<label> [<annotations>]*
type parsedLocalLabel struct {
	parseutil.StartEndPos

	Label       string
	Annotations []*ast.Annotation
}

func (parsedLocalLabel) IsLine() {}

type parsedRbrace struct {
	parseutil.StartEndPos
}

func (parsedRbrace) IsLine() {}

var (
	unaryOperations = map[string]ast.UnaryOperationKind{
		string(ast.Neg): ast.Neg,
		string(ast.Not): ast.Not,
	}

	binaryOperations = map[string]ast.BinaryOperationKind{
		string(ast.Add): ast.Add,
		string(ast.Sub): ast.Sub,
		string(ast.Mul): ast.Mul,
		string(ast.Div): ast.Div,
		string(ast.Rem): ast.Rem,
		string(ast.Xor): ast.Xor,
		string(ast.Or):  ast.Or,
		string(ast.And): ast.And,
		string(ast.Shl): ast.Shl,
		string(ast.Shr): ast.Shr,
		string(ast.Slt): ast.Slt,
	}

	conditionalJumps = map[string]ast.ConditionalJumpKind{
		string(ast.Jeq): ast.Jeq,
		string(ast.Jne): ast.Jne,
		string(ast.Jlt): ast.Jlt,
		string(ast.Jge): ast.Jge,
	}
)

// A recursive descent parser for a single line's tokens.
type lineParser struct {
	tokens []*lexer.Token
	pos    int
}

func parseLine(tokens []*lexer.Token) (ast.Line, error) {
	parser := &lineParser{
		tokens: tokens,
	}

	line, err := parser.parseLine()
	if err != nil {
		return nil, err
	}

	if !parser.atEnd() {
		return nil, parser.unexpected()
	}

	return line, nil
}

func (parser *lineParser) atEnd() bool {
	return parser.pos >= len(parser.tokens)
}

func (parser *lineParser) peek() *lexer.Token {
	if parser.atEnd() {
		return nil
	}
	return parser.tokens[parser.pos]
}

func (parser *lineParser) peekIs(symbolId lexer.SymbolId) bool {
	token := parser.peek()
	return token != nil && token.SymbolId == symbolId
}

func (parser *lineParser) last() *lexer.Token {
	return parser.tokens[len(parser.tokens)-1]
}

func (parser *lineParser) unexpected() error {
	token := parser.peek()
	if token == nil {
		return parseutil.NewLocationError(
			parser.last().End(),
			"unexpected end of line")
	}
	return parseutil.NewLocationError(
		token.Loc(),
		"unexpected %s (%s)",
		token.SymbolId,
		token.Value)
}

func (parser *lineParser) expect(symbolId lexer.SymbolId) (*lexer.Token, error) {
	token := parser.peek()
	if token == nil || token.SymbolId != symbolId {
		if token == nil {
			return nil, parseutil.NewLocationError(
				parser.last().End(),
				"expected %s, found end of line",
				symbolId)
		}
		return nil, parseutil.NewLocationError(
			token.Loc(),
			"expected %s, found %s (%s)",
			symbolId,
			token.SymbolId,
			token.Value)
	}
	parser.pos++
	return token, nil
}

func (parser *lineParser) expectKeyword(keyword string) (*lexer.Token, error) {
	token, err := parser.expect(lexer.IdentifierToken)
	if err != nil {
		return nil, err
	}
	if token.Value != keyword {
		return nil, parseutil.NewLocationError(
			token.Loc(),
			"expected %s, found %s",
			keyword,
			token.Value)
	}
	return token, nil
}

func (parser *lineParser) posFrom(start *lexer.Token) parseutil.StartEndPos {
	end := start
	if parser.pos > 0 {
		end = parser.tokens[parser.pos-1]
	}
	return parseutil.NewStartEndPos(start.Loc(), end.End())
}

func (parser *lineParser) parseLine() (ast.Line, error) {
	first := parser.peek()
	switch first.SymbolId {
	case lexer.RbraceToken:
		parser.pos++
		return &parsedRbrace{StartEndPos: first.StartEndPos}, nil
	case lexer.ColonToken:
		return parser.parseLocalLabel()
	case lexer.PercentToken:
		return parser.parseDestinationInstruction()
	case lexer.IdentifierToken:
		switch first.Value {
		case "define":
			return parser.parseFunctionDefinition()
		case "declare":
			return parser.parseFunctionDeclaration()
		case "store":
			return parser.parseStore()
		case "call":
			return parser.parseCall(first, nil)
		case "jmp":
			return parser.parseJump()
		case "ret":
			return parser.parseTerminal()
		}

		kind, ok := conditionalJumps[first.Value]
		if ok {
			return parser.parseConditionalJump(kind)
		}
	}

	return nil, parser.unexpected()
}

// define func @<label>(<params>) [<annotations>]* {
func (parser *lineParser) parseFunctionDefinition() (ast.Line, error) {
	start := parser.peek()
	label, params, err := parser.parseSignature("define")
	if err != nil {
		return nil, err
	}

	annotations, err := parser.parseAnnotations()
	if err != nil {
		return nil, err
	}

	_, err = parser.expect(lexer.LbraceToken)
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDefinition{
		StartEndPos: parser.posFrom(start),
		Label:       label,
		Parameters:  params,
		Annotations: annotations,
	}, nil
}

// declare func @<label>(<params>)
func (parser *lineParser) parseFunctionDeclaration() (ast.Line, error) {
	start := parser.peek()
	label, params, err := parser.parseSignature("declare")
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDeclaration{
		StartEndPos: parser.posFrom(start),
		Label:       label,
		Parameters:  params,
	}, nil
}

func (parser *lineParser) parseSignature(
	keyword string,
) (
	string,
	[]*ast.VariableDefinition,
	error,
) {
	_, err := parser.expectKeyword(keyword)
	if err != nil {
		return "", nil, err
	}

	_, err = parser.expectKeyword("func")
	if err != nil {
		return "", nil, err
	}

	_, err = parser.expect(lexer.AtToken)
	if err != nil {
		return "", nil, err
	}

	name, err := parser.expect(lexer.IdentifierToken)
	if err != nil {
		return "", nil, err
	}

	_, err = parser.expect(lexer.LparenToken)
	if err != nil {
		return "", nil, err
	}

	params := []*ast.VariableDefinition{}
	for !parser.peekIs(lexer.RparenToken) {
		if len(params) > 0 {
			_, err = parser.expect(lexer.CommaToken)
			if err != nil {
				return "", nil, err
			}
		}

		param, err := parser.parseVariableDefinition()
		if err != nil {
			return "", nil, err
		}
		params = append(params, param)
	}

	_, err = parser.expect(lexer.RparenToken)
	if err != nil {
		return "", nil, err
	}

	return name.Value, params, nil
}

// :<label> [<annotations>]*
func (parser *lineParser) parseLocalLabel() (ast.Line, error) {
	start, err := parser.expect(lexer.ColonToken)
	if err != nil {
		return nil, err
	}

	name, err := parser.expect(lexer.IdentifierToken)
	if err != nil {
		return nil, err
	}
	pos := parser.posFrom(start)

	annotations, err := parser.parseAnnotations()
	if err != nil {
		return nil, err
	}

	return &parsedLocalLabel{
		StartEndPos: pos,
		Label:       name.Value,
		Annotations: annotations,
	}, nil
}

func (parser *lineParser) parseVariableDefinition() (
	*ast.VariableDefinition,
	error,
) {
	start, err := parser.expect(lexer.PercentToken)
	if err != nil {
		return nil, err
	}

	name, err := parser.expect(lexer.IdentifierToken)
	if err != nil {
		return nil, err
	}

	return &ast.VariableDefinition{
		StartEndPos: parser.posFrom(start),
		Name:        name.Value,
	}, nil
}

func (parser *lineParser) parseValue() (ast.Value, error) {
	start := parser.peek()
	if start == nil {
		return nil, parser.unexpected()
	}

	switch start.SymbolId {
	case lexer.PercentToken:
		parser.pos++
		name, err := parser.expect(lexer.IdentifierToken)
		if err != nil {
			return nil, err
		}
		return &ast.VariableReference{
			StartEndPos: parser.posFrom(start),
			Name:        name.Value,
		}, nil
	case lexer.AtToken:
		parser.pos++
		name, err := parser.expect(lexer.IdentifierToken)
		if err != nil {
			return nil, err
		}
		return &ast.GlobalLabelReference{
			StartEndPos: parser.posFrom(start),
			Label:       name.Value,
		}, nil
	case lexer.IntegerLiteralToken:
		return parser.parseIntImmediate()
	case lexer.FloatLiteralToken:
		parser.pos++
		value, err := strconv.ParseFloat(start.Value, 64)
		if err != nil {
			return nil, parseutil.NewLocationError(
				start.Loc(),
				"invalid float literal (%s)",
				start.Value)
		}
		return &ast.FloatImmediate{
			StartEndPos: start.StartEndPos,
			Value:       value,
		}, nil
	}

	return nil, parser.unexpected()
}

func (parser *lineParser) parseIntImmediate() (*ast.IntImmediate, error) {
	token, err := parser.expect(lexer.IntegerLiteralToken)
	if err != nil {
		return nil, err
	}

	value, err := strconv.ParseInt(token.Value, 10, 64)
	if err != nil {
		return nil, parseutil.NewLocationError(
			token.Loc(),
			"invalid integer literal (%s)",
			token.Value)
	}

	return &ast.IntImmediate{
		StartEndPos: token.StartEndPos,
		Value:       value,
	}, nil
}

// [!<kind>[(<int>)]]*
func (parser *lineParser) parseAnnotations() ([]*ast.Annotation, error) {
	var annotations []*ast.Annotation
	for parser.peekIs(lexer.BangToken) {
		start := parser.peek()
		parser.pos++

		kind, err := parser.expect(lexer.IdentifierToken)
		if err != nil {
			return nil, err
		}

		var argument *ast.IntImmediate
		if parser.peekIs(lexer.LparenToken) {
			parser.pos++

			argument, err = parser.parseIntImmediate()
			if err != nil {
				return nil, err
			}

			_, err = parser.expect(lexer.RparenToken)
			if err != nil {
				return nil, err
			}
		}

		annotations = append(annotations, &ast.Annotation{
			StartEndPos: parser.posFrom(start),
			Kind:        ast.AnnotationKind(kind.Value),
			Argument:    argument,
		})
	}

	return annotations, nil
}

// %<dest> = ...
func (parser *lineParser) parseDestinationInstruction() (ast.Line, error) {
	start := parser.peek()
	dest, err := parser.parseVariableDefinition()
	if err != nil {
		return nil, err
	}

	_, err = parser.expect(lexer.EqualToken)
	if err != nil {
		return nil, err
	}

	op := parser.peek()
	if op == nil || op.SymbolId != lexer.IdentifierToken {
		src, err := parser.parseValue()
		if err != nil {
			return nil, err
		}
		return &ast.CopyOperation{
			StartEndPos: parser.posFrom(start),
			Dest:        dest,
			Src:         src,
		}, nil
	}
	parser.pos++

	switch op.Value {
	case "call":
		return parser.parseCall(start, dest)
	case "load":
		address, err := parser.parseValue()
		if err != nil {
			return nil, err
		}
		return &ast.LoadOperation{
			StartEndPos: parser.posFrom(start),
			Dest:        dest,
			Address:     address,
		}, nil
	case string(ast.Offset):
		base, offset, err := parser.parseValuePair()
		if err != nil {
			return nil, err
		}
		return &ast.AddressOperation{
			StartEndPos: parser.posFrom(start),
			Kind:        ast.Offset,
			Dest:        dest,
			Base:        base,
			Offset:      offset,
		}, nil
	case string(ast.Cast):
		base, err := parser.parseValue()
		if err != nil {
			return nil, err
		}
		return &ast.AddressOperation{
			StartEndPos: parser.posFrom(start),
			Kind:        ast.Cast,
			Dest:        dest,
			Base:        base,
		}, nil
	}

	unaryKind, ok := unaryOperations[op.Value]
	if ok {
		src, err := parser.parseValue()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOperation{
			StartEndPos: parser.posFrom(start),
			Kind:        unaryKind,
			Dest:        dest,
			Src:         src,
		}, nil
	}

	binaryKind, ok := binaryOperations[op.Value]
	if ok {
		src1, src2, err := parser.parseValuePair()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOperation{
			StartEndPos: parser.posFrom(start),
			Kind:        binaryKind,
			Dest:        dest,
			Src1:        src1,
			Src2:        src2,
		}, nil
	}

	return nil, parseutil.NewLocationError(
		op.Loc(),
		"unknown operation (%s)",
		op.Value)
}

func (parser *lineParser) parseValuePair() (ast.Value, ast.Value, error) {
	first, err := parser.parseValue()
	if err != nil {
		return nil, nil, err
	}

	_, err = parser.expect(lexer.CommaToken)
	if err != nil {
		return nil, nil, err
	}

	second, err := parser.parseValue()
	if err != nil {
		return nil, nil, err
	}

	return first, second, nil
}

// store <address>, <src>
func (parser *lineParser) parseStore() (ast.Line, error) {
	start, err := parser.expectKeyword("store")
	if err != nil {
		return nil, err
	}

	address, src, err := parser.parseValuePair()
	if err != nil {
		return nil, err
	}

	return &ast.StoreOperation{
		StartEndPos: parser.posFrom(start),
		Address:     address,
		Src:         src,
	}, nil
}

// [<dest> =] call <func>(<args>) [<annotations>]*
//
// The "call" keyword is consumed by the caller when dest is specified.
func (parser *lineParser) parseCall(
	start *lexer.Token,
	dest *ast.VariableDefinition,
) (
	ast.Line,
	error,
) {
	if dest == nil {
		_, err := parser.expectKeyword("call")
		if err != nil {
			return nil, err
		}
	}

	function, err := parser.parseValue()
	if err != nil {
		return nil, err
	}

	_, err = parser.expect(lexer.LparenToken)
	if err != nil {
		return nil, err
	}

	args := []ast.Value{}
	for !parser.peekIs(lexer.RparenToken) {
		if len(args) > 0 {
			_, err = parser.expect(lexer.CommaToken)
			if err != nil {
				return nil, err
			}
		}

		arg, err := parser.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	_, err = parser.expect(lexer.RparenToken)
	if err != nil {
		return nil, err
	}
	pos := parser.posFrom(start)

	annotations, err := parser.parseAnnotations()
	if err != nil {
		return nil, err
	}

	return &ast.FuncCall{
		StartEndPos: pos,
		Dest:        dest,
		Func:        function,
		Args:        args,
		Annotations: annotations,
	}, nil
}

func (parser *lineParser) parseLabelReference() (string, error) {
	_, err := parser.expect(lexer.ColonToken)
	if err != nil {
		return "", err
	}

	name, err := parser.expect(lexer.IdentifierToken)
	if err != nil {
		return "", err
	}

	return name.Value, nil
}

// jmp :<label>
func (parser *lineParser) parseJump() (ast.Line, error) {
	start, err := parser.expectKeyword("jmp")
	if err != nil {
		return nil, err
	}

	label, err := parser.parseLabelReference()
	if err != nil {
		return nil, err
	}

	return &ast.Jump{
		StartEndPos: parser.posFrom(start),
		Label:       label,
	}, nil
}

// <op> :<label>, <src1>, <src2>
func (parser *lineParser) parseConditionalJump(
	kind ast.ConditionalJumpKind,
) (
	ast.Line,
	error,
) {
	start := parser.peek()
	parser.pos++

	label, err := parser.parseLabelReference()
	if err != nil {
		return nil, err
	}

	_, err = parser.expect(lexer.CommaToken)
	if err != nil {
		return nil, err
	}

	src1, src2, err := parser.parseValuePair()
	if err != nil {
		return nil, err
	}

	return &ast.ConditionalJump{
		StartEndPos: parser.posFrom(start),
		Kind:        kind,
		Label:       label,
		Src1:        src1,
		Src2:        src2,
	}, nil
}

// ret [<src>]
func (parser *lineParser) parseTerminal() (ast.Line, error) {
	start, err := parser.expectKeyword("ret")
	if err != nil {
		return nil, err
	}

	var retVal ast.Value
	if !parser.atEnd() {
		retVal, err = parser.parseValue()
		if err != nil {
			return nil, err
		}
	}

	return &ast.Terminal{
		StartEndPos: parser.posFrom(start),
		RetVal:      retVal,
	}, nil
}
