package parser

import (
	"io"

	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/parser/lexer"
)

type parser struct {
	lexer   *lexer.Lexer
	emitter *parseutil.Emitter
}

func newParser(
	reader parseutil.BufferedByteLocationReader,
	emitter *parseutil.Emitter,
) *parser {
	return &parser{
		lexer:   lexer.NewLexer(reader),
		emitter: emitter,
	}
}

func (parser *parser) readLine() ([]*lexer.Token, error) {
	result := []*lexer.Token{}
	for {
		token, err := parser.lexer.Next()
		if err != nil {
			if err == io.EOF && len(result) > 0 {
				return result, nil
			}
			return result, err
		}

		if token.SymbolId == lexer.NewlinesToken {
			if len(result) == 0 {
				continue
			}
			return result, nil
		}
		result = append(result, token)
	}
}

func (parser *parser) parse() []ast.SourceEntry {
	var currentFuncDef *ast.FunctionDefinition
	var currentBlock *ast.Block
	result := []ast.SourceEntry{}
	for {
		segment, err := parser.readLine()
		if err != nil {
			if currentFuncDef != nil {
				parser.emitter.Emit(
					currentFuncDef.Loc(),
					"function definition not terminated by RBRACE")
			}

			if err != io.EOF {
				parser.emitter.EmitErrors(err)
			}

			return result
		}

		line, err := parseLine(segment)
		if err != nil {
			parser.emitter.EmitErrors(err)
			continue
		}

		switch stmt := line.(type) {
		case ast.SourceEntry:
			if currentFuncDef != nil {
				parser.emitter.Emit(
					currentFuncDef.Loc(),
					"function definition not terminated by RBRACE")
				currentFuncDef = nil
				currentBlock = nil
			}
			result = append(result, stmt)

			funcDef, ok := stmt.(*ast.FunctionDefinition)
			if ok {
				currentFuncDef = funcDef
			}
		case *parsedLocalLabel:
			if currentFuncDef == nil {
				parser.emitter.Emit(
					stmt.Loc(),
					"block label defined outside of function definition")
			} else {
				currentBlock = &ast.Block{
					StartEndPos: stmt.StartEndPos,
					Label:       stmt.Label,
					Annotations: stmt.Annotations,
				}
				currentFuncDef.Blocks = append(currentFuncDef.Blocks, currentBlock)
				currentFuncDef.EndPos = stmt.End()
			}
		case ast.Instruction:
			if currentFuncDef == nil {
				parser.emitter.Emit(
					stmt.Loc(),
					"instruction defined outside of function definition")
			} else {
				if currentBlock == nil {
					currentBlock = &ast.Block{
						StartEndPos: stmt.StartEnd(),
					}
					currentFuncDef.Blocks = append(currentFuncDef.Blocks, currentBlock)
				}
				currentBlock.Instructions = append(currentBlock.Instructions, stmt)
				currentBlock.EndPos = stmt.End()
				currentFuncDef.EndPos = stmt.End()

				_, ok := line.(ast.ControlFlowInstruction)
				if ok {
					currentBlock = nil
				}
			}
		case *parsedRbrace:
			if currentFuncDef == nil {
				parser.emitter.Emit(
					stmt.Loc(),
					"RBRACE not part of function definition")
			} else {
				currentFuncDef.EndPos = stmt.End()
				currentFuncDef = nil
				currentBlock = nil
			}
		default:
			panic("unhandled line")
		}
	}
}

func Parse(
	reader parseutil.BufferedByteLocationReader,
	emitter *parseutil.Emitter,
) []ast.SourceEntry {
	parser := newParser(reader, emitter)
	return parser.parse()
}

// Convenience wrapper around Parse for in-memory sources.
func ParseSource(
	fileName string,
	content []byte,
	emitter *parseutil.Emitter,
) []ast.SourceEntry {
	return Parse(
		parseutil.NewBufferedByteLocationReaderFromSlice(fileName, content),
		emitter)
}
