package ast

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Returns the textual IR of the given entries.  The output can be parsed back
// by the parser.
func ProgramString(entries []SourceEntry) string {
	buffer := &bytes.Buffer{}
	_ = PrintProgram(buffer, entries)
	return buffer.String()
}

func PrintProgram(output io.Writer, entries []SourceEntry) error {
	printer := &irPrinter{
		writer: output,
	}

	for idx, entry := range entries {
		if idx > 0 {
			_, isDecl := entry.(*FunctionDeclaration)
			_, prevIsDecl := entries[idx-1].(*FunctionDeclaration)
			if !isDecl || !prevIsDecl {
				printer.write("\n")
			}
		}

		switch def := entry.(type) {
		case *FunctionDeclaration:
			printer.write(
				"declare func @%s(%s)\n",
				def.Label,
				parameterList(def.Parameters))
		case *FunctionDefinition:
			printer.printDefinition(def)
		default:
			panic(fmt.Sprintf("%s: unhandled SourceEntry", entry.Loc()))
		}
	}

	return printer.err
}

type irPrinter struct {
	writer io.Writer
	err    error
}

func (printer *irPrinter) write(format string, args ...interface{}) {
	if printer.err != nil {
		return
	}

	_, printer.err = fmt.Fprintf(printer.writer, format, args...)
}

func (printer *irPrinter) printDefinition(def *FunctionDefinition) {
	printer.write(
		"define func @%s(%s)%s {\n",
		def.Label,
		parameterList(def.Parameters),
		annotationList(def.Annotations))

	for _, block := range def.Blocks {
		// :-prefixed labels are generated by the control flow graph initializer
		if block.Label != "" && !strings.HasPrefix(block.Label, ":") {
			printer.write(":%s%s\n", block.Label, annotationList(block.Annotations))
		}

		for _, inst := range block.Instructions {
			printer.write("  %s\n", inst)
		}
	}

	printer.write("}\n")
}

func parameterList(params []*VariableDefinition) string {
	names := make([]string, 0, len(params))
	for _, param := range params {
		names = append(names, param.String())
	}
	return strings.Join(names, ", ")
}

func annotationList(annotations []*Annotation) string {
	result := ""
	for _, annotation := range annotations {
		result += " " + annotation.String()
	}
	return result
}
