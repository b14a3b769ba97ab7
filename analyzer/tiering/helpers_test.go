package tiering

import (
	"testing"

	"github.com/pattyshack/gt/parseutil"
	"github.com/stretchr/testify/require"

	"github.com/pattyshack/fasttier/analyzer"
	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/parser"
)

const declarations = `
declare func @malloc(%size)
declare func @free(%ptr)
declare func @use(%ptr)
declare func @use2(%a, %b)
`

func lower(t *testing.T, source string) []ast.SourceEntry {
	t.Helper()

	emitter := &parseutil.Emitter{}
	sources := parser.ParseSource("test.ir", []byte(source), emitter)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	analyzer.Analyze(sources, emitter)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())
	return sources
}

func definition(
	t *testing.T,
	sources []ast.SourceEntry,
	label string,
) *ast.FunctionDefinition {
	t.Helper()

	for _, entry := range sources {
		def, ok := entry.(*ast.FunctionDefinition)
		if ok && def.Label == label {
			return def
		}
	}

	require.FailNow(t, "function not found", label)
	return nil
}

func analyzeSource(
	t *testing.T,
	source string,
	label string,
) *FunctionSummary {
	t.Helper()

	sources := lower(t, declarations+source)
	return AnalyzeFunction(
		definition(t, sources, label),
		NewAnnotationIndex(sources),
		DefaultConfig())
}

func calleeOf(t *testing.T, call *ast.FuncCall) string {
	t.Helper()

	label, ok := call.CalleeLabel()
	require.True(t, ok)
	return label
}
