package analyzer

import (
	"testing"

	"github.com/pattyshack/gt/parseutil"
	"github.com/stretchr/testify/require"

	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/parser"
)

func analyze(t *testing.T, source string) ([]ast.SourceEntry, *parseutil.Emitter) {
	t.Helper()

	emitter := &parseutil.Emitter{}
	sources := parser.ParseSource("test.ir", []byte(source), emitter)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	Analyze(sources, emitter)
	return sources, emitter
}

func findDefinition(
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

func TestControlFlowGraph(t *testing.T) {
	sources, emitter := analyze(t, `
define func @branches(%a) {
  jlt :negative, %a, 0
  %b = 1
  jmp :done
:negative
  %b = 2
:done
  ret %b
}
`)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	def := findDefinition(t, sources, "branches")
	require.Len(t, def.Blocks, 4)

	entry := def.Blocks[0]
	fallthroughBlock := def.Blocks[1]
	negative := def.Blocks[2]
	done := def.Blocks[3]

	// branch target precedes the fallthrough child
	require.Equal(t, []*ast.Block{negative, fallthroughBlock}, entry.Children)
	require.Equal(t, []*ast.Block{done}, fallthroughBlock.Children)
	require.Equal(t, []*ast.Block{done}, negative.Children)
	require.Empty(t, done.Children)

	require.Equal(t, []*ast.Block{fallthroughBlock, negative}, done.Parents)
	require.Equal(t, ":0", entry.Label)
	require.Equal(t, ":1", fallthroughBlock.Label)

	for _, block := range def.Blocks {
		require.Equal(t, def, block.ParentFuncDef)
		for _, inst := range block.Instructions {
			require.Equal(t, block, inst.ParentBlock())
		}
	}

	// %b is defined differently on both paths
	require.Len(t, done.Phis, 1)
	phi := done.Phis["b"]
	require.NotNil(t, phi)
	require.Len(t, phi.Srcs, 2)

	ret := done.Instructions[0].(*ast.Terminal)
	ref := ret.RetVal.(*ast.VariableReference)
	require.Equal(t, phi.Dest, ref.UseDef)
}

func TestLoopCarriedPhi(t *testing.T) {
	sources, emitter := analyze(t, `
define func @count(%n) {
  %i = 0
  %unused = 5
:loop
  %i = add %i, 1
  jlt :loop, %i, %n
  ret %unused
}
`)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	def := findDefinition(t, sources, "count")
	loop := def.Blocks[1]

	// %n and %unused are loop invariant; their phis are pruned.
	require.Len(t, loop.Phis, 1)
	phi := loop.Phis["i"]
	require.NotNil(t, phi)
	require.Equal(t, loop, phi.ParentBlock())

	add := loop.Instructions[0].(*ast.BinaryOperation)
	require.Equal(t, phi.Dest, add.Src1.(*ast.VariableReference).UseDef)
	require.Equal(
		t,
		[]ast.Instruction{add},
		phi.Dest.Users())

	jump := loop.Instructions[1].(*ast.ConditionalJump)
	require.Equal(t, add.Dest, jump.Src1.(*ast.VariableReference).UseDef)
	require.Equal(t, def.Parameters[0], jump.Src2.(*ast.VariableReference).UseDef)

	// The invariant %unused still resolves to the entry definition.
	exit := def.Blocks[2]
	ret := exit.Instructions[0].(*ast.Terminal)
	entryCopy := def.Blocks[0].Instructions[1].(*ast.CopyOperation)
	require.Equal(t, entryCopy.Dest, ret.RetVal.(*ast.VariableReference).UseDef)
}

func TestGlobalLabelBinding(t *testing.T) {
	sources, emitter := analyze(t, `
declare func @malloc(%size)

define func @f() {
  %p = call @malloc(16)
  call @g(%p)
  ret
}

define func @g(%p) {
  ret
}
`)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	f := findDefinition(t, sources, "f")
	g := findDefinition(t, sources, "g")

	alloc := f.Blocks[0].Instructions[0].(*ast.FuncCall)
	require.Equal(t, sources[0], alloc.Func.(*ast.GlobalLabelReference).Signature)

	call := f.Blocks[0].Instructions[1].(*ast.FuncCall)
	require.Equal(t, g, call.Func.(*ast.GlobalLabelReference).Signature)
	require.Equal(t, alloc.Dest, call.Args[0].(*ast.VariableReference).UseDef)
	require.Equal(t, []ast.Instruction{call}, alloc.Dest.Users())
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "undefined block label",
			source: "define func @f() {\n  jmp :nowhere\n}\n",
		},
		{
			name:   "duplicate block label",
			source: "define func @f() {\n:a\n  jmp :a\n:a\n  ret\n}\n",
		},
		{
			name:   "falls off the end",
			source: "define func @f() {\n  %a = 1\n}\n",
		},
		{
			name:   "undefined global label",
			source: "define func @f() {\n  call @g()\n  ret\n}\n",
		},
		{
			name:   "undefined variable",
			source: "define func @f() {\n  ret %a\n}\n",
		},
		{
			name:   "variable not defined on all paths",
			source: "define func @f(%c) {\n  jeq :skip, %c, 0\n  %a = 1\n:skip\n  ret %a\n}\n",
		},
		{
			name:   "duplicate definition",
			source: "define func @f() {\n  ret\n}\ndefine func @f() {\n  ret\n}\n",
		},
		{
			name:   "jump to entry block",
			source: "define func @f() {\n:top\n  jmp :top\n}\n",
		},
		{
			name:   "unknown annotation",
			source: "define func @f() !fast {\n  ret\n}\n",
		},
		{
			name:   "misplaced annotation",
			source: "define func @f() !parallel_accesses {\n  ret\n}\n",
		},
		{
			name:   "missing annotation argument",
			source: "declare func @m(%s)\ndefine func @f() {\n  %p = call @m(1) !access_count\n  ret\n}\n",
		},
		{
			name:   "negative annotation argument",
			source: "declare func @m(%s)\ndefine func @f() {\n  %p = call @m(1) !access_count(-1)\n  ret\n}\n",
		},
		{
			name:   "duplicate parameter",
			source: "define func @f(%a, %a) {\n  ret\n}\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, emitter := analyze(t, test.source)
			require.True(t, emitter.HasErrors())
		})
	}
}

func TestDeclarationPairsWithDefinition(t *testing.T) {
	sources, emitter := analyze(t, `
declare func @g(%x)

define func @f() {
  call @g(1)
  ret
}

define func @g(%x) {
  ret
}
`)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	f := findDefinition(t, sources, "f")
	g := findDefinition(t, sources, "g")

	call := f.Blocks[0].Instructions[0].(*ast.FuncCall)
	require.Equal(t, g, call.Func.(*ast.GlobalLabelReference).Signature)
}

func TestEntryBlockCannotBeJumpTarget(t *testing.T) {
	_, emitter := analyze(t, `
define func @f(%n) {
:top
  %n = sub %n, 1
  jne :top, %n, 0
  ret
}
`)

	errs := emitter.Errors()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "entry block (top) cannot be a jump target")
}
