package analyzer

import (
	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

// Links every instruction to its enclosing block (and every block to its
// function), and binds global label references to the collected signatures.
type globalLabelReferenceBinder struct {
	*parseutil.Emitter

	signatures map[string]ast.SourceEntry

	funcDef *ast.FunctionDefinition
	block   *ast.Block
}

func BindGlobalLabelReferences(
	emitter *parseutil.Emitter,
	signatures map[string]ast.SourceEntry,
) util.Pass[ast.SourceEntry] {
	return &globalLabelReferenceBinder{
		Emitter:    emitter,
		signatures: signatures,
	}
}

func (binder *globalLabelReferenceBinder) Process(entry ast.SourceEntry) {
	funcDef, ok := entry.(*ast.FunctionDefinition)
	if ok {
		funcDef.Walk(binder)
	}
}

func (binder *globalLabelReferenceBinder) Enter(n ast.Node) {
	switch node := n.(type) {
	case *ast.FunctionDefinition:
		binder.funcDef = node
	case *ast.Block:
		node.ParentFuncDef = binder.funcDef
		binder.block = node
	case ast.Instruction:
		node.SetParentBlock(binder.block)
		for _, src := range node.Sources() {
			src.SetParentInstruction(node)
		}

		dest := node.Destination()
		if dest != nil {
			dest.ParentInstruction = node
		}
	case *ast.GlobalLabelReference:
		sig, ok := binder.signatures[node.Label]
		if !ok {
			binder.Emit(node.Loc(), "global label (%s) not defined", node.Label)
			return
		}
		node.Signature = sig
	}
}

func (binder *globalLabelReferenceBinder) Exit(n ast.Node) {
	switch n.(type) {
	case *ast.FunctionDefinition:
		binder.funcDef = nil
	case *ast.Block:
		binder.block = nil
	}
}
