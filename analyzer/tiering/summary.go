package tiering

import (
	"github.com/pattyshack/fasttier/ast"
)

// A single heap allocation call and everything the pass learned about it.
type AllocationSite struct {
	Call     *ast.FuncCall
	Function *ast.FunctionDefinition

	// Requested size in bytes.  0 if the size is not statically known.
	Size uint64

	Score float64

	ForcedHot bool

	// True if no deallocation in the function frees the allocation's result.
	Unmatched bool

	// Matched deallocation calls, in program order.
	Frees []*ast.FuncCall
}

func (site *AllocationSite) FunctionLabel() string {
	if site.Function == nil {
		return ""
	}
	return site.Function.Label
}

type FunctionSummary struct {
	Function *ast.FunctionDefinition

	Sites []*AllocationSite

	// Every deallocation call in the function, in program order.
	Frees []*ast.FuncCall

	// !parallel_accesses blocks outside of any loop.  The annotation has no
	// effect on these blocks.
	IgnoredAnnotations []*ast.Block
}

type ProgramSummary struct {
	// Function summaries in source order.
	Functions []*FunctionSummary
}

// Returns every allocation site in the program, ordered by function source
// order, then by program order within the function.
func (summary *ProgramSummary) Sites() []*AllocationSite {
	result := []*AllocationSite{}
	for _, funcSummary := range summary.Functions {
		result = append(result, funcSummary.Sites...)
	}
	return result
}
