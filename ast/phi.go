package ast

import (
	"github.com/pattyshack/gt/parseutil"
)

// For internal use only
type Phi struct {
	instruction

	parseutil.StartEndPos

	Dest *VariableDefinition

	// Value is usually a local variable reference, but could be constant after
	// optimization.
	Srcs map[*Block]Value
}

var _ Instruction = &Phi{}

func (phi *Phi) Walk(visitor Visitor) {
	visitor.Enter(phi)
	phi.Dest.Walk(visitor)
	for _, src := range phi.Sources() {
		src.Walk(visitor)
	}
	visitor.Exit(phi)
}

func (phi *Phi) replaceSource(oldVal Value, newVal Value) {
	replaceCount := 0
	for block, src := range phi.Srcs {
		if src == oldVal {
			phi.Srcs[block] = newVal
			newVal.SetParentInstruction(phi)
			replaceCount++
		}
	}

	if replaceCount != 1 {
		panic("should never happen")
	}
}

// Sources ordered by the parent block's position in the function.
func (phi *Phi) Sources() []Value {
	result := make([]Value, 0, len(phi.Srcs))
	if phi.Parent != nil {
		for _, parent := range phi.Parent.Parents {
			src, ok := phi.Srcs[parent]
			if ok {
				result = append(result, src)
			}
		}
	}

	if len(result) != len(phi.Srcs) { // parents not populated
		result = result[:0]
		for _, src := range phi.Srcs {
			result = append(result, src)
		}
	}
	return result
}

func (phi *Phi) Destination() *VariableDefinition {
	return phi.Dest
}

func (phi *Phi) Add(parent *Block, def *VariableDefinition) {
	ref := def.NewRef(phi.StartEnd())
	ref.SetParentInstruction(phi)
	phi.Srcs[parent] = ref
}

func (phi *Phi) Discard() {
	delete(phi.Parent.Phis, phi.Dest.Name)
	for _, src := range phi.Srcs {
		src.Discard()
	}
}
