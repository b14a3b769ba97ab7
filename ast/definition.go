package ast

import (
	"sort"

	"github.com/pattyshack/gt/parseutil"
)

type FunctionDeclaration struct {
	sourceEntry

	parseutil.StartEndPos

	Label      string
	Parameters []*VariableDefinition
}

var _ SourceEntry = &FunctionDeclaration{}
var _ Validator = &FunctionDeclaration{}

func (decl *FunctionDeclaration) EntryLabel() string {
	return decl.Label
}

func (decl *FunctionDeclaration) Walk(visitor Visitor) {
	visitor.Enter(decl)
	for _, param := range decl.Parameters {
		param.Walk(visitor)
	}
	visitor.Exit(decl)
}

func (decl *FunctionDeclaration) Validate(emitter *parseutil.Emitter) {
	if decl.Label == "" {
		emitter.Emit(decl.Loc(), "empty function declaration label string")
	}
	validateParameters(decl.Parameters, emitter)
}

type FunctionDefinition struct {
	sourceEntry

	parseutil.StartEndPos

	Label       string
	Parameters  []*VariableDefinition
	Annotations []*Annotation
	Blocks      []*Block
}

var _ SourceEntry = &FunctionDefinition{}
var _ Validator = &FunctionDefinition{}

func (def *FunctionDefinition) EntryLabel() string {
	return def.Label
}

func (def *FunctionDefinition) Walk(visitor Visitor) {
	visitor.Enter(def)
	for _, param := range def.Parameters {
		param.Walk(visitor)
	}
	for _, annotation := range def.Annotations {
		annotation.Walk(visitor)
	}
	for _, block := range def.Blocks {
		block.Walk(visitor)
	}
	visitor.Exit(def)
}

func (def *FunctionDefinition) Validate(emitter *parseutil.Emitter) {
	if def.Label == "" {
		emitter.Emit(def.Loc(), "empty function definition label string")
	}

	if len(def.Blocks) == 0 {
		emitter.Emit(def.Loc(), "function definition must have at least one block")
	}

	validateParameters(def.Parameters, emitter)
	validateAnnotations(def.Annotations, FunctionAnnotationTarget, emitter)
}

func validateParameters(
	params []*VariableDefinition,
	emitter *parseutil.Emitter,
) {
	names := map[string]*VariableDefinition{}
	for _, param := range params {
		prev, ok := names[param.Name]
		if ok {
			emitter.Emit(
				param.Loc(),
				"parameter (%s) previously defined at (%s)",
				param.Name,
				prev.Loc().ShortString())
		} else {
			names[param.Name] = param
		}
	}
}

// A straight-line / basic block
type Block struct {
	parseutil.StartEndPos

	Label string

	// Only valid on labelled blocks.  Loop annotations are attached to the
	// loop's header block.
	Annotations []*Annotation

	// NOTE: only the last instruction can be a control flow instruction.  All
	// other instructions must be operation instructions.  If no control flow
	// instruction is provided, the block implicitly fallthrough to the next
	// block.
	Instructions []Instruction

	// internal

	ParentFuncDef *FunctionDefinition

	// Populated by ControlFlowGraphInitializer.  For conditional jump, the
	// branch child precedes the fallthrough child.
	Parents  []*Block
	Children []*Block

	Phis map[string]*Phi
}

var _ Node = &Block{}
var _ Validator = &Block{}

func (block *Block) Walk(visitor Visitor) {
	visitor.Enter(block)
	for _, annotation := range block.Annotations {
		annotation.Walk(visitor)
	}
	for _, phi := range block.SortedPhis() {
		phi.Walk(visitor)
	}
	for _, instruction := range block.Instructions {
		instruction.Walk(visitor)
	}
	visitor.Exit(block)
}

func (block *Block) Validate(emitter *parseutil.Emitter) {
	if len(block.Instructions) == 0 {
		emitter.Emit(block.Loc(), "block must have at least one instruction")
		return
	}

	for idx, in := range block.Instructions {
		switch inst := in.(type) {
		case ControlFlowInstruction:
			if idx != len(block.Instructions)-1 {
				emitter.Emit(
					inst.Loc(),
					"control flow instruction must be the last instruction in the block")
			}
		case *Phi:
			emitter.Emit(inst.Loc(), "phi cannot be used as a regular instruction")
		}
	}

	validateAnnotations(block.Annotations, BlockAnnotationTarget, emitter)
}

// Phis ordered by variable name.
func (block *Block) SortedPhis() []*Phi {
	names := make([]string, 0, len(block.Phis))
	for name := range block.Phis {
		names = append(names, name)
	}
	sort.Strings(names)

	phis := make([]*Phi, 0, len(names))
	for _, name := range names {
		phis = append(phis, block.Phis[name])
	}
	return phis
}

func (block *Block) AddToPhis(parent *Block, def *VariableDefinition) {
	if block.Phis == nil {
		block.Phis = map[string]*Phi{}
	}

	phi, ok := block.Phis[def.Name]
	if !ok {
		pos := parseutil.NewStartEndPos(block.Loc(), block.Loc())
		phi = &Phi{
			StartEndPos: pos,
			Dest: &VariableDefinition{
				StartEndPos: pos,
				Name:        def.Name,
			},
			Srcs: map[*Block]Value{},
		}
		phi.Parent = block
		phi.Dest.ParentInstruction = phi
		block.Phis[def.Name] = phi
	}

	phi.Add(parent, def)
}
