package ast

import (
	"fmt"
	"strings"

	"github.com/pattyshack/gt/parseutil"
)

type ControlFlowInstruction interface {
	Instruction
	isControlFlow()
}

type controlFlowInstruction struct {
	instruction
}

func (controlFlowInstruction) isControlFlow() {}

// Unconditional jump instruction of the form: jmp <label>
type Jump struct {
	controlFlowInstruction

	parseutil.StartEndPos

	Label string
}

var _ Instruction = &Jump{}
var _ Validator = &Jump{}

func (Jump) replaceSource(Value, Value) {
	panic("should never happen")
}

func (jump *Jump) Walk(visitor Visitor) {
	visitor.Enter(jump)
	visitor.Exit(jump)
}

func (jump *Jump) Validate(emitter *parseutil.Emitter) {
	if strings.HasPrefix(jump.Label, ":") {
		emitter.Emit(jump.Loc(), ":-prefixed label is reserved for internal use")
	}
}

func (jump *Jump) String() string {
	return fmt.Sprintf("jmp :%s", jump.Label)
}

type ConditionalJumpKind string

const (
	Jeq = ConditionalJumpKind("jeq")
	Jne = ConditionalJumpKind("jne")
	Jlt = ConditionalJumpKind("jlt")
	Jge = ConditionalJumpKind("jge")
)

// Instructions of the form: <op> <label>, <src1>, <src2>
type ConditionalJump struct {
	controlFlowInstruction

	parseutil.StartEndPos

	Kind ConditionalJumpKind

	Label string
	Src1  Value
	Src2  Value
}

var _ Instruction = &ConditionalJump{}
var _ Validator = &ConditionalJump{}

func (jump *ConditionalJump) replaceSource(oldSrc Value, newSrc Value) {
	replaceCount := replaceValue(&jump.Src1, jump, oldSrc, newSrc)
	replaceCount += replaceValue(&jump.Src2, jump, oldSrc, newSrc)

	if replaceCount != 1 {
		panic("should never happen")
	}
}

func (jump *ConditionalJump) Sources() []Value {
	return []Value{jump.Src1, jump.Src2}
}

func (jump *ConditionalJump) Walk(visitor Visitor) {
	visitor.Enter(jump)
	jump.Src1.Walk(visitor)
	jump.Src2.Walk(visitor)
	visitor.Exit(jump)
}

func (jump *ConditionalJump) Validate(emitter *parseutil.Emitter) {
	if strings.HasPrefix(jump.Label, ":") {
		emitter.Emit(jump.Loc(), ":-prefixed label is reserved for internal use")
	}

	switch jump.Kind {
	case Jeq, Jne, Jlt, Jge: // ok
	default:
		emitter.Emit(jump.Loc(), "unexpected conditional jump kind (%s)", jump.Kind)
	}
}

// Evaluates the jump condition on constant operands.
func (kind ConditionalJumpKind) Evaluate(src1 int64, src2 int64) bool {
	switch kind {
	case Jeq:
		return src1 == src2
	case Jne:
		return src1 != src2
	case Jlt:
		return src1 < src2
	case Jge:
		return src1 >= src2
	}
	panic("should never happen")
}

func (jump *ConditionalJump) String() string {
	return fmt.Sprintf(
		"%s :%s, %s, %s",
		jump.Kind,
		jump.Label,
		jump.Src1,
		jump.Src2)
}

// Return instruction of the form: ret [<src>]
type Terminal struct {
	controlFlowInstruction

	parseutil.StartEndPos

	RetVal Value // optional
}

var _ Instruction = &Terminal{}

func (term *Terminal) replaceSource(oldSrc Value, newSrc Value) {
	if term.RetVal == nil || replaceValue(&term.RetVal, term, oldSrc, newSrc) != 1 {
		panic("should never happen")
	}
}

func (term *Terminal) Sources() []Value {
	if term.RetVal == nil {
		return nil
	}
	return []Value{term.RetVal}
}

func (term *Terminal) Walk(visitor Visitor) {
	visitor.Enter(term)
	if term.RetVal != nil {
		term.RetVal.Walk(visitor)
	}
	visitor.Exit(term)
}

func (term *Terminal) String() string {
	if term.RetVal == nil {
		return "ret"
	}
	return fmt.Sprintf("ret %s", term.RetVal)
}
