package ast

import (
	"fmt"
	"strings"

	"github.com/pattyshack/gt/parseutil"
)

// Instructions of the form: <dest> = <src>
type CopyOperation struct {
	instruction

	parseutil.StartEndPos

	Dest *VariableDefinition
	Src  Value
}

var _ Instruction = &CopyOperation{}

func (copyOp *CopyOperation) replaceSource(oldVal Value, newVal Value) {
	if replaceValue(&copyOp.Src, copyOp, oldVal, newVal) != 1 {
		panic("should never happen")
	}
}

func (copyOp *CopyOperation) Sources() []Value {
	return []Value{copyOp.Src}
}

func (copyOp *CopyOperation) Destination() *VariableDefinition {
	return copyOp.Dest
}

func (copyOp *CopyOperation) Walk(visitor Visitor) {
	visitor.Enter(copyOp)
	copyOp.Dest.Walk(visitor)
	copyOp.Src.Walk(visitor)
	visitor.Exit(copyOp)
}

func (copyOp *CopyOperation) String() string {
	return fmt.Sprintf("%s = %s", copyOp.Dest, copyOp.Src)
}

type UnaryOperationKind string

const (
	Neg = UnaryOperationKind("neg")
	Not = UnaryOperationKind("not")
)

// Instructions of the form: <dest> = <op> <src>
type UnaryOperation struct {
	instruction

	parseutil.StartEndPos

	Kind UnaryOperationKind

	Dest *VariableDefinition
	Src  Value
}

var _ Instruction = &UnaryOperation{}
var _ Validator = &UnaryOperation{}

func (unary *UnaryOperation) replaceSource(oldVal Value, newVal Value) {
	if replaceValue(&unary.Src, unary, oldVal, newVal) != 1 {
		panic("should never happen")
	}
}

func (unary *UnaryOperation) Sources() []Value {
	return []Value{unary.Src}
}

func (unary *UnaryOperation) Destination() *VariableDefinition {
	return unary.Dest
}

func (unary *UnaryOperation) Walk(visitor Visitor) {
	visitor.Enter(unary)
	unary.Dest.Walk(visitor)
	unary.Src.Walk(visitor)
	visitor.Exit(unary)
}

func (unary *UnaryOperation) Validate(emitter *parseutil.Emitter) {
	switch unary.Kind {
	case Neg, Not: // ok
	default:
		emitter.Emit(unary.Loc(), "unexpected unary operation (%s)", unary.Kind)
	}
}

func (unary *UnaryOperation) String() string {
	return fmt.Sprintf("%s = %s %s", unary.Dest, unary.Kind, unary.Src)
}

type BinaryOperationKind string

const (
	Add = BinaryOperationKind("add")
	Sub = BinaryOperationKind("sub")
	Mul = BinaryOperationKind("mul")
	Div = BinaryOperationKind("div")
	Rem = BinaryOperationKind("rem")
	Xor = BinaryOperationKind("xor")
	Or  = BinaryOperationKind("or")
	And = BinaryOperationKind("and")
	Shl = BinaryOperationKind("shl")
	Shr = BinaryOperationKind("shr")
	Slt = BinaryOperationKind("slt") // dest = (src1 < src2)? 1 : 0
)

// Instructions of the form: <dest> = <op> <src1>, <src2>
type BinaryOperation struct {
	instruction

	parseutil.StartEndPos

	Kind BinaryOperationKind

	Dest *VariableDefinition
	Src1 Value
	Src2 Value
}

var _ Instruction = &BinaryOperation{}
var _ Validator = &BinaryOperation{}

func (binary *BinaryOperation) replaceSource(oldVal Value, newVal Value) {
	replaceCount := replaceValue(&binary.Src1, binary, oldVal, newVal)
	replaceCount += replaceValue(&binary.Src2, binary, oldVal, newVal)

	if replaceCount != 1 {
		panic("should never happen")
	}
}

func (binary *BinaryOperation) Sources() []Value {
	return []Value{binary.Src1, binary.Src2}
}

func (binary *BinaryOperation) Destination() *VariableDefinition {
	return binary.Dest
}

func (binary *BinaryOperation) Walk(visitor Visitor) {
	visitor.Enter(binary)
	binary.Dest.Walk(visitor)
	binary.Src1.Walk(visitor)
	binary.Src2.Walk(visitor)
	visitor.Exit(binary)
}

func (binary *BinaryOperation) Validate(emitter *parseutil.Emitter) {
	switch binary.Kind {
	case Add, Sub, Mul, Div, Rem, Xor, Or, And, Shl, Shr, Slt: // ok
	default:
		emitter.Emit(binary.Loc(), "unexpected binary operation (%s)", binary.Kind)
	}
}

func (binary *BinaryOperation) String() string {
	return fmt.Sprintf(
		"%s = %s %s, %s",
		binary.Dest,
		binary.Kind,
		binary.Src1,
		binary.Src2)
}

// Memory read of the form: <dest> = load <address>
type LoadOperation struct {
	instruction

	parseutil.StartEndPos

	Dest    *VariableDefinition
	Address Value
}

var _ Instruction = &LoadOperation{}

func (load *LoadOperation) replaceSource(oldVal Value, newVal Value) {
	if replaceValue(&load.Address, load, oldVal, newVal) != 1 {
		panic("should never happen")
	}
}

func (load *LoadOperation) Sources() []Value {
	return []Value{load.Address}
}

func (load *LoadOperation) Destination() *VariableDefinition {
	return load.Dest
}

func (load *LoadOperation) Walk(visitor Visitor) {
	visitor.Enter(load)
	load.Dest.Walk(visitor)
	load.Address.Walk(visitor)
	visitor.Exit(load)
}

func (load *LoadOperation) String() string {
	return fmt.Sprintf("%s = load %s", load.Dest, load.Address)
}

// Memory write of the form: store <address>, <src>
type StoreOperation struct {
	instruction

	parseutil.StartEndPos

	Address Value
	Src     Value
}

var _ Instruction = &StoreOperation{}

func (store *StoreOperation) replaceSource(oldVal Value, newVal Value) {
	replaceCount := replaceValue(&store.Address, store, oldVal, newVal)
	replaceCount += replaceValue(&store.Src, store, oldVal, newVal)

	if replaceCount != 1 {
		panic("should never happen")
	}
}

func (store *StoreOperation) Sources() []Value {
	return []Value{store.Address, store.Src}
}

func (store *StoreOperation) Walk(visitor Visitor) {
	visitor.Enter(store)
	store.Address.Walk(visitor)
	store.Src.Walk(visitor)
	visitor.Exit(store)
}

func (store *StoreOperation) String() string {
	return fmt.Sprintf("store %s, %s", store.Address, store.Src)
}

type AddressOperationKind string

const (
	// dest = base + offset (in bytes)
	Offset = AddressOperationKind("offset")
	// dest = base, reinterpreted
	Cast = AddressOperationKind("cast")
)

// Pointer recomputation of the form:
//
//	<dest> = offset <base>, <offset>
//	<dest> = cast <base>
type AddressOperation struct {
	instruction

	parseutil.StartEndPos

	Kind AddressOperationKind

	Dest   *VariableDefinition
	Base   Value
	Offset Value // nil for cast
}

var _ Instruction = &AddressOperation{}
var _ Validator = &AddressOperation{}

func (addr *AddressOperation) replaceSource(oldVal Value, newVal Value) {
	replaceCount := replaceValue(&addr.Base, addr, oldVal, newVal)
	if addr.Offset != nil {
		replaceCount += replaceValue(&addr.Offset, addr, oldVal, newVal)
	}

	if replaceCount != 1 {
		panic("should never happen")
	}
}

func (addr *AddressOperation) Sources() []Value {
	if addr.Offset == nil {
		return []Value{addr.Base}
	}
	return []Value{addr.Base, addr.Offset}
}

func (addr *AddressOperation) Destination() *VariableDefinition {
	return addr.Dest
}

func (addr *AddressOperation) Walk(visitor Visitor) {
	visitor.Enter(addr)
	addr.Dest.Walk(visitor)
	addr.Base.Walk(visitor)
	if addr.Offset != nil {
		addr.Offset.Walk(visitor)
	}
	visitor.Exit(addr)
}

func (addr *AddressOperation) Validate(emitter *parseutil.Emitter) {
	switch addr.Kind {
	case Offset:
		if addr.Offset == nil {
			emitter.Emit(addr.Loc(), "offset operation requires an offset operand")
		}
	case Cast:
		if addr.Offset != nil {
			emitter.Emit(addr.Loc(), "cast operation takes a single operand")
		}
	default:
		emitter.Emit(addr.Loc(), "unexpected address operation (%s)", addr.Kind)
	}
}

func (addr *AddressOperation) String() string {
	if addr.Offset == nil {
		return fmt.Sprintf("%s = %s %s", addr.Dest, addr.Kind, addr.Base)
	}
	return fmt.Sprintf(
		"%s = %s %s, %s",
		addr.Dest,
		addr.Kind,
		addr.Base,
		addr.Offset)
}

// Call of the form: [<dest> =] call <func>( [<args>,]* ) [<annotations>]*
type FuncCall struct {
	instruction

	parseutil.StartEndPos

	Dest        *VariableDefinition // optional
	Func        Value
	Args        []Value
	Annotations []*Annotation
}

var _ Instruction = &FuncCall{}
var _ Validator = &FuncCall{}

func (call *FuncCall) replaceSource(oldVal Value, newVal Value) {
	replaceCount := replaceValue(&call.Func, call, oldVal, newVal)
	for idx := range call.Args {
		replaceCount += replaceValue(&call.Args[idx], call, oldVal, newVal)
	}

	if replaceCount != 1 {
		panic("should never happen")
	}
}

func (call *FuncCall) Sources() []Value {
	return append([]Value{call.Func}, call.Args...)
}

func (call *FuncCall) Destination() *VariableDefinition {
	return call.Dest
}

func (call *FuncCall) Walk(visitor Visitor) {
	visitor.Enter(call)
	if call.Dest != nil {
		call.Dest.Walk(visitor)
	}
	call.Func.Walk(visitor)
	for _, arg := range call.Args {
		arg.Walk(visitor)
	}
	for _, annotation := range call.Annotations {
		annotation.Walk(visitor)
	}
	visitor.Exit(call)
}

func (call *FuncCall) Validate(emitter *parseutil.Emitter) {
	switch call.Func.(type) {
	case *GlobalLabelReference, *VariableReference: // ok
	default:
		emitter.Emit(call.Func.Loc(), "cannot call immediate value (%s)", call.Func)
	}

	validateAnnotations(call.Annotations, CallAnnotationTarget, emitter)
}

// Returns the callee's label for direct calls.
func (call *FuncCall) CalleeLabel() (string, bool) {
	ref, ok := call.Func.(*GlobalLabelReference)
	if !ok {
		return "", false
	}
	return ref.Label, true
}

// Replace the called function.  The previous callee is detached from its
// definition.
func (call *FuncCall) SetFunc(callee Value) {
	call.Func.Discard()
	call.Func = callee
	callee.SetParentInstruction(call)
}

func (call *FuncCall) String() string {
	args := make([]string, 0, len(call.Args))
	for _, arg := range call.Args {
		args = append(args, arg.String())
	}

	result := fmt.Sprintf("call %s(%s)", call.Func, strings.Join(args, ", "))
	if call.Dest != nil {
		result = fmt.Sprintf("%s = %s", call.Dest, result)
	}
	for _, annotation := range call.Annotations {
		result += " " + annotation.String()
	}
	return result
}
