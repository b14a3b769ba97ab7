package ast

import (
	"fmt"
	"strconv"

	"github.com/pattyshack/gt/parseutil"
)

type Node interface {
	parseutil.Locatable
	Walk(Visitor)
}

type Visitor interface {
	Enter(Node)
	Exit(Node)
}

type Validator interface {
	Validate(*parseutil.Emitter)
}

type Line interface { // used only by the parser
	IsLine()
}

type Instruction interface {
	Node
	Line

	ParentBlock() *Block
	SetParentBlock(*Block)

	Sources() []Value                 // empty if there are no src dependencies
	Destination() *VariableDefinition // nil if instruction has no destination

	replaceSource(oldVal Value, newVal Value)
}

type instruction struct {
	// Internal (set during ssa construction)
	Parent *Block
}

func (instruction) IsLine() {}

func (ins *instruction) ParentBlock() *Block {
	return ins.Parent
}

func (ins *instruction) SetParentBlock(block *Block) {
	ins.Parent = block
}

func (instruction) Sources() []Value {
	return nil
}

func (instruction) Destination() *VariableDefinition {
	return nil
}

type SourceEntry interface {
	Node
	Line
	isSourceEntry()

	EntryLabel() string
}

type sourceEntry struct {
}

func (sourceEntry) IsLine()        {}
func (sourceEntry) isSourceEntry() {}

// Register, global label, or immediate
type Value interface {
	Node
	isValue()

	String() string

	ParentInstruction() Instruction
	SetParentInstruction(Instruction)

	// Returns a comparable identity of the value's definition.  Two values with
	// equal definitions are interchangeable.
	Definition() interface{}

	// Returns a copy of the value at the given position.  The copy is not
	// attached to any instruction.
	Copy(parseutil.StartEndPos) Value

	// Detach the value from its definition's def-use chain.
	Discard()
}

type value struct {
	// Internal
	Parent Instruction
}

func (value) isValue() {}

func (val *value) ParentInstruction() Instruction {
	return val.Parent
}

func (val *value) SetParentInstruction(ins Instruction) {
	val.Parent = ins
}

func (value) Discard() {}

// %-prefixed local variable definition.  Note that the '%' prefix is not part
// of the name and is only used by the parser.
type VariableDefinition struct {
	parseutil.StartEndPos

	Name string // require

	// Internal (set during ssa construction)
	ParentInstruction Instruction // nil for func parameters
	DefUses           map[*VariableReference]struct{}
}

var _ Node = &VariableDefinition{}
var _ Validator = &VariableDefinition{}

func (def *VariableDefinition) Walk(visitor Visitor) {
	visitor.Enter(def)
	visitor.Exit(def)
}

func (def *VariableDefinition) Validate(emitter *parseutil.Emitter) {
	if def.Name == "" {
		emitter.Emit(def.Loc(), "empty variable definition name")
	}
}

func (def *VariableDefinition) String() string {
	return "%" + def.Name
}

func (def *VariableDefinition) AddRef(ref *VariableReference) {
	if def.DefUses == nil {
		def.DefUses = map[*VariableReference]struct{}{}
	}
	def.DefUses[ref] = struct{}{}
	ref.UseDef = def
}

func (def *VariableDefinition) NewRef(
	pos parseutil.StartEndPos,
) *VariableReference {
	ref := &VariableReference{
		StartEndPos: pos,
		Name:        def.Name,
	}
	def.AddRef(ref)
	return ref
}

// Replace every reference to this definition with a copy of the given value.
func (def *VariableDefinition) ReplaceReferencesWith(val Value) {
	for ref := range def.DefUses {
		ref.UseDef = nil
		ref.ParentInstruction().replaceSource(ref, val.Copy(ref.StartEnd()))
	}
	def.DefUses = map[*VariableReference]struct{}{}
}

// Returns the distinct instructions that reference this definition.
func (def *VariableDefinition) Users() []Instruction {
	seen := make(map[Instruction]struct{}, len(def.DefUses))
	users := make([]Instruction, 0, len(def.DefUses))
	for ref := range def.DefUses {
		user := ref.ParentInstruction()
		if user == nil {
			continue
		}

		_, ok := seen[user]
		if ok {
			continue
		}
		seen[user] = struct{}{}
		users = append(users, user)
	}
	return users
}

// %-prefixed local variable reference.  Note that the '%' prefix is not part
// of the name and is only used by the parser.
type VariableReference struct {
	value
	parseutil.StartEndPos

	Name string // require

	// Internal (set during ssa construction)
	UseDef *VariableDefinition
}

var _ Value = &VariableReference{}
var _ Validator = &VariableReference{}

func (ref *VariableReference) Walk(visitor Visitor) {
	visitor.Enter(ref)
	visitor.Exit(ref)
}

func (ref *VariableReference) Validate(emitter *parseutil.Emitter) {
	if ref.Name == "" {
		emitter.Emit(ref.Loc(), "empty variable reference name")
	}
}

func (ref *VariableReference) String() string {
	return "%" + ref.Name
}

func (ref *VariableReference) Definition() interface{} {
	if ref.UseDef == nil {
		return ref
	}
	return ref.UseDef
}

func (ref *VariableReference) Copy(pos parseutil.StartEndPos) Value {
	if ref.UseDef == nil {
		return &VariableReference{
			StartEndPos: pos,
			Name:        ref.Name,
		}
	}
	return ref.UseDef.NewRef(pos)
}

func (ref *VariableReference) Discard() {
	if ref.UseDef != nil {
		delete(ref.UseDef.DefUses, ref)
		ref.UseDef = nil
	}
}

// @-prefixed label for various definitions/declarations.  Note that the '@'
// prefix is not part of the name and is only used by the parser.
type GlobalLabelReference struct {
	value
	parseutil.StartEndPos

	Label string

	// Internal (set by global label binder)
	Signature SourceEntry
}

var _ Value = &GlobalLabelReference{}
var _ Validator = &GlobalLabelReference{}

func (ref *GlobalLabelReference) Walk(visitor Visitor) {
	visitor.Enter(ref)
	visitor.Exit(ref)
}

func (ref *GlobalLabelReference) Validate(emitter *parseutil.Emitter) {
	if ref.Label == "" {
		emitter.Emit(ref.Loc(), "empty global label name")
	}
}

func (ref *GlobalLabelReference) String() string {
	return "@" + ref.Label
}

func (ref *GlobalLabelReference) Definition() interface{} {
	return "@" + ref.Label
}

func (ref *GlobalLabelReference) Copy(pos parseutil.StartEndPos) Value {
	return &GlobalLabelReference{
		StartEndPos: pos,
		Label:       ref.Label,
		Signature:   ref.Signature,
	}
}

type IntImmediate struct {
	value
	parseutil.StartEndPos

	Value int64
}

var _ Value = &IntImmediate{}

func (imm *IntImmediate) Walk(visitor Visitor) {
	visitor.Enter(imm)
	visitor.Exit(imm)
}

func (imm *IntImmediate) String() string {
	return strconv.FormatInt(imm.Value, 10)
}

func (imm *IntImmediate) Definition() interface{} {
	return imm.Value
}

func (imm *IntImmediate) Copy(pos parseutil.StartEndPos) Value {
	return &IntImmediate{
		StartEndPos: pos,
		Value:       imm.Value,
	}
}

type FloatImmediate struct {
	value
	parseutil.StartEndPos

	Value float64
}

var _ Value = &FloatImmediate{}

func (imm *FloatImmediate) Walk(visitor Visitor) {
	visitor.Enter(imm)
	visitor.Exit(imm)
}

func (imm *FloatImmediate) String() string {
	s := strconv.FormatFloat(imm.Value, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'I' || c == 'N' {
			return s
		}
	}
	return fmt.Sprintf("%s.0", s)
}

func (imm *FloatImmediate) Definition() interface{} {
	return imm.Value
}

func (imm *FloatImmediate) Copy(pos parseutil.StartEndPos) Value {
	return &FloatImmediate{
		StartEndPos: pos,
		Value:       imm.Value,
	}
}

func replaceValue(slot *Value, ins Instruction, oldVal Value, newVal Value) int {
	if *slot != oldVal {
		return 0
	}
	*slot = newVal
	newVal.SetParentInstruction(ins)
	return 1
}
