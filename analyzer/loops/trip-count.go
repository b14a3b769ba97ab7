package loops

import (
	"math"

	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

const (
	unknownTripCount = 1

	maxCopyChain = 16
)

type relation int

const (
	lessThan = relation(iota)
	lessEqual
	greaterThan
	greaterEqual
	equal
	notEqual
)

func (rel relation) negate() relation {
	switch rel {
	case lessThan:
		return greaterEqual
	case lessEqual:
		return greaterThan
	case greaterThan:
		return lessEqual
	case greaterEqual:
		return lessThan
	case equal:
		return notEqual
	case notEqual:
		return equal
	}
	panic("should never happen")
}

// Returns the relation for (src2 <rel> src1).
func (rel relation) swap() relation {
	switch rel {
	case lessThan:
		return greaterThan
	case lessEqual:
		return greaterEqual
	case greaterThan:
		return lessThan
	case greaterEqual:
		return lessEqual
	}
	return rel
}

func jumpRelation(kind ast.ConditionalJumpKind) (relation, bool) {
	switch kind {
	case ast.Jeq:
		return equal, true
	case ast.Jne:
		return notEqual, true
	case ast.Jlt:
		return lessThan, true
	case ast.Jge:
		return greaterEqual, true
	}
	return 0, false
}

// An affine induction variable: value(k) = Start + k * Step, where k is the
// number of back edges taken so far.
type induction struct {
	Start int64
	Step  int64
}

// The loop's trip count is the number of taken back edges plus one.  The
// back edge count is only resolvable when the loop has a single exiting
// block, the exiting block is executed on every iteration, and the exit
// condition compares an induction variable against a constant.
func (forest *Forest) estimateTripCount(loop *Loop) int64 {
	exiting := loop.exitingBlocks(forest.order)
	if len(exiting) != 1 {
		return unknownTripCount
	}

	block := exiting[0]
	for _, latch := range loop.Latches {
		if !forest.Dominates(block, latch) {
			return unknownTripCount
		}
	}

	jump, ok := block.Instructions[len(block.Instructions)-1].(*ast.ConditionalJump)
	if !ok || len(block.Children) != 2 {
		return unknownTripCount
	}

	rel, ok := jumpRelation(jump.Kind)
	if !ok {
		return unknownTripCount
	}

	branchInLoop := loop.Contains(block.Children[0])
	fallthroughInLoop := loop.Contains(block.Children[1])
	if branchInLoop == fallthroughInLoop {
		return unknownTripCount
	}

	// Normalize the condition into "continue while (value <rel> bound)".
	if !branchInLoop {
		rel = rel.negate()
	}

	value, bound := jump.Src1, jump.Src2
	boundVal, ok := util.ConstantInt(bound)
	if !ok {
		value, bound = jump.Src2, jump.Src1
		rel = rel.swap()

		boundVal, ok = util.ConstantInt(bound)
		if !ok {
			return unknownTripCount
		}
	}

	iv, ok := loop.inductionValue(value)
	if !ok {
		return unknownTripCount
	}

	count, ok := backEdgeCount(iv, rel, boundVal)
	if !ok || count == math.MaxInt64 {
		return unknownTripCount
	}

	return count + 1
}

// Matches either the header phi (pre-increment test) or the header phi
// plus a constant (post-increment test).
func (loop *Loop) inductionValue(value ast.Value) (induction, bool) {
	ref, ok := value.(*ast.VariableReference)
	if !ok || ref.UseDef == nil {
		return induction{}, false
	}

	def := resolveCopies(ref.UseDef)
	phi, ok := def.ParentInstruction.(*ast.Phi)
	if ok {
		return loop.headerInduction(phi)
	}

	base, offset, ok := affineOffset(def.ParentInstruction)
	if !ok {
		return induction{}, false
	}

	phi, ok = resolveCopies(base).ParentInstruction.(*ast.Phi)
	if !ok {
		return induction{}, false
	}

	iv, ok := loop.headerInduction(phi)
	if !ok {
		return induction{}, false
	}

	start, ok := util.AddInt64(iv.Start, offset)
	if !ok {
		return induction{}, false
	}

	iv.Start = start
	return iv, true
}

func (loop *Loop) headerInduction(phi *ast.Phi) (induction, bool) {
	if phi.ParentBlock() != loop.Header {
		return induction{}, false
	}

	hasStart := false
	hasStep := false
	iv := induction{}
	for parent, src := range phi.Srcs {
		if !loop.Contains(parent) {
			start, ok := util.ConstantInt(src)
			if !ok || (hasStart && start != iv.Start) {
				return induction{}, false
			}

			hasStart = true
			iv.Start = start
			continue
		}

		ref, ok := src.(*ast.VariableReference)
		if !ok || ref.UseDef == nil {
			return induction{}, false
		}

		base, step, ok := affineOffset(resolveCopies(ref.UseDef).ParentInstruction)
		if !ok || resolveCopies(base) != phi.Dest || (hasStep && step != iv.Step) {
			return induction{}, false
		}

		hasStep = true
		iv.Step = step
	}

	return iv, hasStart && hasStep
}

// Follows "%d = %src" copies back to the copied definition.
func resolveCopies(def *ast.VariableDefinition) *ast.VariableDefinition {
	for depth := 0; depth < maxCopyChain; depth++ {
		copyOp, ok := def.ParentInstruction.(*ast.CopyOperation)
		if !ok {
			return def
		}

		ref, ok := copyOp.Src.(*ast.VariableReference)
		if !ok || ref.UseDef == nil {
			return def
		}

		def = ref.UseDef
	}
	return def
}

// Matches "%d = add %base, c", "%d = add c, %base" and "%d = sub %base, c".
func affineOffset(
	inst ast.Instruction,
) (
	*ast.VariableDefinition,
	int64,
	bool,
) {
	binary, ok := inst.(*ast.BinaryOperation)
	if !ok {
		return nil, 0, false
	}

	switch binary.Kind {
	case ast.Add:
		ref, ok := binary.Src1.(*ast.VariableReference)
		offset, isConst := util.ConstantInt(binary.Src2)
		if !ok || !isConst {
			ref, ok = binary.Src2.(*ast.VariableReference)
			offset, isConst = util.ConstantInt(binary.Src1)
		}

		if !ok || !isConst || ref.UseDef == nil {
			return nil, 0, false
		}
		return ref.UseDef, offset, true
	case ast.Sub:
		ref, ok := binary.Src1.(*ast.VariableReference)
		offset, isConst := util.ConstantInt(binary.Src2)
		if !ok || !isConst || ref.UseDef == nil || offset == math.MinInt64 {
			return nil, 0, false
		}
		return ref.UseDef, -offset, true
	}

	return nil, 0, false
}

// Returns the smallest k >= 0 such that (Start + k * Step <rel> bound) does
// not hold.
func backEdgeCount(iv induction, rel relation, bound int64) (int64, bool) {
	switch rel {
	case lessEqual:
		if bound == math.MaxInt64 {
			return 0, false
		}
		return backEdgeCount(iv, lessThan, bound+1)
	case greaterEqual:
		if bound == math.MinInt64 {
			return 0, false
		}
		return backEdgeCount(iv, greaterThan, bound-1)
	case lessThan:
		if iv.Start >= bound {
			return 0, true
		}
		if iv.Step <= 0 {
			return 0, false
		}

		distance, ok := util.SubInt64(bound, iv.Start)
		if !ok {
			return 0, false
		}
		return ceilDiv(distance, iv.Step), true
	case greaterThan:
		if iv.Start <= bound {
			return 0, true
		}
		if iv.Step >= 0 || iv.Step == math.MinInt64 {
			return 0, false
		}

		distance, ok := util.SubInt64(iv.Start, bound)
		if !ok {
			return 0, false
		}
		return ceilDiv(distance, -iv.Step), true
	case equal:
		if iv.Start != bound {
			return 0, true
		}
		if iv.Step == 0 {
			return 0, false
		}
		return 1, true
	case notEqual:
		if iv.Start == bound {
			return 0, true
		}
		if iv.Step == 0 {
			return 0, false
		}

		distance, ok := util.SubInt64(bound, iv.Start)
		if !ok || distance%iv.Step != 0 || distance/iv.Step <= 0 {
			return 0, false
		}
		return distance / iv.Step, true
	}

	return 0, false
}

// a and b must be positive.
func ceilDiv(a int64, b int64) int64 {
	result := a / b
	if a%b != 0 {
		result++
	}
	return result
}
