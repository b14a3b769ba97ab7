package util

import (
	"math"

	"github.com/pattyshack/fasttier/ast"
)

const (
	maxConstantFoldingDepth = 16
)

// Folds the value into an integer constant.  Integer immediates, copies of
// constants, and add / sub / mul / shl / and / or / xor of constants are
// folded.  Arithmetic that overflows int64 is not constant.  Everything else (including phis and function parameters) is not
// constant.
func ConstantInt(value ast.Value) (int64, bool) {
	return constantInt(value, maxConstantFoldingDepth)
}

func constantInt(value ast.Value, depth int) (int64, bool) {
	if depth == 0 {
		return 0, false
	}

	switch val := value.(type) {
	case *ast.IntImmediate:
		return val.Value, true
	case *ast.VariableReference:
		if val.UseDef == nil {
			return 0, false
		}
		return constantDefinition(val.UseDef, depth-1)
	}

	return 0, false
}

func constantDefinition(
	def *ast.VariableDefinition,
	depth int,
) (
	int64,
	bool,
) {
	switch inst := def.ParentInstruction.(type) {
	case *ast.CopyOperation:
		return constantInt(inst.Src, depth)
	case *ast.BinaryOperation:
		src1, ok := constantInt(inst.Src1, depth)
		if !ok {
			return 0, false
		}

		src2, ok := constantInt(inst.Src2, depth)
		if !ok {
			return 0, false
		}

		switch inst.Kind {
		case ast.Add:
			return AddInt64(src1, src2)
		case ast.Sub:
			return SubInt64(src1, src2)
		case ast.Mul:
			return MulInt64(src1, src2)
		case ast.Shl:
			if src2 < 0 || src2 > 63 {
				return 0, false
			}
			result := src1 << uint(src2)
			if result>>uint(src2) != src1 {
				return 0, false
			}
			return result, true
		case ast.And:
			return src1 & src2, true
		case ast.Or:
			return src1 | src2, true
		case ast.Xor:
			return src1 ^ src2, true
		}
	}

	return 0, false
}

// Checked int64 arithmetic.  The second result is false on overflow.

func AddInt64(a int64, b int64) (int64, bool) {
	result := a + b
	if (b > 0 && result < a) || (b < 0 && result > a) {
		return 0, false
	}
	return result, true
}

func SubInt64(a int64, b int64) (int64, bool) {
	result := a - b
	if (b > 0 && result > a) || (b < 0 && result < a) {
		return 0, false
	}
	return result, true
}

func MulInt64(a int64, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	result := a * b
	if (a == -1 && b == math.MinInt64) ||
		(b == -1 && a == math.MinInt64) ||
		result/b != a {
		return 0, false
	}
	return result, true
}
