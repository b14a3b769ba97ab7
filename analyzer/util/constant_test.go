package util_test

import (
	"math"
	"testing"

	"github.com/pattyshack/gt/parseutil"
	"github.com/stretchr/testify/require"

	"github.com/pattyshack/fasttier/analyzer"
	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/parser"
)

func TestConstantInt(t *testing.T) {
	emitter := &parseutil.Emitter{}
	sources := parser.ParseSource(
		"test.ir",
		[]byte(`
define func @f(%n) {
  %a = 8
  %b = shl %a, 10
  %c = mul %b, 2
  %d = add %c, %n
  %e = div %c, 2
  %f = xor %a, 3
  %g = sub %f, 20
  %h = mul 4611686018427387905, 4
  %i = add 9223372036854775807, 1
  %j = shl 3, 62
  %k = sub -9223372036854775807, 2
  ret %g
}
`),
		emitter)
	analyzer.Analyze(sources, emitter)
	require.False(t, emitter.HasErrors(), "%v", emitter.Errors())

	def := sources[0].(*ast.FunctionDefinition)
	dests := map[string]*ast.VariableDefinition{}
	for _, inst := range def.Blocks[0].Instructions {
		dest := inst.Destination()
		if dest != nil {
			dests[dest.Name] = dest
		}
	}

	valueOf := func(name string) ast.Value {
		return dests[name].NewRef(parseutil.StartEndPos{})
	}

	tests := []struct {
		name       string
		value      ast.Value
		expected   int64
		isConstant bool
	}{
		{"immediate", &ast.IntImmediate{Value: -3}, -3, true},
		{"copy", valueOf("a"), 8, true},
		{"shl", valueOf("b"), 8192, true},
		{"mul", valueOf("c"), 16384, true},
		{"parameter operand", valueOf("d"), 0, false},
		{"unsupported operation", valueOf("e"), 0, false},
		{"xor", valueOf("f"), 11, true},
		{"sub", valueOf("g"), -9, true},
		{"mul overflow", valueOf("h"), 0, false},
		{"add overflow", valueOf("i"), 0, false},
		{"shl overflow", valueOf("j"), 0, false},
		{"sub overflow", valueOf("k"), 0, false},
		{"parameter", def.Parameters[0].NewRef(parseutil.StartEndPos{}), 0, false},
		{"float", &ast.FloatImmediate{Value: 1.5}, 0, false},
		{"unbound reference", &ast.VariableReference{Name: "x"}, 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			value, ok := util.ConstantInt(test.value)
			require.Equal(t, test.isConstant, ok)
			require.Equal(t, test.expected, value)
		})
	}
}

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func(int64, int64) (int64, bool)
		a        int64
		b        int64
		expected int64
		ok       bool
	}{
		{"add", util.AddInt64, 40, 2, 42, true},
		{"add overflow", util.AddInt64, math.MaxInt64, 1, 0, false},
		{"add underflow", util.AddInt64, math.MinInt64, -1, 0, false},
		{"sub", util.SubInt64, 40, 50, -10, true},
		{"sub overflow", util.SubInt64, math.MaxInt64, -1, 0, false},
		{"sub underflow", util.SubInt64, math.MinInt64, 1, 0, false},
		{"mul", util.MulInt64, -6, 7, -42, true},
		{"mul zero", util.MulInt64, math.MinInt64, 0, 0, true},
		{"mul wraps", util.MulInt64, 0x4000000000000001, 4, 0, false},
		{"mul min by -1", util.MulInt64, math.MinInt64, -1, 0, false},
		{"mul -1 by min", util.MulInt64, -1, math.MinInt64, 0, false},
		{"mul max", util.MulInt64, math.MaxInt64, 1, math.MaxInt64, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, ok := test.op(test.a, test.b)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expected, result)
		})
	}
}
