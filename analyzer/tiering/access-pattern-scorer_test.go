package tiering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const scoreDelta = 1e-9

func TestScoreLoopAccesses(t *testing.T) {
	summary := analyzeSource(t, `
define func @kernel() {
  %buf = call @malloc(8192)
  %i = 0
:loop
  %p = offset %buf, %i
  store %p, %i
  %v = load %p
  %i = add %i, 1
  jlt :loop, %i, 100
  call @free(%buf)
  ret %v
}
`, "kernel")

	require.Len(t, summary.Sites, 1)
	site := summary.Sites[0]

	require.Equal(t, uint64(8192), site.Size)
	require.False(t, site.ForcedHot)
	require.False(t, site.Unmatched)
	require.Len(t, site.Frees, 1)

	// write 8 * 2 * 10 + read 5 * 2 * 10 + size 8 * 0.1
	require.InDelta(t, 260.8, site.Score, scoreDelta)
}

func TestScoreUnusedAllocation(t *testing.T) {
	summary := analyzeSource(t, `
define func @f(%n) {
  %x = call @malloc(%n)
  ret
}
`, "f")

	require.Len(t, summary.Sites, 1)
	site := summary.Sites[0]

	require.Equal(t, uint64(0), site.Size)
	require.True(t, site.Unmatched)
	require.Empty(t, site.Frees)
	require.InDelta(t, -10.0, site.Score, scoreDelta)
}

func TestScoreAnnotations(t *testing.T) {
	summary := analyzeSource(t, `
define func @f() !parallel {
  %buf = call @malloc(1024) !access_count(400)
  %i = 0
:loop !parallel_accesses
  %v = load %buf
  %i = add %i, 1
  jlt :loop, %i, 4
  call @free(%buf)
  ret %v
}
`, "f")

	require.Len(t, summary.Sites, 1)

	// size 0.1 + profile sqrt(400) / 10 + parallel function 20 +
	// read (5 * 2 * sqrt(4) + 10)
	require.InDelta(t, 52.1, summary.Sites[0].Score, scoreDelta)
}

func TestParallelAccessesOnLoopBody(t *testing.T) {
	const loopTemplate = `
define func @f() {
  %buf = call @malloc(0)
  %i = 0
:loop
  %v = load %buf
  jmp :latch
:latch{annotation}
  %i = add %i, 1
  jlt :loop, %i, 4
  call @free(%buf)
  ret %v
}
`

	plain := analyzeSource(
		t,
		strings.ReplaceAll(loopTemplate, "{annotation}", ""),
		"f")
	annotated := analyzeSource(
		t,
		strings.ReplaceAll(loopTemplate, "{annotation}", " !parallel_accesses"),
		"f")

	require.Len(t, plain.Sites, 1)
	require.Len(t, annotated.Sites, 1)
	require.Empty(t, annotated.IgnoredAnnotations)

	// the latch's innermost loop is the loop headed by :loop
	require.InDelta(
		t,
		DefaultConfig().ParallelLoopBonus,
		annotated.Sites[0].Score-plain.Sites[0].Score,
		scoreDelta)
}

func TestParallelAccessesOutsideLoopIsIgnored(t *testing.T) {
	summary := analyzeSource(t, `
define func @f() {
  %buf = call @malloc(0)
  jmp :tail
:tail !parallel_accesses
  %v = load %buf
  call @free(%buf)
  ret %v
}
`, "f")

	require.Len(t, summary.Sites, 1)
	require.Len(t, summary.IgnoredAnnotations, 1)
	require.Equal(t, "tail", summary.IgnoredAnnotations[0].Label)

	// read 5 * 1 * 1, no loop bonus
	require.InDelta(t, 5.0, summary.Sites[0].Score, scoreDelta)
}

func TestScoreOutsideLoop(t *testing.T) {
	summary := analyzeSource(t, `
define func @f() {
  %buf = call @malloc(0)
  store %buf, 1
  %v = load %buf
  call @free(%buf)
  ret %v
}
`, "f")

	require.Len(t, summary.Sites, 1)

	// write 8 * 1 * 1 + read 5 * 1 * 1
	require.InDelta(t, 13.0, summary.Sites[0].Score, scoreDelta)
}

func TestScoreCalls(t *testing.T) {
	summary := analyzeSource(t, `
define func @f(%dst) {
  %buf = call @malloc(0)
  %q = cast %buf
  call @use(%buf)
  call @use2(%buf, %q)
  store %dst, %buf
  %copy = call @malloc(%buf)
  call @free(%buf)
  ret
}
`, "f")

	require.Len(t, summary.Sites, 2)

	// two untracked calls, each counted once.  Storing the pointer as data
	// and passing it to tracked operations contribute nothing.
	require.InDelta(t, 10.0, summary.Sites[0].Score, scoreDelta)
	require.False(t, summary.Sites[0].Unmatched)

	require.True(t, summary.Sites[1].Unmatched)
	require.InDelta(t, -10.0, summary.Sites[1].Score, scoreDelta)
}

func TestScoreCyclicPointerChain(t *testing.T) {
	summary := analyzeSource(t, `
define func @walk(%n) {
  %p = call @malloc(4096)
  %q = %p
:loop
  %v = load %q
  %q = offset %q, 8
  jlt :loop, %v, %n
  call @free(%p)
  ret
}
`, "walk")

	require.Len(t, summary.Sites, 1)

	// size 0.4 + read with unknown trip count 5 * 2 * 1
	require.InDelta(t, 10.4, summary.Sites[0].Score, scoreDelta)
}

func TestScoreNestedLoops(t *testing.T) {
	summary := analyzeSource(t, `
define func @f() {
  %buf = call @malloc(0)
  %i = 0
:outer
  %j = 0
:inner
  store %buf, %j
  %j = add %j, 1
  jlt :inner, %j, 16
  %i = add %i, 1
  jlt :outer, %i, 4
  call @free(%buf)
  ret
}
`, "f")

	require.Len(t, summary.Sites, 1)

	// write in the inner loop: 8 * (2 + 1) * sqrt(16)
	require.InDelta(t, 96.0, summary.Sites[0].Score, scoreDelta)
}

func TestScoreIsDeterministic(t *testing.T) {
	source := `
define func @f() !parallel {
  %buf = call @malloc(3000) !access_count(17)
  %a = offset %buf, 8
  %b = offset %buf, 16
  %c = cast %a
  %i = 0
:loop !parallel_accesses
  store %a, 1
  store %b, 2
  %x = load %c
  %y = load %buf
  call @use(%b)
  %i = add %i, 1
  jlt :loop, %i, 7
  call @free(%buf)
  ret
}
`

	expected := analyzeSource(t, source, "f").Sites[0].Score
	for i := 0; i < 20; i++ {
		require.Equal(t, expected, analyzeSource(t, source, "f").Sites[0].Score)
	}
}
