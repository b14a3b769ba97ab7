package tiering

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchDeallocations(t *testing.T) {
	summary := analyzeSource(t, `
define func @f(%c) {
  %a = call @malloc(64)
  %b = call @malloc(64)
  %d = call @malloc(64)
  call @malloc(64)
  %derived = offset %d, 8
  jeq :other, %c, 0
  call @free(%a)
  ret
:other
  call @free(%a)
  call @free(%derived)
  call @free(%a, %b)
  ret
}
`, "f")

	require.Len(t, summary.Sites, 4)
	require.Len(t, summary.Frees, 4)

	a := summary.Sites[0]
	require.False(t, a.Unmatched)
	require.Equal(t, summary.Frees[:2], a.Frees)

	// a two argument free is not a deallocation of %b
	b := summary.Sites[1]
	require.True(t, b.Unmatched)
	require.Empty(t, b.Frees)

	// frees are matched by identity, not by aliasing
	d := summary.Sites[2]
	require.True(t, d.Unmatched)
	require.Empty(t, d.Frees)

	discarded := summary.Sites[3]
	require.True(t, discarded.Unmatched)
}

func TestMatchAppliesPenaltyOnce(t *testing.T) {
	summary := analyzeSource(t, `
define func @f() {
  %a = call @malloc(0)
  ret
}
`, "f")

	config := DefaultConfig()
	config.EscapePenalty = -3

	site := summary.Sites[0]
	site.Score = 1

	MatchDeallocations(summary, config)
	require.True(t, site.Unmatched)
	require.InDelta(t, -2.0, site.Score, scoreDelta)
}
