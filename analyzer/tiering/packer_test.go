package tiering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func program(sites ...*AllocationSite) *ProgramSummary {
	return &ProgramSummary{
		Functions: []*FunctionSummary{
			{Sites: sites},
		},
	}
}

func decisions(selection *Selection) []Decision {
	result := []Decision{}
	for _, decision := range selection.Decisions {
		result = append(result, decision.Decision)
	}
	return result
}

func TestPackRespectsCapacity(t *testing.T) {
	first := &AllocationSite{Score: 200, Size: 600 * MiB}
	second := &AllocationSite{Score: 150, Size: 600 * MiB}

	selection := Pack(program(second, first), DefaultConfig())

	require.Equal(t, []*AllocationSite{first}, selection.Selected)
	require.Equal(t, []Decision{Selected, OverCapacity}, decisions(selection))
	require.Equal(t, 600*MiB, selection.Budget.Used)
	require.Equal(t, GiB, selection.Budget.Capacity)

	require.True(t, selection.IsSelected(first))
	require.False(t, selection.IsSelected(second))
}

func TestForcedSiteOverflowsCapacity(t *testing.T) {
	forced := &AllocationSite{Score: -10, Size: 2 * GiB, ForcedHot: true}

	selection := PackSites(
		[]*AllocationSite{forced},
		CapacityBudget{Capacity: GiB, Used: 900 * MiB},
		DefaultConfig())

	require.Equal(t, []*AllocationSite{forced}, selection.Selected)
	require.Equal(t, []Decision{Forced}, decisions(selection))
	require.Equal(t, 2*GiB+900*MiB, selection.Budget.Used)
	require.Greater(t, selection.Budget.Used, selection.Budget.Capacity)
}

func TestPackThreshold(t *testing.T) {
	atThreshold := &AllocationSite{Score: 80, Size: KiB}
	below := &AllocationSite{Score: 79.99, Size: KiB}
	negative := &AllocationSite{Score: -10}

	selection := Pack(program(negative, below, atThreshold), DefaultConfig())

	require.Equal(t, []*AllocationSite{atThreshold}, selection.Selected)
	require.Equal(
		t,
		[]Decision{Selected, BelowThreshold, BelowThreshold},
		decisions(selection))
}

func TestPackPriorityOrder(t *testing.T) {
	low := &AllocationSite{Score: 100, Size: 10}
	high := &AllocationSite{Score: 300, Size: 10}
	tieA := &AllocationSite{Score: 200, Size: 10}
	tieB := &AllocationSite{Score: 200, Size: 10}
	forced := &AllocationSite{Score: 0, Size: 10, ForcedHot: true}

	selection := Pack(program(low, tieA, high, tieB, forced), DefaultConfig())

	require.Equal(
		t,
		[]*AllocationSite{forced, high, tieA, tieB, low},
		selection.Selected)
	require.Equal(t, uint64(50), selection.Budget.Used)
}

func TestForcedSitesConsumeCapacityFirst(t *testing.T) {
	config := DefaultConfig()
	config.Capacity = 100

	forced := &AllocationSite{Score: 0, Size: 90, ForcedHot: true}
	hot := &AllocationSite{Score: 1000, Size: 20}
	small := &AllocationSite{Score: 90, Size: 10}

	selection := Pack(program(hot, small, forced), config)

	require.Equal(t, []*AllocationSite{forced, small}, selection.Selected)
	require.Equal(
		t,
		[]Decision{Forced, OverCapacity, Selected},
		decisions(selection))
	require.Equal(t, uint64(100), selection.Budget.Used)
}

func TestPackIsIdempotent(t *testing.T) {
	summary := program(
		&AllocationSite{Score: 90, Size: 400 * MiB},
		&AllocationSite{Score: 500, Size: 700 * MiB},
		&AllocationSite{Score: 85, Size: 300 * MiB},
		&AllocationSite{Score: 0, Size: 10 * MiB, ForcedHot: true},
		&AllocationSite{Score: 120, Size: 100 * MiB})

	first := Pack(summary, DefaultConfig())
	second := Pack(summary, DefaultConfig())

	require.Equal(t, first.Selected, second.Selected)
	require.Equal(t, decisions(first), decisions(second))
	require.Equal(t, first.Budget, second.Budget)
}

func TestCapacityBudget(t *testing.T) {
	budget := NewCapacityBudget(100)
	require.True(t, budget.Fits(100))
	require.False(t, budget.Fits(101))

	next := budget.Admit(60)
	require.Equal(t, uint64(0), budget.Used)
	require.Equal(t, uint64(60), next.Used)
	require.True(t, next.Fits(40))
	require.False(t, next.Fits(41))
	require.False(t, next.Fits(math.MaxUint64))

	over := next.Admit(200)
	require.False(t, over.Fits(0))

	saturated := over.Admit(math.MaxUint64)
	require.Equal(t, uint64(math.MaxUint64), saturated.Used)
}
