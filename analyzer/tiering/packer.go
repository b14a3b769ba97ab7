package tiering

import (
	"math"
	"sort"
)

type Decision string

const (
	Selected       = Decision("selected")
	Forced         = Decision("forced")
	BelowThreshold = Decision("below-threshold")
	OverCapacity   = Decision("over-capacity")
)

func (decision Decision) IsSelected() bool {
	return decision == Selected || decision == Forced
}

// Fast tier usage accumulator.  Each admission returns a new budget; the
// receiver is never modified.
type CapacityBudget struct {
	Capacity uint64
	Used     uint64
}

func NewCapacityBudget(capacity uint64) CapacityBudget {
	return CapacityBudget{Capacity: capacity}
}

func (budget CapacityBudget) Fits(size uint64) bool {
	return budget.Used <= budget.Capacity && size <= budget.Capacity-budget.Used
}

// Returns the budget after admitting size bytes.  Forced admissions may push
// Used beyond Capacity.  Used saturates instead of wrapping around.
func (budget CapacityBudget) Admit(size uint64) CapacityBudget {
	if size > math.MaxUint64-budget.Used {
		budget.Used = math.MaxUint64
	} else {
		budget.Used += size
	}
	return budget
}

type SiteDecision struct {
	Site     *AllocationSite
	Decision Decision

	// Budget after the site was considered.
	Budget CapacityBudget
}

type Selection struct {
	// Every site in priority order.
	Decisions []SiteDecision

	// Selected (and forced) sites in priority order.
	Selected []*AllocationSite

	Budget CapacityBudget
}

func (selection *Selection) IsSelected(site *AllocationSite) bool {
	for _, selected := range selection.Selected {
		if selected == site {
			return true
		}
	}
	return false
}

// Returns the sites in priority order: forced sites first, then by descending
// score.  Ties keep program order.
func prioritize(sites []*AllocationSite) []*AllocationSite {
	ordered := make([]*AllocationSite, len(sites))
	copy(ordered, sites)

	sort.SliceStable(
		ordered,
		func(i int, j int) bool {
			if ordered[i].ForcedHot != ordered[j].ForcedHot {
				return ordered[i].ForcedHot
			}
			return ordered[i].Score > ordered[j].Score
		})

	return ordered
}

// Greedily packs the program's allocation sites into the fast tier.  The
// packer does not modify the summary; packing the same summary twice yields
// the same selection.
func Pack(program *ProgramSummary, config Config) *Selection {
	return PackSites(program.Sites(), NewCapacityBudget(config.Capacity), config)
}

// Greedily packs sites into the given budget.  Forced sites are always
// selected, even when they overflow the budget.
func PackSites(
	sites []*AllocationSite,
	budget CapacityBudget,
	config Config,
) *Selection {
	selection := &Selection{}
	for _, site := range prioritize(sites) {
		var decision Decision
		switch {
		case site.ForcedHot:
			decision = Forced
			budget = budget.Admit(site.Size)
		case site.Score < config.Threshold:
			decision = BelowThreshold
		case !budget.Fits(site.Size):
			decision = OverCapacity
		default:
			decision = Selected
			budget = budget.Admit(site.Size)
		}

		if decision.IsSelected() {
			selection.Selected = append(selection.Selected, site)
		}

		selection.Decisions = append(
			selection.Decisions,
			SiteDecision{
				Site:     site,
				Decision: decision,
				Budget:   budget,
			})
	}

	selection.Budget = budget
	return selection
}
