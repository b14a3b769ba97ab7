package tiering

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/pattyshack/fasttier/analyzer/loops"
	"github.com/pattyshack/fasttier/ast"
)

type accessKind int

const (
	ignoredAccess = accessKind(iota)

	// load whose address is derived from the allocation
	readAccess

	// store whose address is derived from the allocation
	writeAccess

	// the allocation (or a derived pointer) is passed to an untracked call
	callAccess

	// copy, offset, cast or phi.  The result is another pointer derived from
	// the allocation.
	recomputeAccess
)

type accessPatternScorer struct {
	config Config
	index  *AnnotationIndex
	loops  *loops.Forest

	parallelFunction bool

	// Loops with a !parallel_accesses block whose innermost loop is the loop
	// itself.
	parallelLoops map[*loops.Loop]struct{}
}

func newAccessPatternScorer(
	funcDef *ast.FunctionDefinition,
	forest *loops.Forest,
	parallelLoops map[*loops.Loop]struct{},
	index *AnnotationIndex,
	config Config,
) *accessPatternScorer {
	return &accessPatternScorer{
		config:           config,
		index:            index,
		loops:            forest,
		parallelFunction: index.IsParallelFunction(funcDef),
		parallelLoops:    parallelLoops,
	}
}

// Computes the site's score from its size, profile, parallelism and access
// pattern signals.  The contributions are summed in ascending order, so the
// result does not depend on the def-use traversal order.
func (scorer *accessPatternScorer) Score(site *AllocationSite) float64 {
	contributions := []float64{}

	if site.Size > 0 {
		contributions = append(
			contributions,
			float64(site.Size)/float64(KiB)*scorer.config.SizeScale)
	}

	count, ok := scorer.index.AccessCount(site.Call)
	if ok {
		contributions = append(
			contributions,
			math.Sqrt(float64(count))/scorer.config.ProfileDivisor)
	}

	if scorer.parallelFunction {
		contributions = append(contributions, scorer.config.ParallelFunctionBonus)
	}

	if site.Call.Dest != nil {
		contributions = append(
			contributions,
			scorer.accessContributions(site.Call.Dest)...)
	}

	if len(contributions) == 0 {
		return 0
	}

	sort.Float64s(contributions)
	return floats.Sum(contributions)
}

// Depth first traversal of the def-use graph rooted at the allocation's
// result.  Each definition is visited at most once, and each instruction
// contributes at most once.
func (scorer *accessPatternScorer) accessContributions(
	root *ast.VariableDefinition,
) []float64 {
	result := []float64{}

	visited := map[*ast.VariableDefinition]struct{}{root: {}}
	scored := map[ast.Instruction]struct{}{}
	stack := []*ast.VariableDefinition{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, user := range current.Users() {
			kind := scorer.classify(user, current)
			switch kind {
			case ignoredAccess:
				continue
			case recomputeAccess:
				dest := user.Destination()
				if dest == nil {
					continue
				}

				_, ok := visited[dest]
				if !ok {
					visited[dest] = struct{}{}
					stack = append(stack, dest)
				}
				continue
			}

			_, ok := scored[user]
			if ok {
				continue
			}
			scored[user] = struct{}{}

			switch kind {
			case readAccess:
				result = append(result, scorer.accessScore(user, false))
			case writeAccess:
				result = append(result, scorer.accessScore(user, true))
			case callAccess:
				result = append(result, scorer.config.CallBonus)
			}
		}
	}

	return result
}

func (scorer *accessPatternScorer) classify(
	user ast.Instruction,
	current *ast.VariableDefinition,
) accessKind {
	switch inst := user.(type) {
	case *ast.LoadOperation:
		if refersTo(inst.Address, current) {
			return readAccess
		}
	case *ast.StoreOperation:
		// Storing the pointer itself as data is not an access to the
		// allocation.
		if refersTo(inst.Address, current) {
			return writeAccess
		}
	case *ast.FuncCall:
		callee, ok := inst.CalleeLabel()
		if ok && scorer.config.isTrackedOperation(callee) {
			return ignoredAccess
		}
		return callAccess
	case *ast.CopyOperation, *ast.AddressOperation, *ast.Phi:
		return recomputeAccess
	}

	return ignoredAccess
}

// base * (depth + 1) * sqrt(trip count) + parallel loop bonus, where depth and
// trip count are taken from the innermost loop containing the instruction.
func (scorer *accessPatternScorer) accessScore(
	inst ast.Instruction,
	isWrite bool,
) float64 {
	base := scorer.config.ReadWeight
	if isWrite {
		base = scorer.config.WriteWeight
	}

	depth := 0
	tripCount := int64(1)
	parallelBonus := 0.0

	loop := scorer.loops.LoopFor(inst.ParentBlock())
	if loop != nil {
		depth = loop.Depth
		tripCount = loop.TripCount
		_, ok := scorer.parallelLoops[loop]
		if ok {
			parallelBonus = scorer.config.ParallelLoopBonus
		}
	}

	return base*float64(depth+1)*math.Sqrt(float64(tripCount)) + parallelBonus
}

func refersTo(value ast.Value, def *ast.VariableDefinition) bool {
	ref, ok := value.(*ast.VariableReference)
	return ok && ref.UseDef == def
}
