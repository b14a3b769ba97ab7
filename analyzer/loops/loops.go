package loops

import (
	"sort"

	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

// A natural loop.  Loops sharing the same header are merged into a single
// loop.
type Loop struct {
	Header *ast.Block

	// Sources of the back edges.
	Latches []*ast.Block

	Blocks map[*ast.Block]struct{}

	Parent   *Loop
	Children []*Loop

	// 1 for outermost loops.
	Depth int

	// Statically estimated number of iterations (1 when unknown).
	TripCount int64
}

func (loop *Loop) Contains(block *ast.Block) bool {
	_, ok := loop.Blocks[block]
	return ok
}

// Blocks inside the loop with at least one child outside of the loop,
// ordered by reverse post order.
func (loop *Loop) exitingBlocks(order []*ast.Block) []*ast.Block {
	result := []*ast.Block{}
	for _, block := range order {
		if !loop.Contains(block) {
			continue
		}

		for _, child := range block.Children {
			if !loop.Contains(child) {
				result = append(result, block)
				break
			}
		}
	}
	return result
}

// Loop nesting information of a single function definition.
type Forest struct {
	FuncDef *ast.FunctionDefinition

	// Outermost loops, ordered by header position in reverse post order.
	Roots []*Loop

	// All loops, ordered by header position in reverse post order.
	Loops []*Loop

	order []*ast.Block
	index map[*ast.Block]int

	// immediate dominator index.  The entry block is its own dominator.
	idoms []int

	innermost map[*ast.Block]*Loop
}

func Analyze(funcDef *ast.FunctionDefinition) *Forest {
	forest := &Forest{
		FuncDef:   funcDef,
		innermost: map[*ast.Block]*Loop{},
	}

	if len(funcDef.Blocks) == 0 {
		return forest
	}

	forest.order = util.ReversePostOrder(funcDef)
	forest.index = make(map[*ast.Block]int, len(forest.order))
	for idx, block := range forest.order {
		forest.index[block] = idx
	}

	forest.computeDominators()
	forest.findLoops()
	forest.buildNesting()

	for _, loop := range forest.Loops {
		loop.TripCount = forest.estimateTripCount(loop)
	}

	return forest
}

// Returns the innermost loop containing the block, or nil if the block is not
// part of any loop.
func (forest *Forest) LoopFor(block *ast.Block) *Loop {
	return forest.innermost[block]
}

// Returns the nesting depth of the innermost loop containing the block (0 if
// the block is not part of any loop).
func (forest *Forest) Depth(block *ast.Block) int {
	loop := forest.innermost[block]
	if loop == nil {
		return 0
	}
	return loop.Depth
}

func (forest *Forest) IsReachable(block *ast.Block) bool {
	_, ok := forest.index[block]
	return ok
}

// Returns true if every path from the entry block to b goes through a.
// Unreachable blocks are not dominated by anything.
func (forest *Forest) Dominates(a *ast.Block, b *ast.Block) bool {
	aIdx, ok := forest.index[a]
	if !ok {
		return false
	}

	bIdx, ok := forest.index[b]
	if !ok {
		return false
	}

	for {
		if bIdx == aIdx {
			return true
		}

		if bIdx == 0 {
			return false
		}

		bIdx = forest.idoms[bIdx]
	}
}

// Iterative dominator computation over the reverse post order (Cooper, Harvey
// and Kennedy).
func (forest *Forest) computeDominators() {
	idoms := make([]int, len(forest.order))
	for idx := range idoms {
		idoms[idx] = -1
	}
	idoms[0] = 0

	intersect := func(a int, b int) int {
		for a != b {
			for a > b {
				a = idoms[a]
			}
			for b > a {
				b = idoms[b]
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for idx := 1; idx < len(forest.order); idx++ {
			newIdom := -1
			for _, parent := range forest.order[idx].Parents {
				parentIdx, ok := forest.index[parent]
				if !ok || idoms[parentIdx] == -1 {
					continue
				}

				if newIdom == -1 {
					newIdom = parentIdx
				} else {
					newIdom = intersect(parentIdx, newIdom)
				}
			}

			if newIdom != idoms[idx] {
				idoms[idx] = newIdom
				changed = true
			}
		}
	}

	forest.idoms = idoms
}

func (forest *Forest) findLoops() {
	headers := map[*ast.Block]*Loop{}
	for _, block := range forest.order {
		for _, child := range block.Children {
			if !forest.Dominates(child, block) {
				continue
			}

			loop, ok := headers[child]
			if !ok {
				loop = &Loop{
					Header: child,
					Blocks: map[*ast.Block]struct{}{child: {}},
				}
				headers[child] = loop
			}

			loop.Latches = append(loop.Latches, block)

			// Walk backward from the latch until the header is reached.
			workSet := util.NewDataflowWorkSet()
			workSet.Push(block)
			for !workSet.IsEmpty() {
				current := workSet.Pop()
				if loop.Contains(current) || !forest.IsReachable(current) {
					continue
				}

				loop.Blocks[current] = struct{}{}
				for _, parent := range current.Parents {
					workSet.Push(parent)
				}
			}
		}
	}

	for _, loop := range headers {
		forest.Loops = append(forest.Loops, loop)
	}

	sort.Slice(
		forest.Loops,
		func(i int, j int) bool {
			return forest.index[forest.Loops[i].Header] <
				forest.index[forest.Loops[j].Header]
		})
}

func (forest *Forest) buildNesting() {
	for _, loop := range forest.Loops {
		for _, other := range forest.Loops {
			if other == loop || !other.Contains(loop.Header) {
				continue
			}

			// Natural loops are either disjoint or nested.  The smallest
			// enclosing loop is the immediate parent.
			if loop.Parent == nil || len(other.Blocks) < len(loop.Parent.Blocks) {
				loop.Parent = other
			}
		}
	}

	for _, loop := range forest.Loops {
		if loop.Parent == nil {
			forest.Roots = append(forest.Roots, loop)
		} else {
			loop.Parent.Children = append(loop.Parent.Children, loop)
		}
	}

	var setDepth func(*Loop, int)
	setDepth = func(loop *Loop, depth int) {
		loop.Depth = depth
		for _, child := range loop.Children {
			setDepth(child, depth+1)
		}
	}

	for _, root := range forest.Roots {
		setDepth(root, 1)
	}

	for _, loop := range forest.Loops {
		for block := range loop.Blocks {
			current, ok := forest.innermost[block]
			if !ok || loop.Depth > current.Depth {
				forest.innermost[block] = loop
			}
		}
	}
}
