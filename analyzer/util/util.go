package util

import (
	"sync"

	"github.com/pattyshack/fasttier/ast"
)

type Pass[T any] interface {
	Process(T)
}

func Process[T any](
	node T,
	passes [][]Pass[T], // sequence of parallelizable passes
	shouldEarlyExit func() bool, // optional
) {
	for _, parallelPasses := range passes {
		wg := sync.WaitGroup{}
		wg.Add(len(parallelPasses))
		for _, pass := range parallelPasses {
			go func(pass Pass[T]) {
				pass.Process(node)
				wg.Done()
			}(pass)
		}

		wg.Wait()

		if shouldEarlyExit != nil && shouldEarlyExit() {
			return
		}
	}
}

func ParallelProcess[Node ast.Node](
	list []Node,
	process func(Node),
) {
	wg := sync.WaitGroup{}
	wg.Add(len(list))
	for _, item := range list {
		go func(item Node) {
			process(item)
			wg.Done()
		}(item)
	}
	wg.Wait()
}

type DataFlowWorkSet struct {
	queue []*ast.Block
	set   map[*ast.Block]struct{}
}

func NewDataflowWorkSet() *DataFlowWorkSet {
	return &DataFlowWorkSet{
		set: map[*ast.Block]struct{}{},
	}
}

func (set *DataFlowWorkSet) IsEmpty() bool {
	return len(set.queue) == 0
}

func (set *DataFlowWorkSet) Push(block *ast.Block) {
	_, ok := set.set[block]
	if ok {
		return
	}
	set.set[block] = struct{}{}
	set.queue = append(set.queue, block)
}

func (set *DataFlowWorkSet) Pop() *ast.Block {
	head := set.queue[0]
	set.queue = set.queue[1:]
	delete(set.set, head)
	return head
}

// Returns the reachable blocks in reverse post order (every block appears
// before its children, except along back edges).
func ReversePostOrder(funcDef *ast.FunctionDefinition) []*ast.Block {
	type frame struct {
		block *ast.Block
		next  int
	}

	visited := make(map[*ast.Block]struct{}, len(funcDef.Blocks))
	postOrder := make([]*ast.Block, 0, len(funcDef.Blocks))

	entry := funcDef.Blocks[0]
	visited[entry] = struct{}{}
	stack := []*frame{{block: entry}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.block.Children) {
			child := top.block.Children[top.next]
			top.next++

			_, ok := visited[child]
			if !ok {
				visited[child] = struct{}{}
				stack = append(stack, &frame{block: child})
			}
			continue
		}

		stack = stack[:len(stack)-1]
		postOrder = append(postOrder, top.block)
	}

	for i, j := 0, len(postOrder)-1; i < j; i, j = i+1, j-1 {
		postOrder[i], postOrder[j] = postOrder[j], postOrder[i]
	}
	return postOrder
}
