package analyzer

import (
	"strconv"

	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

type controlFlowGraphInitializer struct {
	*parseutil.Emitter
}

func InitializeControlFlowGraph(
	emitter *parseutil.Emitter,
) util.Pass[ast.SourceEntry] {
	return &controlFlowGraphInitializer{
		Emitter: emitter,
	}
}

func (initializer *controlFlowGraphInitializer) Process(
	entry ast.SourceEntry,
) {
	def, ok := entry.(*ast.FunctionDefinition)
	if !ok || len(def.Blocks) == 0 {
		return
	}

	labelled := map[string]*ast.Block{}
	names := map[string]struct{}{}
	for _, block := range def.Blocks {
		block.ParentFuncDef = def
		if block.Label == "" {
			continue
		}

		prev, ok := labelled[block.Label]
		if ok {
			initializer.Emit(
				block.Loc(),
				"block label (%s) previously defined at (%s)",
				block.Label,
				prev.Loc().ShortString())
			continue
		}

		labelled[block.Label] = block
		names[block.Label] = struct{}{}
	}

	for idx, block := range def.Blocks {
		canFallthrough := true
		last := block.Instructions[len(block.Instructions)-1]
		switch jump := last.(type) {
		case *ast.Jump:
			canFallthrough = false

			child, ok := labelled[jump.Label]
			if !ok {
				initializer.Emit(jump.Loc(), "undefined block label (%s)", jump.Label)
				names[jump.Label] = struct{}{}
			} else {
				block.Children = append(block.Children, child)
				child.Parents = append(child.Parents, block)
			}
		case *ast.ConditionalJump:
			child, ok := labelled[jump.Label]
			if !ok {
				initializer.Emit(jump.Loc(), "undefined block label (%s)", jump.Label)
				names[jump.Label] = struct{}{}
			} else {
				block.Children = append(block.Children, child)
				child.Parents = append(child.Parents, block)
			}
		case *ast.Terminal:
			canFallthrough = false
		}

		if !canFallthrough {
			continue
		}

		if idx == len(def.Blocks)-1 {
			initializer.Emit(
				last.Loc(),
				"last statement in function must either exit the function or "+
					"unconditionally jump to another block")
			continue
		}

		child := def.Blocks[idx+1]

		block.Children = append(block.Children, child)
		child.Parents = append(child.Parents, block)
	}

	entryBlock := def.Blocks[0]
	if len(entryBlock.Parents) > 0 {
		initializer.Emit(
			entryBlock.Loc(),
			"entry block (%s) cannot be a jump target",
			entryBlock.Label)
	}

	// Add labels for debugging purpose
	idx := 0
	for _, block := range def.Blocks {
		if block.Label != "" {
			continue
		}

		for {
			label := ":" + strconv.Itoa(idx)
			idx++

			_, ok := names[label]
			if !ok {
				block.Label = label
				break
			}
		}
	}
}
