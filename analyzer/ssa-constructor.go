package analyzer

import (
	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

type definitions map[string]*ast.VariableDefinition

func (defs definitions) clone() definitions {
	result := make(definitions, len(defs))
	for name, def := range defs {
		result[name] = def
	}
	return result
}

// Lowers a function definition into ssa form.  Every block with multiple
// parents starts out with a phi for each name reaching it, and redundant phis
// are pruned afterwards.
type ssaConstructor struct {
	*parseutil.Emitter

	// definitions reaching the start of a single parent block.
	inherited map[*ast.Block]definitions
}

func ConstructSSA(emitter *parseutil.Emitter) util.Pass[ast.SourceEntry] {
	return &ssaConstructor{
		Emitter:   emitter,
		inherited: map[*ast.Block]definitions{},
	}
}

func (constructor *ssaConstructor) Process(entry ast.SourceEntry) {
	funcDef, ok := entry.(*ast.FunctionDefinition)
	if !ok || len(funcDef.Blocks) == 0 {
		return
	}

	params := definitions{}
	for _, param := range funcDef.Parameters {
		params[param.Name] = param
	}
	constructor.inherited[funcDef.Blocks[0]] = params

	// Forward parents are processed before their children, so only back
	// edges contribute phi sources after the child is processed.
	for _, block := range util.ReversePostOrder(funcDef) {
		live := constructor.bindBlock(block)

		for _, child := range block.Children {
			if len(child.Parents) == 1 {
				constructor.inherited[child] = live.clone()
				continue
			}

			for _, def := range live {
				child.AddToPhis(block, def)
			}
		}
	}

	for _, block := range funcDef.Blocks {
		for _, phi := range block.Phis {
			if len(phi.Dest.DefUses) == 0 || len(phi.Srcs) == len(block.Parents) {
				continue
			}

			for ref := range phi.Dest.DefUses {
				constructor.Emit(
					ref.Loc(),
					"register (%s) not defined in all parent blocks",
					ref.Name)
			}
		}
	}

	pruneRedundantPhis(funcDef)
}

func (constructor *ssaConstructor) bindBlock(block *ast.Block) definitions {
	live, ok := constructor.inherited[block]
	if !ok {
		live = make(definitions, len(block.Phis))
		for name, phi := range block.Phis {
			live[name] = phi.Dest
		}
	}

	for _, inst := range block.Instructions {
		for _, src := range inst.Sources() {
			ref, ok := src.(*ast.VariableReference)
			if !ok {
				continue
			}

			def, ok := live[ref.Name]
			if !ok {
				constructor.Emit(
					ref.Loc(),
					"register (%s) not defined in all parent blocks",
					ref.Name)
				continue
			}
			def.AddRef(ref)
		}

		dest := inst.Destination()
		if dest != nil {
			dest.ParentInstruction = inst
			live[dest.Name] = dest
		}
	}

	return live
}

// A phi whose sources (ignoring references to itself) all name the same
// definition is replaced by that definition.  Removing a phi may make the phis
// using it redundant, so those are rechecked.
func pruneRedundantPhis(funcDef *ast.FunctionDefinition) {
	pending := []*ast.Phi{}
	queued := map[*ast.Phi]struct{}{}
	enqueue := func(phi *ast.Phi) {
		_, ok := queued[phi]
		if ok {
			return
		}
		queued[phi] = struct{}{}
		pending = append(pending, phi)
	}

	for _, block := range funcDef.Blocks {
		for _, phi := range block.Phis {
			enqueue(phi)
		}
	}

	for len(pending) > 0 {
		phi := pending[0]
		pending = pending[1:]
		delete(queued, phi)

		replacement, ok := uniqueSource(phi)
		if !ok {
			continue
		}

		for ref := range phi.Dest.DefUses {
			user, ok := ref.ParentInstruction().(*ast.Phi)
			if ok && user != phi {
				enqueue(user)
			}
		}

		phi.Dest.ReplaceReferencesWith(replacement)
		phi.Discard()
	}
}

func uniqueSource(phi *ast.Phi) (ast.Value, bool) {
	var result ast.Value
	var resultDef interface{}
	for _, src := range phi.Srcs {
		def := src.Definition()
		if def == phi.Dest {
			continue
		}

		if result == nil {
			result = src
			resultDef = def
		} else if resultDef != def {
			return nil, false
		}
	}

	if result == nil {
		panic("should never happen")
	}

	return result, true
}
