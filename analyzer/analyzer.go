package analyzer

import (
	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

type syntaxValidator struct {
	emitter *parseutil.Emitter
}

func (validator syntaxValidator) Enter(node ast.Node) {
	checked, ok := node.(ast.Validator)
	if ok {
		checked.Validate(validator.emitter)
	}
}

func (syntaxValidator) Exit(ast.Node) {}

// Analyze validates the parsed sources, and lowers every function definition
// into ssa form (control flow graph, bound global labels, def-use chains and
// pruned phis).  Errors are reported to the emitter.  The lowered sources are
// only usable when the emitter has no errors.
func Analyze(
	sources []ast.SourceEntry,
	emitter *parseutil.Emitter,
) {
	entryEmitters := make(map[ast.SourceEntry]*parseutil.Emitter, len(sources))
	for _, entry := range sources {
		entryEmitters[entry] = &parseutil.Emitter{}
	}

	util.ParallelProcess(
		sources,
		func(entry ast.SourceEntry) {
			entry.Walk(syntaxValidator{emitter: entryEmitters[entry]})
		})

	signatureCollector := NewSignatureCollector(emitter)
	signatureCollector.Process(sources)
	signatures := signatureCollector.Signatures()

	util.ParallelProcess(
		sources,
		func(entry ast.SourceEntry) {
			entryEmitter := entryEmitters[entry]
			if entryEmitter.HasErrors() { // Entry has syntax error
				return
			}

			passes := [][]util.Pass[ast.SourceEntry]{
				{InitializeControlFlowGraph(entryEmitter)},
				{BindGlobalLabelReferences(entryEmitter, signatures)},
				{ConstructSSA(entryEmitter)},
			}

			util.Process(entry, passes, entryEmitter.HasErrors)
		})

	for _, entry := range sources {
		emitter.EmitErrors(entryEmitters[entry].Errors()...)
	}
}
