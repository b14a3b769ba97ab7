package tiering

import (
	"sync"

	"github.com/pattyshack/fasttier/analyzer/loops"
	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

// Collects, scores and matches the allocation sites of a single function.
func AnalyzeFunction(
	funcDef *ast.FunctionDefinition,
	index *AnnotationIndex,
	config Config,
) *FunctionSummary {
	summary := CollectAllocations(funcDef, index, config)
	annotated := index.ParallelAccessBlocks(funcDef)
	if len(summary.Sites) == 0 && len(annotated) == 0 {
		return summary
	}

	forest := loops.Analyze(funcDef)

	// !parallel_accesses applies to the annotated block's innermost loop.
	parallelLoops := map[*loops.Loop]struct{}{}
	for _, block := range annotated {
		loop := forest.LoopFor(block)
		if loop == nil {
			summary.IgnoredAnnotations = append(summary.IgnoredAnnotations, block)
			continue
		}
		parallelLoops[loop] = struct{}{}
	}

	if len(summary.Sites) == 0 {
		return summary
	}

	scorer := newAccessPatternScorer(
		funcDef,
		forest,
		parallelLoops,
		index,
		config)
	for _, site := range summary.Sites {
		site.Score = scorer.Score(site)
	}

	MatchDeallocations(summary, config)
	return summary
}

// Analyzes every function definition in the program.  Functions are analyzed
// concurrently; the summaries are returned in source order.  Declarations are
// skipped.
func AnalyzeProgram(
	sources []ast.SourceEntry,
	index *AnnotationIndex,
	config Config,
) *ProgramSummary {
	mutex := sync.Mutex{}
	summaries := map[ast.SourceEntry]*FunctionSummary{}

	util.ParallelProcess(
		sources,
		func(entry ast.SourceEntry) {
			funcDef, ok := entry.(*ast.FunctionDefinition)
			if !ok {
				return
			}

			summary := AnalyzeFunction(funcDef, index, config)

			mutex.Lock()
			defer mutex.Unlock()
			summaries[entry] = summary
		})

	program := &ProgramSummary{}
	for _, entry := range sources {
		summary, ok := summaries[entry]
		if ok {
			program.Functions = append(program.Functions, summary)
		}
	}

	return program
}
