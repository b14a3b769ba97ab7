package tiering

import (
	"log/slog"

	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/logger"
)

type Result struct {
	// The rewritten program.  Fast tier declarations are appended when
	// needed.
	Sources []ast.SourceEntry

	Summary   *ProgramSummary
	Selection *Selection

	Modified bool
}

// Run analyzes, packs and rewrites a program.  The sources must have been
// lowered into ssa form by analyzer.Analyze without errors.  Only an invalid
// config fails the pass.  When log is nil, the process wide logger is used.
func Run(
	sources []ast.SourceEntry,
	config Config,
	log *slog.Logger,
) (
	*Result,
	error,
) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.L
	}

	index := NewAnnotationIndex(sources)
	summary := AnalyzeProgram(sources, index, config)
	selection := Pack(summary, config)

	for _, funcSummary := range summary.Functions {
		for _, block := range funcSummary.IgnoredAnnotations {
			log.Warn(
				"parallel_accesses annotation outside of any loop ignored",
				"function", funcSummary.Function.Label,
				"block", block.Label,
				"location", block.Loc().ShortString())
		}
	}

	for _, decision := range selection.Decisions {
		site := decision.Site
		log.Debug(
			"allocation site",
			"function", site.FunctionLabel(),
			"location", site.Call.Loc().ShortString(),
			"size", site.Size,
			"score", site.Score,
			"forced", site.ForcedHot,
			"unmatched", site.Unmatched,
			"frees", len(site.Frees),
			"decision", decision.Decision,
			"used", decision.Budget.Used)

		if site.Unmatched && decision.Decision.IsSelected() {
			log.Warn(
				"fast tier allocation is never freed",
				"function", site.FunctionLabel(),
				"location", site.Call.Loc().ShortString())
		}
	}

	rewritten, modified := Rewrite(sources, selection, config)

	log.Info(
		"tiering pass complete",
		"functions", len(summary.Functions),
		"sites", len(selection.Decisions),
		"selected", len(selection.Selected),
		"capacity", selection.Budget.Capacity,
		"used", selection.Budget.Used,
		"modified", modified)

	return &Result{
		Sources:   rewritten,
		Summary:   summary,
		Selection: selection,
		Modified:  modified,
	}, nil
}
