package ast

import (
	"fmt"

	"github.com/pattyshack/gt/parseutil"
)

type AnnotationKind string

const (
	// Always place the allocation in the fast tier.
	HotAnnotation = AnnotationKind("hot")

	// Observed access count collected by an external profiler.
	AccessCountAnnotation = AnnotationKind("access_count")

	// The function body executes as a parallel region.
	ParallelAnnotation = AnnotationKind("parallel")

	// The loop's memory accesses are independent across iterations.
	ParallelAccessesAnnotation = AnnotationKind("parallel_accesses")
)

type AnnotationTarget string

const (
	FunctionAnnotationTarget = AnnotationTarget("function")
	BlockAnnotationTarget    = AnnotationTarget("block")
	CallAnnotationTarget     = AnnotationTarget("call")
)

type annotationSchema struct {
	hasArgument bool
	targets     []AnnotationTarget
}

var annotationSchemas = map[AnnotationKind]annotationSchema{
	HotAnnotation: {
		targets: []AnnotationTarget{
			FunctionAnnotationTarget,
			CallAnnotationTarget,
		},
	},
	AccessCountAnnotation: {
		hasArgument: true,
		targets:     []AnnotationTarget{CallAnnotationTarget},
	},
	ParallelAnnotation: {
		targets: []AnnotationTarget{FunctionAnnotationTarget},
	},
	ParallelAccessesAnnotation: {
		targets: []AnnotationTarget{BlockAnnotationTarget},
	},
}

// !-prefixed annotation of the form: !<kind> or !<kind>(<int>).  Note that the
// '!' prefix is not part of the kind and is only used by the parser.
type Annotation struct {
	parseutil.StartEndPos

	Kind AnnotationKind

	Argument *IntImmediate // optional
}

var _ Node = &Annotation{}

func (annotation *Annotation) Walk(visitor Visitor) {
	visitor.Enter(annotation)
	visitor.Exit(annotation)
}

func (annotation *Annotation) String() string {
	if annotation.Argument == nil {
		return "!" + string(annotation.Kind)
	}
	return fmt.Sprintf("!%s(%d)", annotation.Kind, annotation.Argument.Value)
}

func validateAnnotations(
	annotations []*Annotation,
	target AnnotationTarget,
	emitter *parseutil.Emitter,
) {
	seen := map[AnnotationKind]*Annotation{}
	for _, annotation := range annotations {
		schema, ok := annotationSchemas[annotation.Kind]
		if !ok {
			emitter.Emit(
				annotation.Loc(),
				"unknown annotation (%s)",
				annotation.Kind)
			continue
		}

		prev, ok := seen[annotation.Kind]
		if ok {
			emitter.Emit(
				annotation.Loc(),
				"annotation (%s) previously specified at (%s)",
				annotation.Kind,
				prev.Loc().ShortString())
			continue
		}
		seen[annotation.Kind] = annotation

		allowed := false
		for _, t := range schema.targets {
			if t == target {
				allowed = true
				break
			}
		}
		if !allowed {
			emitter.Emit(
				annotation.Loc(),
				"annotation (%s) cannot be applied to %s",
				annotation.Kind,
				target)
		}

		if schema.hasArgument {
			if annotation.Argument == nil {
				emitter.Emit(
					annotation.Loc(),
					"annotation (%s) requires an integer argument",
					annotation.Kind)
			} else if annotation.Argument.Value < 0 {
				emitter.Emit(
					annotation.Loc(),
					"annotation (%s) argument must be non-negative",
					annotation.Kind)
			}
		} else if annotation.Argument != nil {
			emitter.Emit(
				annotation.Loc(),
				"annotation (%s) does not take an argument",
				annotation.Kind)
		}
	}
}

// Returns the annotation of the given kind, or nil.
func FindAnnotation(
	annotations []*Annotation,
	kind AnnotationKind,
) *Annotation {
	for _, annotation := range annotations {
		if annotation.Kind == kind {
			return annotation
		}
	}
	return nil
}
