package tiering

import (
	"github.com/pattyshack/fasttier/ast"
)

type hints struct {
	hot              bool
	parallel         bool
	parallelAccesses bool

	hasAccessCount bool
	accessCount    uint64
}

func newHints(annotations []*ast.Annotation) (hints, bool) {
	result := hints{}
	for _, annotation := range annotations {
		switch annotation.Kind {
		case ast.HotAnnotation:
			result.hot = true
		case ast.ParallelAnnotation:
			result.parallel = true
		case ast.ParallelAccessesAnnotation:
			result.parallelAccesses = true
		case ast.AccessCountAnnotation:
			if annotation.Argument != nil && annotation.Argument.Value >= 0 {
				result.hasAccessCount = true
				result.accessCount = uint64(annotation.Argument.Value)
			}
		}
	}
	return result, len(annotations) > 0
}

// AnnotationIndex holds the recognized annotations of a program, keyed by the
// annotated function, block or call.  The index is populated
// once and is read-only afterward; it is safe for concurrent use.
type AnnotationIndex struct {
	functions map[*ast.FunctionDefinition]hints
	blocks    map[*ast.Block]hints
	calls     map[*ast.FuncCall]hints
}

type annotationIndexer struct {
	*AnnotationIndex
}

func NewAnnotationIndex(sources []ast.SourceEntry) *AnnotationIndex {
	index := &AnnotationIndex{
		functions: map[*ast.FunctionDefinition]hints{},
		blocks:    map[*ast.Block]hints{},
		calls:     map[*ast.FuncCall]hints{},
	}

	indexer := annotationIndexer{index}
	for _, entry := range sources {
		entry.Walk(indexer)
	}

	return index
}

func (indexer annotationIndexer) Enter(n ast.Node) {
	switch node := n.(type) {
	case *ast.FunctionDefinition:
		h, ok := newHints(node.Annotations)
		if ok {
			indexer.functions[node] = h
		}
	case *ast.Block:
		h, ok := newHints(node.Annotations)
		if ok {
			indexer.blocks[node] = h
		}
	case *ast.FuncCall:
		h, ok := newHints(node.Annotations)
		if ok {
			indexer.calls[node] = h
		}
	}
}

func (indexer annotationIndexer) Exit(n ast.Node) {
}

func (index *AnnotationIndex) IsHotFunction(
	funcDef *ast.FunctionDefinition,
) bool {
	return index.functions[funcDef].hot
}

func (index *AnnotationIndex) IsParallelFunction(
	funcDef *ast.FunctionDefinition,
) bool {
	return index.functions[funcDef].parallel
}

func (index *AnnotationIndex) IsHotCall(call *ast.FuncCall) bool {
	return index.calls[call].hot
}

func (index *AnnotationIndex) AccessCount(call *ast.FuncCall) (uint64, bool) {
	h := index.calls[call]
	return h.accessCount, h.hasAccessCount
}

func (index *AnnotationIndex) HasParallelAccesses(block *ast.Block) bool {
	return index.blocks[block].parallelAccesses
}

// Blocks of the function annotated with !parallel_accesses, in block order.
func (index *AnnotationIndex) ParallelAccessBlocks(
	funcDef *ast.FunctionDefinition,
) []*ast.Block {
	result := []*ast.Block{}
	for _, block := range funcDef.Blocks {
		if index.HasParallelAccesses(block) {
			result = append(result, block)
		}
	}
	return result
}
