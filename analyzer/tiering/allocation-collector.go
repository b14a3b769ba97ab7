package tiering

import (
	"github.com/pattyshack/fasttier/analyzer/util"
	"github.com/pattyshack/fasttier/ast"
)

type allocationCollector struct {
	config Config
	index  *AnnotationIndex
}

// Collects the allocation sites and the deallocation calls of a single
// function, in program order.  Indirect calls are ignored.
func CollectAllocations(
	funcDef *ast.FunctionDefinition,
	index *AnnotationIndex,
	config Config,
) *FunctionSummary {
	collector := allocationCollector{
		config: config,
		index:  index,
	}
	return collector.collect(funcDef)
}

func (collector allocationCollector) collect(
	funcDef *ast.FunctionDefinition,
) *FunctionSummary {
	summary := &FunctionSummary{
		Function: funcDef,
	}

	hotFunction := collector.index.IsHotFunction(funcDef)
	for _, block := range funcDef.Blocks {
		for _, inst := range block.Instructions {
			call, ok := inst.(*ast.FuncCall)
			if !ok {
				continue
			}

			callee, ok := call.CalleeLabel()
			if !ok {
				continue
			}

			switch callee {
			case collector.config.Allocate:
				summary.Sites = append(
					summary.Sites,
					&AllocationSite{
						Call:      call,
						Function:  funcDef,
						Size:      allocationSize(call),
						ForcedHot: hotFunction || collector.index.IsHotCall(call),
					})
			case collector.config.Free:
				summary.Frees = append(summary.Frees, call)
			}
		}
	}

	return summary
}

func allocationSize(call *ast.FuncCall) uint64 {
	if len(call.Args) == 0 {
		return 0
	}

	size, ok := util.ConstantInt(call.Args[0])
	if !ok || size < 0 {
		return 0
	}

	return uint64(size)
}
