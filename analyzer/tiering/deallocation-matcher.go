package tiering

import (
	"github.com/pattyshack/fasttier/ast"
)

// Attaches every deallocation that frees exactly the allocation's result to
// the allocation site.  Sites without any matching deallocation are marked
// unmatched and penalized.
//
// Matching is by definition identity.  A free of a derived pointer (offset,
// cast, copy or phi) does not match.
func MatchDeallocations(summary *FunctionSummary, config Config) {
	for _, site := range summary.Sites {
		site.Frees = nil

		dest := site.Call.Dest
		if dest != nil {
			for _, free := range summary.Frees {
				if len(free.Args) != 1 {
					continue
				}

				ref, ok := free.Args[0].(*ast.VariableReference)
				if ok && ref.UseDef == dest {
					site.Frees = append(site.Frees, free)
				}
			}
		}

		site.Unmatched = len(site.Frees) == 0
		if site.Unmatched {
			site.Score += config.EscapePenalty
		}
	}
}
