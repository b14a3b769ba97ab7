package analyzer

import (
	"fmt"

	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/ast"
)

type SignatureCollector struct {
	*parseutil.Emitter
	signatures map[string]ast.SourceEntry
}

func NewSignatureCollector(emitter *parseutil.Emitter) *SignatureCollector {
	return &SignatureCollector{
		Emitter:    emitter,
		signatures: map[string]ast.SourceEntry{},
	}
}

func (collector *SignatureCollector) Signatures() map[string]ast.SourceEntry {
	return collector.signatures
}

func (collector *SignatureCollector) Process(entries []ast.SourceEntry) {
	for _, source := range entries {
		switch entry := source.(type) {
		case *ast.FunctionDefinition, *ast.FunctionDeclaration:
			label := entry.EntryLabel()
			prev, ok := collector.signatures[label]
			if !ok {
				collector.signatures[label] = entry
				continue
			}

			// A declaration may precede or follow the matching definition, but
			// the function can only be defined once.
			_, prevIsDef := prev.(*ast.FunctionDefinition)
			_, isDef := entry.(*ast.FunctionDefinition)
			if prevIsDef && isDef {
				collector.Emit(
					entry.Loc(),
					"definition (%s) previously defined at (%s)",
					label,
					prev.Loc().ShortString())
				continue
			}

			if isDef {
				collector.signatures[label] = entry
			}
		default:
			panic(fmt.Sprintf("%s: unhandled SourceEntry", source.Loc()))
		}
	}
}
