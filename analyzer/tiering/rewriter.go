package tiering

import (
	"github.com/pattyshack/gt/parseutil"

	"github.com/pattyshack/fasttier/ast"
)

type rewriter struct {
	config Config

	signatures map[string]ast.SourceEntry
	appended   []ast.SourceEntry
}

// Retargets every selected allocation to the fast tier allocator, together
// with all of its matched deallocations.  Declarations for the fast tier
// operations are appended to the program when missing.  Returns the
// (possibly extended) program and whether any call was retargeted.
func Rewrite(
	sources []ast.SourceEntry,
	selection *Selection,
	config Config,
) (
	[]ast.SourceEntry,
	bool,
) {
	rw := &rewriter{
		config:     config,
		signatures: map[string]ast.SourceEntry{},
	}

	for _, entry := range sources {
		prev, ok := rw.signatures[entry.EntryLabel()]
		if !ok {
			rw.signatures[entry.EntryLabel()] = entry
			continue
		}

		_, isDef := entry.(*ast.FunctionDefinition)
		_, prevIsDef := prev.(*ast.FunctionDefinition)
		if isDef && !prevIsDef {
			rw.signatures[entry.EntryLabel()] = entry
		}
	}

	modified := false
	for _, site := range selection.Selected {
		if site.Call == nil {
			continue
		}

		rw.retarget(site.Call, config.FastAllocate, "size")
		for _, free := range site.Frees {
			rw.retarget(free, config.FastFree, "ptr")
		}
		modified = true
	}

	if len(rw.appended) == 0 {
		return sources, modified
	}

	result := make([]ast.SourceEntry, 0, len(sources)+len(rw.appended))
	result = append(result, sources...)
	result = append(result, rw.appended...)
	return result, modified
}

func (rw *rewriter) retarget(
	call *ast.FuncCall,
	label string,
	paramName string,
) {
	pos := parseutil.StartEndPos{}
	prev, ok := call.Func.(*ast.GlobalLabelReference)
	if ok {
		pos = prev.StartEndPos
	}

	call.SetFunc(
		&ast.GlobalLabelReference{
			StartEndPos: pos,
			Label:       label,
			Signature:   rw.declaration(label, paramName),
		})
}

func (rw *rewriter) declaration(
	label string,
	paramName string,
) ast.SourceEntry {
	sig, ok := rw.signatures[label]
	if ok {
		return sig
	}

	decl := &ast.FunctionDeclaration{
		Label: label,
		Parameters: []*ast.VariableDefinition{
			{Name: paramName},
		},
	}

	rw.signatures[label] = decl
	rw.appended = append(rw.appended, decl)
	return decl
}
