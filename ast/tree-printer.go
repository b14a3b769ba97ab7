package ast

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

const (
	indent = "  "
)

func TreeString(node Node, indent string) string {
	buffer := &bytes.Buffer{}
	_ = PrintTree(buffer, node, indent)
	return buffer.String()
}

func PrintTree(output io.Writer, node Node, indent string) error {
	printer := &treePrinter{
		indent:     indent,
		labelStack: []string{},
		writer:     output,
	}
	node.Walk(printer)
	return printer.err
}

type treePrinter struct {
	indent     string
	labelStack []string
	writer     io.Writer
	err        error
}

func (printer *treePrinter) write(format string, args ...interface{}) {
	if printer.err != nil {
		return
	}

	if len(args) == 0 {
		_, printer.err = printer.writer.Write([]byte(format))
	} else {
		_, printer.err = fmt.Fprintf(printer.writer, format, args...)
	}
}

func (printer *treePrinter) writeLabel() {
	label := ""
	if len(printer.labelStack) > 0 {
		label = printer.labelStack[len(printer.labelStack)-1]
		printer.labelStack = printer.labelStack[:len(printer.labelStack)-1]
	}

	if len(label) > 0 {
		printer.write("\n")
		printer.write(printer.indent)
		printer.write(label)
	} else {
		printer.write(printer.indent)
	}
}

func (printer *treePrinter) endNode() {
	printer.indent = printer.indent[:len(printer.indent)-len(indent)]
	printer.write("\n")
	printer.write(printer.indent)
	printer.write("]")
}

func (printer *treePrinter) push(labels ...string) {
	printer.indent += indent

	for len(labels) > 0 {
		last := labels[len(labels)-1]
		labels = labels[:len(labels)-1]

		printer.labelStack = append(printer.labelStack, last)
	}
}

func (printer *treePrinter) Enter(n Node) {
	printer.writeLabel()

	switch node := n.(type) {
	case *VariableDefinition:
		printer.write("[VariableDefinition: Name=%s Loc=%s", node.Name, node.Loc())
		printer.push()
		printer.write("\n%sDefUses:", printer.indent)
		for _, ref := range sortedRefs(node.DefUses) {
			parent := ""
			if ref.ParentInstruction() != nil {
				parent = "(ins)"
				_, ok := ref.ParentInstruction().(*Phi)
				if ok {
					parent = "(phi)"
				}
			}
			printer.write("\n%s  %s: %s", printer.indent, parent, ref.Loc())
		}
	case *VariableReference:
		printer.write("[VariableReference: Name=%s Loc=%s", node.Name, node.Loc())
		printer.push()

		parent := "(nil)"
		if node.UseDef != nil {
			if node.UseDef.ParentInstruction != nil {
				parent = "(ins) "
				_, ok := node.UseDef.ParentInstruction.(*Phi)
				if ok {
					parent = "(phi) "
				}
			}
			parent += node.UseDef.Loc().String()
		}
		printer.write("\n%sUseDef: %s", printer.indent, parent)
	case *GlobalLabelReference:
		printer.write("[GlobalLabelReference: Label=%s]", node.Label)
	case *IntImmediate:
		printer.write("[IntImmediate: Value=%d]", node.Value)
	case *FloatImmediate:
		printer.write("[FloatImmediate: Value=%e]", node.Value)
	case *Annotation:
		printer.write("[Annotation: %s]", node)

	case *CopyOperation:
		printer.write("[CopyOperation:")
		printer.push("Dest=", "Src=")
	case *UnaryOperation:
		printer.write("[UnaryOperation: Kind=%s", node.Kind)
		printer.push("Dest=", "Src=")
	case *BinaryOperation:
		printer.write("[BinaryOperation: Kind=%s", node.Kind)
		printer.push("Dest=", "Src1=", "Src2=")
	case *LoadOperation:
		printer.write("[LoadOperation:")
		printer.push("Dest=", "Address=")
	case *StoreOperation:
		printer.write("[StoreOperation:")
		printer.push("Address=", "Src=")
	case *AddressOperation:
		printer.write("[AddressOperation: Kind=%s", node.Kind)
		if node.Offset != nil {
			printer.push("Dest=", "Base=", "Offset=")
		} else {
			printer.push("Dest=", "Base=")
		}
	case *FuncCall:
		labels := []string{}
		if node.Dest != nil {
			labels = append(labels, "Dest=")
		}
		labels = append(labels, "Func=")
		for idx := range node.Args {
			labels = append(labels, fmt.Sprintf("Argument%d=", idx))
		}
		for idx := range node.Annotations {
			labels = append(labels, fmt.Sprintf("Annotation%d=", idx))
		}
		printer.write("[FuncCall:")
		printer.push(labels...)

	case *Jump:
		printer.write("[Jump: Label=%s]", node.Label)
	case *ConditionalJump:
		printer.write("[ConditionalJump: Kind=%s Label=%s", node.Kind, node.Label)
		printer.push("Src1=", "Src2=")
	case *Terminal:
		if node.RetVal == nil {
			printer.write("[Terminal]")
		} else {
			printer.write("[Terminal:")
			printer.push("RetVal=")
		}

	case *FunctionDeclaration:
		printer.write("[FunctionDeclaration: Label=%s", node.Label)
		labels := []string{}
		for idx := range node.Parameters {
			labels = append(labels, fmt.Sprintf("Parameter%d=", idx))
		}
		printer.push(labels...)
	case *FunctionDefinition:
		printer.write("[FunctionDefinition: Label=%s", node.Label)
		labels := []string{}
		for idx := range node.Parameters {
			labels = append(labels, fmt.Sprintf("Parameter%d=", idx))
		}
		for idx := range node.Annotations {
			labels = append(labels, fmt.Sprintf("Annotation%d=", idx))
		}
		for idx := range node.Blocks {
			labels = append(labels, fmt.Sprintf("Block%d=", idx))
		}
		printer.push(labels...)
	case *Block:
		labels := []string{}
		for idx := range node.Annotations {
			labels = append(labels, fmt.Sprintf("Annotation%d=", idx))
		}
		for i := 0; i < len(node.Phis); i++ {
			labels = append(labels, fmt.Sprintf("Phi%d=", i))
		}
		for i := range node.Instructions {
			labels = append(labels, fmt.Sprintf("Instruction%d=", i))
		}

		printer.write("[Block: Label=%s Loc=%s", node.Label, node.Loc())
		printer.push(labels...)
	case *Phi:
		labels := []string{"Dest="}
		for i := 0; i < len(node.Srcs); i++ {
			labels = append(labels, fmt.Sprintf("Src%d=", i))
		}
		printer.write("[Phi:")
		printer.push(labels...)

	default:
		printer.write("unhandled node: %v", n)
	}
}

func (printer *treePrinter) Exit(n Node) {
	switch node := n.(type) {
	case *VariableDefinition:
		printer.endNode()
	case *VariableReference:
		printer.endNode()

	case *CopyOperation:
		printer.endNode()
	case *UnaryOperation:
		printer.endNode()
	case *BinaryOperation:
		printer.endNode()
	case *LoadOperation:
		printer.endNode()
	case *StoreOperation:
		printer.endNode()
	case *AddressOperation:
		printer.endNode()
	case *FuncCall:
		printer.endNode()

	case *ConditionalJump:
		printer.endNode()
	case *Terminal:
		if node.RetVal != nil {
			printer.endNode()
		}

	case *FunctionDeclaration:
		printer.endNode()
	case *FunctionDefinition:
		printer.endNode()
	case *Block:
		printer.endNode()
	case *Phi:
		printer.endNode()
	}
}

func sortedRefs(refs map[*VariableReference]struct{}) []*VariableReference {
	result := make([]*VariableReference, 0, len(refs))
	for ref := range refs {
		result = append(result, ref)
	}
	sort.Slice(result, func(i int, j int) bool {
		return result[i].Loc().String() < result[j].Loc().String()
	})
	return result
}
