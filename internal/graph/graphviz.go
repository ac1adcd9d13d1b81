package graph

import (
	"fmt"
	"strings"
)

// DumpGraphviz renders the graph in DOT format for debugging.
func (g *Graph) DumpGraphviz() string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	b.WriteString("  rankdir=BT;\n")
	for i := range g.nodes {
		id := NodeID(i)
		b.WriteString(fmt.Sprintf("  n%d [label=%q", i, g.nodeLabel(id)))
		if target, ok := g.targets[id]; ok {
			b.WriteString(fmt.Sprintf(", style=filled, fillcolor=lightblue, tooltip=%q", target))
		}
		b.WriteString("];\n")
	}
	for i := range g.nodes {
		for _, in := range g.nodes[i].Inputs {
			b.WriteString(fmt.Sprintf("  n%d -> n%d;\n", in, i))
		}
	}
	for _, out := range g.outputs {
		b.WriteString(fmt.Sprintf("  n%d [peripheries=2];\n", out))
	}
	b.WriteString("}\n")
	return b.String()
}

func (g *Graph) nodeLabel(id NodeID) string {
	n := &g.nodes[id]
	switch n.Kind {
	case KindInput:
		return fmt.Sprintf("%s\n%s", n.Name, g.typeLabel(id))
	case KindConst:
		return fmt.Sprintf("const %s", n.Value.Shape)
	case KindOp:
		return fmt.Sprintf("%s\n%s", n.Op, g.typeLabel(id))
	case KindComposite:
		return fmt.Sprintf("composite %s", n.Op)
	case KindCall:
		return fmt.Sprintf("call %s", n.Name)
	case KindProj:
		return fmt.Sprintf("proj %d", n.Index)
	default:
		return "?"
	}
}

func (g *Graph) typeLabel(id NodeID) string {
	t, ok := g.types[id]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s", t.DType, t.Shape)
}
