// Package pass implements the graph transformations the partition
// pipeline sequences: constant binding, type inference, composite
// merging, target annotation and the final graph split. Every pass
// leaves its argument untouched and returns a rewritten copy, so a
// failed stage never leaks partial mutation to the caller.
package pass

import (
	"fmt"

	"github.com/born-ml/relay/internal/graph"
)

// BindConstants replaces every graph input whose name appears in consts
// with a constant node carrying the bound tensor. Inputs without a
// binding are kept. Binding a tensor whose type disagrees with the
// input's declared type is an error.
func BindConstants(g *graph.Graph, consts map[string]*graph.Tensor) (*graph.Graph, error) {
	out := g.Clone()
	kept := out.Inputs()[:0]
	for _, id := range g.Inputs() {
		n := out.Node(id)
		value, ok := consts[n.Name]
		if !ok {
			kept = append(kept, id)
			continue
		}
		if declared, ok := out.Type(id); ok {
			if !declared.Shape.Equal(value.Shape) || declared.DType != value.DType {
				return nil, fmt.Errorf("constant %q has type %s%s, input declares %s%s",
					n.Name, value.DType, value.Shape, declared.DType, declared.Shape)
			}
		}
		n.Kind = graph.KindConst
		n.Value = value
		out.SetType(id, graph.Type{Shape: value.Shape.Clone(), DType: value.DType})
	}
	out.SetInputs(kept)
	return out, nil
}
