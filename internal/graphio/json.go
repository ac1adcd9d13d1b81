package graphio

import (
	"encoding/json"
	"fmt"

	"github.com/born-ml/relay/internal/graph"
)

// The JSON graph format consumed by the backend runtime. Composite
// nodes are not serialized as sub-graphs: each composite collapses into
// a single kernel node carrying the fused operands (data, weight and
// optional bias) plus an activation attribute, which is what the
// runtime expects to instantiate one fused layer from.

type jsonEntry [3]int // node index, output index, version

type jsonNode struct {
	Op     string         `json:"op"` // "input", "const" or "kernel"
	Name   string         `json:"name"`
	Inputs []jsonEntry    `json:"inputs,omitempty"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

type jsonGraph struct {
	Symbol   string      `json:"symbol"`
	Nodes    []jsonNode  `json:"nodes"`
	ArgNodes []int       `json:"arg_nodes"`
	Heads    []jsonEntry `json:"heads"`
}

// Codegen serializes an extracted function for the external backend's
// compiler. Only operator, composite, input and constant nodes may
// appear in an extracted body.
func Codegen(fn *graph.Function) ([]byte, error) {
	body := fn.Body
	out := jsonGraph{Symbol: fn.Name}
	remap := make([]int, body.NumNodes())

	for i := 0; i < body.NumNodes(); i++ {
		id := graph.NodeID(i)
		n := body.Node(id)
		var jn jsonNode
		switch n.Kind {
		case graph.KindInput:
			jn = jsonNode{Op: "input", Name: n.Name, Attrs: typeAttrs(body, id)}
			out.ArgNodes = append(out.ArgNodes, len(out.Nodes))
		case graph.KindConst:
			jn = jsonNode{Op: "const", Name: n.Name, Attrs: typeAttrs(body, id)}
			out.ArgNodes = append(out.ArgNodes, len(out.Nodes))
		case graph.KindOp:
			jn = jsonNode{Op: "kernel", Name: n.Op, Attrs: opAttrs(n)}
			for _, in := range n.Inputs {
				jn.Inputs = append(jn.Inputs, jsonEntry{remap[in], 0, 0})
			}
		case graph.KindComposite:
			var err error
			jn, err = compositeKernel(body, id, remap)
			if err != nil {
				return nil, fmt.Errorf("function %s: %w", fn.Name, err)
			}
		default:
			return nil, fmt.Errorf("function %s: cannot serialize %s node %d", fn.Name, n.Kind, id)
		}
		remap[id] = len(out.Nodes)
		out.Nodes = append(out.Nodes, jn)
	}

	for _, o := range body.Outputs() {
		out.Heads = append(out.Heads, jsonEntry{remap[o], 0, 0})
	}
	return json.MarshalIndent(&out, "", "  ")
}

// compositeKernel flattens a composite fragment into one kernel node,
// walking the fragment from its result backwards: optional activation,
// optional bias add, then the anchor operator. Operand order follows
// the runtime convention: data, weight, then bias when present.
func compositeKernel(g *graph.Graph, id graph.NodeID, remap []int) (jsonNode, error) {
	n := g.Node(id)
	body := n.Body

	// Body parameters correspond positionally to the composite operands.
	outer := make(map[graph.NodeID]graph.NodeID, len(n.Inputs))
	for i, p := range body.Inputs() {
		outer[p] = n.Inputs[i]
	}

	cur := body.Outputs()[0]
	activation := ""
	if body.Node(cur).Op == "nn.relu" {
		activation = "relu"
		cur = body.Node(cur).Inputs[0]
	}
	bias := graph.InvalidNode
	if body.Node(cur).Op == "nn.bias_add" {
		bias = body.Node(cur).Inputs[1]
		cur = body.Node(cur).Inputs[0]
	}
	anchor := body.Node(cur)
	if anchor.Kind != graph.KindOp || len(anchor.Inputs) != 2 {
		return jsonNode{}, fmt.Errorf("composite %q has no data/weight anchor operator", n.Op)
	}

	jn := jsonNode{Op: "kernel", Name: anchor.Op, Attrs: opAttrs(anchor)}
	operands := []graph.NodeID{anchor.Inputs[0], anchor.Inputs[1]}
	if bias != graph.InvalidNode {
		operands = append(operands, bias)
	}
	for _, p := range operands {
		o, ok := outer[p]
		if !ok {
			return jsonNode{}, fmt.Errorf("composite %q operand is not a fragment parameter", n.Op)
		}
		jn.Inputs = append(jn.Inputs, jsonEntry{remap[o], 0, 0})
	}
	if activation != "" {
		if jn.Attrs == nil {
			jn.Attrs = make(map[string]any)
		}
		jn.Attrs["activation_type"] = []string{activation}
	}
	return jn, nil
}

func typeAttrs(g *graph.Graph, id graph.NodeID) map[string]any {
	t, ok := g.Type(id)
	if !ok {
		return nil
	}
	return map[string]any{
		"shape": [][]int{t.Shape},
		"dtype": []string{t.DType.String()},
	}
}

func opAttrs(n *graph.Node) map[string]any {
	if len(n.Attrs) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		attrs[k] = []any{fmt.Sprintf("%v", v)}
	}
	return attrs
}
