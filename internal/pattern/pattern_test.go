package pattern

import (
	"errors"
	"testing"

	"github.com/born-ml/relay/internal/graph"
)

// denseGraph builds x -> dense(w) and optionally -> bias_add(b).
func denseGraph(withBias bool) (*graph.Graph, graph.NodeID) {
	g := graph.New()
	x := g.AddInput("x", graph.Shape{1, 64}, graph.Float32)
	w, _ := graph.NewTensor(graph.Shape{32, 64}, graph.Float32, nil)
	d := g.AddOp("nn.dense", x, g.AddConst(w))
	root := d
	if withBias {
		b, _ := graph.NewTensor(graph.Shape{32}, graph.Float32, nil)
		root = g.AddOp("nn.bias_add", d, g.AddConst(b))
	}
	g.SetOutputs(root)
	return g, root
}

func densePattern() MatchNode {
	return Optional(
		Op("nn.dense", Wildcard(), IsConstant()),
		"nn.bias_add", IsConstant())
}

func TestMatchMandatoryPrefixAlone(t *testing.T) {
	g, root := denseGraph(false)
	m, ok := MatchAt(g, densePattern(), root)
	if !ok {
		t.Fatal("pattern must match the lone dense")
	}
	if len(m.Nodes) != 1 || m.Nodes[0] != root {
		t.Errorf("match consumed %v, want just the dense node %d", m.Nodes, root)
	}
}

func TestMatchGreedyOptionalContinuation(t *testing.T) {
	g, root := denseGraph(true)
	m, ok := MatchAt(g, densePattern(), root)
	if !ok {
		t.Fatal("pattern must match dense followed by bias_add")
	}
	if len(m.Nodes) != 2 {
		t.Fatalf("match consumed %d nodes, want 2 (dense and bias_add)", len(m.Nodes))
	}
	if _, ok := m.OpNode(g, "nn.bias_add"); !ok {
		t.Error("the optional continuation was present and must be included")
	}
}

func TestMatchRejectsWrongOperator(t *testing.T) {
	g := graph.New()
	x := g.AddInput("x", graph.Shape{4}, graph.Float32)
	r := g.AddOp("nn.relu", x)
	g.SetOutputs(r)
	if _, ok := MatchAt(g, densePattern(), r); ok {
		t.Error("dense pattern must not match a relu node")
	}
}

func TestMatchConstantLeaf(t *testing.T) {
	// Weight is a plain input, not a constant: IsConstant must reject it.
	g := graph.New()
	x := g.AddInput("x", graph.Shape{1, 64}, graph.Float32)
	w := g.AddInput("w", graph.Shape{32, 64}, graph.Float32)
	d := g.AddOp("nn.dense", x, w)
	g.SetOutputs(d)
	if _, ok := MatchAt(g, densePattern(), d); ok {
		t.Error("IsConstant leaf must not match a non-constant operand")
	}
}

func TestNewTableRejectsDuplicateNames(t *testing.T) {
	_, err := NewTable(
		Entry{Name: "acme.dense", Pattern: Op("nn.dense", Wildcard(), Wildcard())},
		Entry{Name: "acme.dense", Pattern: Op("nn.conv2d", Wildcard(), Wildcard())},
	)
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestNewTableRejectsMalformedPatterns(t *testing.T) {
	tests := []struct {
		name string
		pat  MatchNode
	}{
		{"nil pattern", nil},
		{"wildcard root", Wildcard()},
		{"constant root", IsConstant()},
		{"empty op name", Op("", Wildcard())},
		{"nil argument", Op("nn.dense", nil, Wildcard())},
		{"optional without continuation", &OptionalMatch{Inner: &OpMatch{OpName: "nn.relu"}}},
		{"optional fallback not an operator", Optional(Wildcard(), "nn.relu")},
	}
	for _, tt := range tests {
		_, err := NewTable(Entry{Name: "acme.x", Pattern: tt.pat})
		if !errors.Is(err, ErrMalformedPattern) {
			t.Errorf("%s: err = %v, want ErrMalformedPattern", tt.name, err)
		}
	}
}

func TestNewTablePreservesOrder(t *testing.T) {
	table, err := NewTable(
		Entry{Name: "acme.specific", Pattern: Op("nn.dense", Wildcard(), IsConstant())},
		Entry{Name: "acme.general", Pattern: Op("nn.dense", Wildcard(), Wildcard())},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	entries := table.Entries()
	if entries[0].Name != "acme.specific" || entries[1].Name != "acme.general" {
		t.Errorf("entries out of declaration order: %v, %v", entries[0].Name, entries[1].Name)
	}
}
