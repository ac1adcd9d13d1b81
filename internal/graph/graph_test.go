package graph

import "testing"

func buildDense(t *testing.T) (*Graph, NodeID, NodeID, NodeID) {
	t.Helper()
	g := New()
	x := g.AddInput("x", Shape{1, 64}, Float32)
	w := g.AddInput("w", Shape{32, 64}, Float32)
	d := g.AddOp("nn.dense", x, w)
	g.SetOutputs(d)
	return g, x, w, d
}

func TestBuilderTopologicalInvariant(t *testing.T) {
	g, _, _, d := buildDense(t)
	if g.NumNodes() != 3 {
		t.Fatalf("NumNodes() = %d, want 3", g.NumNodes())
	}
	for i := 0; i < g.NumNodes(); i++ {
		for _, in := range g.Node(NodeID(i)).Inputs {
			if in >= NodeID(i) {
				t.Errorf("node %d has operand %d, operands must precede users", i, in)
			}
		}
	}
	if got := g.Outputs(); len(got) != 1 || got[0] != d {
		t.Errorf("Outputs() = %v, want [%d]", got, d)
	}
}

func TestAddOpRejectsMissingOperand(t *testing.T) {
	g := New()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an operand that does not exist yet")
		}
	}()
	g.AddOp("nn.relu", NodeID(7))
}

func TestCloneIsIndependent(t *testing.T) {
	g, _, _, d := buildDense(t)
	g.SetType(d, Type{Shape: Shape{1, 32}, DType: Float32})

	c := g.Clone()
	if !g.Equal(c) {
		t.Fatal("clone should compare equal to the original")
	}
	c.SetTarget(d, "ncnn")
	c.Node(d).Op = "nn.conv2d"
	if _, ok := g.Target(d); ok {
		t.Error("tagging the clone leaked into the original")
	}
	if g.Node(d).Op != "nn.dense" {
		t.Error("mutating the clone's node leaked into the original")
	}
}

func TestEqualIgnoresTypeAnnotations(t *testing.T) {
	a, _, _, d := buildDense(t)
	b := a.Clone()
	b.SetType(d, Type{Shape: Shape{1, 32}, DType: Float32})
	if !a.Equal(b) {
		t.Error("type annotations must not affect structural equality")
	}
	b.SetTarget(d, "ncnn")
	if a.Equal(b) {
		t.Error("target tags must affect structural equality")
	}
}

func TestAncestorSets(t *testing.T) {
	g := New()
	a := g.AddInput("a", Shape{2}, Float32)
	b := g.AddOp("nn.relu", a)
	c := g.AddOp("sigmoid", b)
	d := g.AddOp("add", a, c)
	g.SetOutputs(d)

	anc := g.AncestorSets()
	if !anc[d].Has(a) || !anc[d].Has(b) || !anc[d].Has(c) {
		t.Errorf("node %d should depend on all prior nodes", d)
	}
	if anc[b].Has(c) {
		t.Error("ancestor sets must not include descendants")
	}
	if anc[a].Has(a) {
		t.Error("a node is not its own ancestor")
	}
}

func TestUsers(t *testing.T) {
	g := New()
	a := g.AddInput("a", Shape{2}, Float32)
	b := g.AddOp("nn.relu", a)
	c := g.AddOp("add", a, b)
	g.SetOutputs(c)

	users := g.Users()
	if len(users[a]) != 2 {
		t.Errorf("input has %d users, want 2", len(users[a]))
	}
	if len(users[c]) != 0 {
		t.Errorf("output has %d users, want 0", len(users[c]))
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b, want Shape
		wantErr    bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{1, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{2, 5}, Shape{3, 5}, nil, true},
	}
	for _, tt := range tests {
		got, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v) expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v): %v", tt.a, tt.b, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("BroadcastShapes(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
