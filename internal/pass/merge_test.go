package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/relay/internal/graph"
	"github.com/born-ml/relay/internal/pattern"
)

// denseBiasGraph builds x -> dense(w) [-> bias_add(b)] with constant
// weight and bias, typed.
func denseBiasGraph(t *testing.T, withBias bool) *graph.Graph {
	t.Helper()
	g := graph.New()
	x := g.AddInput("x", graph.Shape{1, 64}, graph.Float32)
	w, err := graph.NewTensor(graph.Shape{32, 64}, graph.Float32, nil)
	require.NoError(t, err)
	d := g.AddOp("nn.dense", x, g.AddConst(w))
	root := d
	if withBias {
		b, err := graph.NewTensor(graph.Shape{32}, graph.Float32, nil)
		require.NoError(t, err)
		root = g.AddOp("nn.bias_add", d, g.AddConst(b))
	}
	g.SetOutputs(root)

	typed, err := InferTypes(g)
	require.NoError(t, err)
	return typed
}

func denseTable(t *testing.T) *pattern.Table {
	t.Helper()
	p := pattern.Optional(
		pattern.Op("nn.dense", pattern.Wildcard(), pattern.IsConstant()),
		"nn.bias_add", pattern.IsConstant())
	table, err := pattern.NewTable(pattern.Entry{Name: "acme.dense", Pattern: p})
	require.NoError(t, err)
	return table
}

func compositeNodes(g *graph.Graph) []graph.NodeID {
	var out []graph.NodeID
	for i := 0; i < g.NumNodes(); i++ {
		if g.Node(graph.NodeID(i)).Kind == graph.KindComposite {
			out = append(out, graph.NodeID(i))
		}
	}
	return out
}

func TestMergeOptionalBothVariants(t *testing.T) {
	table := denseTable(t)

	// Lone dense: the mandatory prefix alone must merge.
	lone := denseBiasGraph(t, false)
	merged, err := MergeComposite(lone, table)
	require.NoError(t, err)
	comps := compositeNodes(merged)
	require.Len(t, comps, 1)
	body := merged.Node(comps[0]).Body
	assert.Equal(t, 1, len(body.Outputs()))
	assert.Equal(t, "nn.dense", body.Node(body.Outputs()[0]).Op)

	// Dense feeding bias_add: the continuation must be absorbed.
	withBias := denseBiasGraph(t, true)
	merged, err = MergeComposite(withBias, table)
	require.NoError(t, err)
	comps = compositeNodes(merged)
	require.Len(t, comps, 1)
	body = merged.Node(comps[0]).Body
	assert.Equal(t, "nn.bias_add", body.Node(body.Outputs()[0]).Op,
		"fragment result should be the absorbed bias_add")

	// The merged graph sees only the composite, not its pieces.
	for i := 0; i < merged.NumNodes(); i++ {
		assert.NotEqual(t, graph.KindOp, merged.Node(graph.NodeID(i)).Kind,
			"no loose operator nodes should remain")
	}
}

func TestMergeDeclarationOrderPrecedence(t *testing.T) {
	specific := pattern.Entry{
		Name: "acme.dense_bias",
		Pattern: pattern.Optional(
			pattern.Op("nn.dense", pattern.Wildcard(), pattern.IsConstant()),
			"nn.bias_add", pattern.IsConstant()),
	}
	general := pattern.Entry{
		Name:    "acme.bias",
		Pattern: pattern.Op("nn.bias_add", pattern.Wildcard(), pattern.IsConstant()),
	}

	g := denseBiasGraph(t, true)

	table, err := pattern.NewTable(specific, general)
	require.NoError(t, err)
	merged, err := MergeComposite(g, table)
	require.NoError(t, err)
	comps := compositeNodes(merged)
	require.Len(t, comps, 1)
	assert.Equal(t, "acme.dense_bias", merged.Node(comps[0]).Op)

	// Reversing the declaration order flips the winner.
	table, err = pattern.NewTable(general, specific)
	require.NoError(t, err)
	merged, err = MergeComposite(g, table)
	require.NoError(t, err)
	comps = compositeNodes(merged)
	require.Len(t, comps, 1)
	assert.Equal(t, "acme.bias", merged.Node(comps[0]).Op)
}

func TestMergeCheckVeto(t *testing.T) {
	g := denseBiasGraph(t, true)

	veto := pattern.Entry{
		Name: "acme.never",
		Pattern: pattern.Optional(
			pattern.Op("nn.dense", pattern.Wildcard(), pattern.IsConstant()),
			"nn.bias_add", pattern.IsConstant()),
		Check: func(*graph.Graph, *pattern.Match) bool { return false },
	}
	fallback := pattern.Entry{
		Name:    "acme.bias",
		Pattern: pattern.Op("nn.bias_add", pattern.Wildcard(), pattern.IsConstant()),
	}

	table, err := pattern.NewTable(veto, fallback)
	require.NoError(t, err)
	merged, err := MergeComposite(g, table)
	require.NoError(t, err)

	comps := compositeNodes(merged)
	require.Len(t, comps, 1, "a vetoed match is no match; the next entry still runs")
	assert.Equal(t, "acme.bias", merged.Node(comps[0]).Op)
}

func TestMergeRejectsVisibleInterior(t *testing.T) {
	// The dense result feeds both bias_add and an outside relu, so
	// fusing dense+bias would orphan the relu's operand.
	g := graph.New()
	x := g.AddInput("x", graph.Shape{1, 64}, graph.Float32)
	w, err := graph.NewTensor(graph.Shape{32, 64}, graph.Float32, nil)
	require.NoError(t, err)
	b, err := graph.NewTensor(graph.Shape{32}, graph.Float32, nil)
	require.NoError(t, err)
	d := g.AddOp("nn.dense", x, g.AddConst(w))
	bias := g.AddOp("nn.bias_add", d, g.AddConst(b))
	relu := g.AddOp("nn.relu", d)
	g.SetOutputs(bias, relu)
	typed, err := InferTypes(g)
	require.NoError(t, err)

	merged, err := MergeComposite(typed, denseTable(t))
	require.NoError(t, err)

	// The greedy two-node match is rejected; the lone-dense variant
	// still fires on the dense node itself.
	comps := compositeNodes(merged)
	require.Len(t, comps, 1)
	body := merged.Node(comps[0]).Body
	assert.Equal(t, "nn.dense", body.Node(body.Outputs()[0]).Op)
}

func TestMergeEmptyTableIsIdentity(t *testing.T) {
	g := denseBiasGraph(t, true)
	merged, err := MergeComposite(g, nil)
	require.NoError(t, err)
	assert.True(t, g.Equal(merged))
}
