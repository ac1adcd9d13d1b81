package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/relay/internal/graph"
)

func TestBindConstants(t *testing.T) {
	g := graph.New()
	x := g.AddInput("x", graph.Shape{1, 64}, graph.Float32)
	w := g.AddInput("w", graph.Shape{32, 64}, graph.Float32)
	g.SetOutputs(g.AddOp("nn.dense", x, w))

	weights, err := graph.NewTensor(graph.Shape{32, 64}, graph.Float32, nil)
	require.NoError(t, err)

	bound, err := BindConstants(g, map[string]*graph.Tensor{"w": weights})
	require.NoError(t, err)

	assert.Equal(t, graph.KindConst, bound.Node(w).Kind)
	assert.Equal(t, weights, bound.Node(w).Value)
	require.Len(t, bound.Inputs(), 1, "the bound input is no longer a parameter")
	assert.Equal(t, x, bound.Inputs()[0])

	// The caller's graph is untouched.
	assert.Equal(t, graph.KindInput, g.Node(w).Kind)
	assert.Len(t, g.Inputs(), 2)
}

func TestBindConstantsIgnoresUnknownNames(t *testing.T) {
	g := graph.New()
	x := g.AddInput("x", graph.Shape{4}, graph.Float32)
	g.SetOutputs(g.AddOp("nn.relu", x))

	c, err := graph.NewTensor(graph.Shape{4}, graph.Float32, nil)
	require.NoError(t, err)
	bound, err := BindConstants(g, map[string]*graph.Tensor{"nope": c})
	require.NoError(t, err)
	assert.True(t, g.Equal(bound))
}

func TestBindConstantsTypeMismatch(t *testing.T) {
	g := graph.New()
	x := g.AddInput("x", graph.Shape{4}, graph.Float32)
	g.SetOutputs(g.AddOp("nn.relu", x))

	c, err := graph.NewTensor(graph.Shape{5}, graph.Float32, nil)
	require.NoError(t, err)
	_, err = BindConstants(g, map[string]*graph.Tensor{"x": c})
	assert.Error(t, err)
}
