package graphio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/relay/internal/graph"
)

const exampleYAML = `
inputs:
  - {name: x, shape: [1, 64], dtype: float32}
consts:
  - {name: w, shape: [32, 64], dtype: float32}
  - {name: b, shape: [32], dtype: float32}
nodes:
  - {name: fc, op: nn.dense, inputs: [x, w]}
  - {name: biased, op: nn.bias_add, inputs: [fc, b], attrs: {axis: 1}}
outputs: [biased]
`

func TestDecodeYAML(t *testing.T) {
	g, err := DecodeYAML([]byte(exampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 5, g.NumNodes())
	require.Len(t, g.Inputs(), 1)
	require.Len(t, g.Outputs(), 1)

	x := g.Inputs()[0]
	tt, ok := g.Type(x)
	require.True(t, ok)
	assert.True(t, tt.Shape.Equal(graph.Shape{1, 64}))
	assert.Equal(t, graph.Float32, tt.DType)

	out := g.Node(g.Outputs()[0])
	assert.Equal(t, "nn.bias_add", out.Op)
	assert.Equal(t, 1, g.IntAttr(g.Outputs()[0], "axis", -1))
	assert.Equal(t, graph.KindConst, g.Node(out.Inputs[1]).Kind)
}

func TestDecodeYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"undefined input reference", `
nodes:
  - {name: r, op: nn.relu, inputs: [nope]}
outputs: [r]
`},
		{"undefined output", `
inputs:
  - {name: x, shape: [4], dtype: float32}
outputs: [nope]
`},
		{"duplicate name", `
inputs:
  - {name: x, shape: [4], dtype: float32}
nodes:
  - {name: x, op: nn.relu, inputs: [x]}
outputs: [x]
`},
		{"unknown dtype", `
inputs:
  - {name: x, shape: [4], dtype: float13}
outputs: [x]
`},
		{"const data length mismatch", `
consts:
  - {name: c, shape: [2], dtype: float32, data: [1.0]}
outputs: [c]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}
