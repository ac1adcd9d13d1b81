// Package graphio reads textual graph descriptions and writes the JSON
// form of extracted functions consumed by the external backend runtime.
package graphio

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/relay/internal/graph"
)

// yamlValue declares an input or constant of the graph.
type yamlValue struct {
	Name  string    `yaml:"name"`
	Shape []int     `yaml:"shape"`
	DType string    `yaml:"dtype"`
	Data  []float32 `yaml:"data,omitempty"`
}

// yamlNode declares one operator application.
type yamlNode struct {
	Name   string         `yaml:"name"`
	Op     string         `yaml:"op"`
	Inputs []string       `yaml:"inputs"`
	Attrs  map[string]any `yaml:"attrs,omitempty"`
}

type yamlGraph struct {
	Inputs  []yamlValue `yaml:"inputs"`
	Consts  []yamlValue `yaml:"consts,omitempty"`
	Nodes   []yamlNode  `yaml:"nodes"`
	Outputs []string    `yaml:"outputs"`
}

// DecodeYAML builds a graph from its YAML description. Nodes reference
// each other by name; inputs and constants must be declared before use.
func DecodeYAML(data []byte) (*graph.Graph, error) {
	var doc yamlGraph
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph yaml: %w", err)
	}

	g := graph.New()
	byName := make(map[string]graph.NodeID)
	define := func(name string, id graph.NodeID) error {
		if name == "" {
			return fmt.Errorf("node %d has no name", id)
		}
		if _, ok := byName[name]; ok {
			return fmt.Errorf("duplicate node name %q", name)
		}
		byName[name] = id
		return nil
	}

	for _, in := range doc.Inputs {
		dt, ok := graph.ParseDataType(in.DType)
		if !ok {
			return nil, fmt.Errorf("input %q: unknown dtype %q", in.Name, in.DType)
		}
		if err := define(in.Name, g.AddInput(in.Name, graph.Shape(in.Shape), dt)); err != nil {
			return nil, err
		}
	}
	for _, c := range doc.Consts {
		dt, ok := graph.ParseDataType(c.DType)
		if !ok {
			return nil, fmt.Errorf("const %q: unknown dtype %q", c.Name, c.DType)
		}
		value, err := graph.NewTensor(graph.Shape(c.Shape), dt, c.Data)
		if err != nil {
			return nil, fmt.Errorf("const %q: %w", c.Name, err)
		}
		id := g.AddConst(value)
		g.Node(id).Name = c.Name
		if err := define(c.Name, id); err != nil {
			return nil, err
		}
	}
	for _, n := range doc.Nodes {
		inputs := make([]graph.NodeID, len(n.Inputs))
		for i, ref := range n.Inputs {
			id, ok := byName[ref]
			if !ok {
				return nil, fmt.Errorf("node %q: undefined input %q", n.Name, ref)
			}
			inputs[i] = id
		}
		id := g.AddOp(n.Op, inputs...)
		for k, v := range n.Attrs {
			g.SetAttr(id, k, v)
		}
		if err := define(n.Name, id); err != nil {
			return nil, err
		}
	}

	outputs := make([]graph.NodeID, len(doc.Outputs))
	for i, ref := range doc.Outputs {
		id, ok := byName[ref]
		if !ok {
			return nil, fmt.Errorf("undefined output %q", ref)
		}
		outputs[i] = id
	}
	g.SetOutputs(outputs...)
	return g, nil
}
