// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ncnn declares which operators and composite patterns the ncnn
// inference library can execute, and provides the one-call entry point
// that partitions a graph for it.
//
// The op and pattern sets are closed and statically declared here:
// integrating ncnn means calling RegisterOps and PatternTable during
// session setup, there is no runtime plugin discovery.
//
// Example:
//
//	g, _ := loader.Decode(desc)
//	prog, err := ncnn.Partition(g, map[string]*graph.Tensor{"w": weights})
//	for _, fn := range prog.Functions {
//	    blob, _ := ncnn.Codegen(fn) // hand blob to the ncnn compiler
//	}
package ncnn

import (
	"github.com/born-ml/relay/internal/graph"
	"github.com/born-ml/relay/internal/graphio"
	"github.com/born-ml/relay/internal/partition"
	"github.com/born-ml/relay/internal/pattern"
	"github.com/born-ml/relay/internal/registry"
)

// Target is the backend tag attached to every node ncnn will execute.
const Target = "ncnn"

// RegisterOps declares the operators ncnn supports standalone. Dense
// and convolution are refined to float32, the only dtype the runtime
// kernels handle; the rest are supported unconditionally.
func RegisterOps(reg *registry.Registry) {
	reg.RegisterOp(Target, "nn.dense", float32Only)
	reg.RegisterOp(Target, "nn.conv2d", conv2dSupported)
	reg.RegisterOp(Target, "nn.bias_add", nil)
	reg.RegisterOp(Target, "nn.relu", nil)
	reg.RegisterOp(Target, "nn.softmax", nil)
}

// PatternTable builds the composite patterns ncnn fuses into single
// layers. The composite entries come before anything that could match a
// sub-chain of them, so fused variants always win over lone operators.
func PatternTable() (*pattern.Table, error) {
	conv := pattern.Optional(
		pattern.Op("nn.conv2d", pattern.Wildcard(), pattern.IsConstant()),
		"nn.bias_add", pattern.IsConstant())
	conv = pattern.Optional(conv, "nn.relu")

	dense := pattern.Optional(
		pattern.Op("nn.dense", pattern.Wildcard(), pattern.IsConstant()),
		"nn.bias_add", pattern.IsConstant())
	dense = pattern.Optional(dense, "nn.relu")

	return pattern.NewTable(
		pattern.Entry{Name: "ncnn.conv2d", Pattern: conv, Check: checkAnchor("nn.conv2d")},
		pattern.Entry{Name: "ncnn.dense", Pattern: dense, Check: checkAnchor("nn.dense")},
	)
}

// Partition runs the offload pipeline for ncnn with a fresh session:
// bind consts, infer types, merge the pattern table, annotate supported
// nodes and split out the maximal ncnn regions.
func Partition(g *graph.Graph, consts map[string]*graph.Tensor) (*graph.Program, error) {
	reg := registry.New()
	RegisterOps(reg)
	table, err := PatternTable()
	if err != nil {
		return nil, err
	}
	p := partition.New(reg)
	if err := p.RegisterPatternTable(Target, table); err != nil {
		return nil, err
	}
	return p.PartitionForBackend(g, Target, consts)
}

// Codegen serializes an extracted function to the JSON graph the ncnn
// runtime module is created from.
func Codegen(fn *graph.Function) ([]byte, error) {
	return graphio.Codegen(fn)
}

func float32Only(g *graph.Graph, id graph.NodeID) bool {
	t, ok := g.Type(id)
	return ok && t.DType == graph.Float32
}

// conv2dSupported additionally requires constant weights, which the
// runtime needs at layer construction time.
func conv2dSupported(g *graph.Graph, id graph.NodeID) bool {
	if !float32Only(g, id) {
		return false
	}
	weight := g.Node(id).Inputs[1]
	return g.Node(weight).Kind == graph.KindConst
}

// checkAnchor validates a structural match: the anchor operator must
// produce float32, since that is all the runtime kernels execute.
func checkAnchor(op string) pattern.Check {
	return func(g *graph.Graph, m *pattern.Match) bool {
		id, ok := m.OpNode(g, op)
		if !ok {
			return false
		}
		return float32Only(g, id)
	}
}
