// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph exposes the computation graph IR consumed and produced
// by the partitioning pipeline.
//
// A Graph is an arena of nodes addressed by NodeID; type and backend
// annotations live in side tables keyed by those ids. The arena is
// append-only and operands must exist before their users, so index
// order is always a valid topological order.
//
// Example:
//
//	g := graph.New()
//	x := g.AddInput("x", graph.Shape{1, 64}, graph.Float32)
//	w := g.AddInput("w", graph.Shape{32, 64}, graph.Float32)
//	d := g.AddOp("nn.dense", x, w)
//	g.SetOutputs(d)
package graph

import "github.com/born-ml/relay/internal/graph"

// Graph is the arena-backed computation graph.
type Graph = graph.Graph

// Node is one arena entry; Kind discriminates the variants.
type Node = graph.Node

// NodeID addresses a node within its graph's arena.
type NodeID = graph.NodeID

// InvalidNode is the "no node" sentinel.
const InvalidNode = graph.InvalidNode

// Kind discriminates node variants.
type Kind = graph.Kind

// Node kinds.
const (
	KindInput     = graph.KindInput
	KindConst     = graph.KindConst
	KindOp        = graph.KindOp
	KindComposite = graph.KindComposite
	KindCall      = graph.KindCall
	KindProj      = graph.KindProj
)

// Shape represents value dimensions.
type Shape = graph.Shape

// DataType is runtime type information for node outputs.
type DataType = graph.DataType

// Supported data types.
const (
	Float32 = graph.Float32
	Float64 = graph.Float64
	Int32   = graph.Int32
	Int64   = graph.Int64
	Uint8   = graph.Uint8
	Bool    = graph.Bool
)

// Type is a node's output shape and dtype.
type Type = graph.Type

// Tensor is a constant payload.
type Tensor = graph.Tensor

// Function is an extracted sub-function destined for a backend compiler.
type Function = graph.Function

// Program is a partitioned graph plus its extracted functions.
type Program = graph.Program

// New creates an empty graph.
func New() *Graph { return graph.New() }

// NewTensor creates a constant tensor.
func NewTensor(shape Shape, dtype DataType, data []float32) (*Tensor, error) {
	return graph.NewTensor(shape, dtype, data)
}
