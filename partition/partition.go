// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package partition exposes the offload pipeline: given a graph, a
// backend name and optional constant bindings, it returns a program in
// which every maximal backend-eligible region has been extracted into a
// separately compiled function.
//
// Example:
//
//	reg := registry.New()
//	ncnn.RegisterOps(reg)
//	table, _ := ncnn.PatternTable()
//
//	p := partition.New(reg)
//	_ = p.RegisterPatternTable(ncnn.Target, table)
//	prog, err := p.PartitionForBackend(g, ncnn.Target, consts)
package partition

import (
	"github.com/born-ml/relay/internal/partition"
	"github.com/born-ml/relay/registry"
)

// Partitioner bundles a session's registry and pattern tables.
type Partitioner = partition.Partitioner

// ErrDuplicateTable is reported when a backend registers two tables.
var ErrDuplicateTable = partition.ErrDuplicateTable

// New creates a partitioner over a populated registry.
func New(reg *registry.Registry) *Partitioner { return partition.New(reg) }
