// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader reads textual graph descriptions.
//
// The YAML form declares inputs, optional embedded constants, operator
// nodes and outputs, all referenced by name:
//
//	inputs:
//	  - {name: x, shape: [1, 64], dtype: float32}
//	consts:
//	  - {name: w, shape: [32, 64], dtype: float32}
//	nodes:
//	  - {name: fc, op: nn.dense, inputs: [x, w]}
//	outputs: [fc]
package loader

import (
	"fmt"
	"os"

	"github.com/born-ml/relay/graph"
	"github.com/born-ml/relay/internal/graphio"
)

// Decode builds a graph from its YAML description.
func Decode(data []byte) (*graph.Graph, error) {
	return graphio.DecodeYAML(data)
}

// DecodeFile builds a graph from a YAML file.
func DecodeFile(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return graphio.DecodeYAML(data)
}
