// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pattern exposes the composite pattern language used by
// backend integrations to describe fusable operator chains.
//
// Example: dense optionally followed by a bias add:
//
//	p := pattern.Optional(
//	    pattern.Op("nn.dense", pattern.Wildcard(), pattern.IsConstant()),
//	    "nn.bias_add", pattern.IsConstant())
//	table, err := pattern.NewTable(
//	    pattern.Entry{Name: "acme.dense", Pattern: p},
//	)
package pattern

import "github.com/born-ml/relay/internal/pattern"

// MatchNode is one node of a pattern tree.
type MatchNode = pattern.MatchNode

// OpMatch matches an operator application by name.
type OpMatch = pattern.OpMatch

// WildcardMatch matches any node.
type WildcardMatch = pattern.WildcardMatch

// ConstantMatch matches a constant node.
type ConstantMatch = pattern.ConstantMatch

// OptionalMatch matches its inner pattern when present and falls back
// to the inner pattern's first argument otherwise.
type OptionalMatch = pattern.OptionalMatch

// Match is a successful structural match.
type Match = pattern.Match

// Check validates a structural match before merging.
type Check = pattern.Check

// Entry is a named pattern with its validation predicate.
type Entry = pattern.Entry

// Table is an ordered, immutable pattern collection.
type Table = pattern.Table

// Configuration errors reported by NewTable.
var (
	ErrDuplicateName    = pattern.ErrDuplicateName
	ErrMalformedPattern = pattern.ErrMalformedPattern
)

// Op builds a pattern node matching the named operator.
func Op(name string, args ...MatchNode) *OpMatch { return pattern.Op(name, args...) }

// Wildcard builds a pattern node matching anything.
func Wildcard() MatchNode { return pattern.Wildcard() }

// IsConstant builds a pattern node matching a constant.
func IsConstant() MatchNode { return pattern.IsConstant() }

// Optional extends a pattern with an optional consumer operator.
func Optional(prev MatchNode, name string, extra ...MatchNode) MatchNode {
	return pattern.Optional(prev, name, extra...)
}

// NewTable validates entries and builds an ordered table.
func NewTable(entries ...Entry) (*Table, error) { return pattern.NewTable(entries...) }
