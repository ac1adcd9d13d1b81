// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package registry exposes the per-session operator support registry.
//
// A registry is built explicitly during setup; there is no ambient
// process-global registration, so each compiler session starts from a
// clean slate and the completeness of registration is observable.
package registry

import "github.com/born-ml/relay/internal/registry"

// Registry maps (backend, operator) pairs to support predicates.
type Registry = registry.Registry

// Predicate decides support for one node given its resolved type context.
type Predicate = registry.Predicate

// New creates an empty registry for a fresh compiler session.
func New() *Registry { return registry.New() }
