// Package registry tracks which operators each external backend can
// execute. A Registry is constructed fresh per compiler session and
// populated during single-threaded setup; pipeline invocations only
// read from it afterwards, so concurrent partitioning runs may share
// one Registry.
package registry

import "github.com/born-ml/relay/internal/graph"

// Predicate decides whether a backend supports one particular node,
// given the node's resolved shape/dtype context. It must be pure.
type Predicate func(g *graph.Graph, id graph.NodeID) bool

// Registry maps (backend, operator) pairs to support predicates.
type Registry struct {
	ops map[string]map[string]Predicate
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]map[string]Predicate)}
}

// RegisterOp declares that backend supports op. A nil predicate means
// unconditional support. Re-registering the same (backend, op) pair
// replaces the prior predicate; last registration wins. This is
// intentional, so refining a default-true registration later is not an
// error.
func (r *Registry) RegisterOp(backend, op string, pred Predicate) {
	if pred == nil {
		pred = func(*graph.Graph, graph.NodeID) bool { return true }
	}
	m, ok := r.ops[backend]
	if !ok {
		m = make(map[string]Predicate)
		r.ops[backend] = m
	}
	m[op] = pred
}

// IsSupported reports whether backend can execute the node at id. An
// operator that was never registered is simply unsupported; that is the
// normal "stay on the default path" outcome, never an error.
func (r *Registry) IsSupported(backend, op string, g *graph.Graph, id graph.NodeID) bool {
	pred, ok := r.ops[backend][op]
	if !ok {
		return false
	}
	return pred(g, id)
}

// SupportedOps returns the operator names registered for a backend.
// Intended for diagnostics; order is unspecified.
func (r *Registry) SupportedOps(backend string) []string {
	ops := make([]string, 0, len(r.ops[backend]))
	for op := range r.ops[backend] {
		ops = append(ops, op)
	}
	return ops
}
