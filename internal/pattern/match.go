package pattern

import (
	"sort"

	"github.com/born-ml/relay/internal/graph"
)

// Match is a successful structural match: the root is the consumer-most
// matched operator and Nodes lists every operator the match consumed,
// in ascending arena order. Wildcard and constant leaves are operands
// of the fragment, not part of it, so they are not listed.
type Match struct {
	Root  graph.NodeID
	Nodes []graph.NodeID
}

// OpNode finds the matched node running the named operator. Patterns
// never consume the same operator twice, so the first hit is the only
// one.
func (m *Match) OpNode(g *graph.Graph, op string) (graph.NodeID, bool) {
	for _, id := range m.Nodes {
		if g.Node(id).Op == op {
			return id, true
		}
	}
	return graph.InvalidNode, false
}

// Contains reports whether the match consumed the given node.
func (m *Match) Contains(id graph.NodeID) bool {
	for _, n := range m.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// MatchAt attempts to match pat against the subgraph rooted at id.
// Optional continuations are greedy: if the continuation op is present
// at the root it is included in the match.
func MatchAt(g *graph.Graph, pat MatchNode, id graph.NodeID) (*Match, bool) {
	consumed, ok := matchAt(g, pat, id)
	if !ok {
		return nil, false
	}
	sort.Slice(consumed, func(i, j int) bool { return consumed[i] < consumed[j] })
	// Dedup in case two pattern arms touched the same node.
	nodes := consumed[:0]
	for i, n := range consumed {
		if i == 0 || consumed[i-1] != n {
			nodes = append(nodes, n)
		}
	}
	return &Match{Root: id, Nodes: nodes}, true
}

func matchAt(g *graph.Graph, pat MatchNode, id graph.NodeID) ([]graph.NodeID, bool) {
	switch p := pat.(type) {
	case *WildcardMatch:
		return nil, true
	case *ConstantMatch:
		if g.Node(id).Kind != graph.KindConst {
			return nil, false
		}
		return nil, true
	case *OpMatch:
		n := g.Node(id)
		if n.Kind != graph.KindOp || n.Op != p.OpName || len(n.Inputs) != len(p.Args) {
			return nil, false
		}
		consumed := []graph.NodeID{id}
		for i, arg := range p.Args {
			sub, ok := matchAt(g, arg, n.Inputs[i])
			if !ok {
				return nil, false
			}
			consumed = append(consumed, sub...)
		}
		return consumed, true
	case *OptionalMatch:
		if consumed, ok := matchAt(g, p.Inner, id); ok {
			return consumed, true
		}
		return matchAt(g, p.Inner.Args[0], id)
	default:
		return nil, false
	}
}
