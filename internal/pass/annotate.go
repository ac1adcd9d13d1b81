package pass

import (
	"github.com/born-ml/relay/internal/graph"
	"github.com/born-ml/relay/internal/registry"
)

// AnnotateTarget tags every node the backend can execute. Composite
// nodes were produced by the backend's own pattern table, so they
// inherit the backend tag directly; plain operator nodes consult the
// support registry with their resolved type context. Inputs, constants
// and call nodes stay untagged; calls from a previous partitioning are
// opaque and never re-offloaded.
func AnnotateTarget(g *graph.Graph, backend string, reg *registry.Registry) (*graph.Graph, error) {
	out := g.Clone()
	for i := 0; i < out.NumNodes(); i++ {
		id := graph.NodeID(i)
		switch n := out.Node(id); n.Kind {
		case graph.KindComposite:
			out.SetTarget(id, backend)
		case graph.KindOp:
			if reg.IsSupported(backend, n.Op, out, id) {
				out.SetTarget(id, backend)
			}
		}
	}
	return out, nil
}
