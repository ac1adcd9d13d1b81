package pass

import (
	"fmt"

	"github.com/born-ml/relay/internal/graph"
	"github.com/born-ml/relay/internal/pattern"
)

type foundMatch struct {
	entry pattern.Entry
	m     *pattern.Match
}

// MergeComposite applies a pattern table across the graph and collapses
// every validated match into a single composite node whose body holds
// the matched fragment. Nodes are visited consumers-first so optional
// continuations are matched greedily, and entries are tried in table
// order so the first (most specific) entry wins. A match whose interior
// nodes are visible outside the fragment is rejected, since merging it
// would orphan those uses.
func MergeComposite(g *graph.Graph, table *pattern.Table) (*graph.Graph, error) {
	if table == nil || len(table.Entries()) == 0 {
		return g.Clone(), nil
	}

	users := g.Users()
	isOutput := make(map[graph.NodeID]bool, len(g.Outputs()))
	for _, out := range g.Outputs() {
		isOutput[out] = true
	}

	consumed := make([]bool, g.NumNodes())
	matches := make(map[graph.NodeID]*foundMatch)
	for i := g.NumNodes() - 1; i >= 0; i-- {
		id := graph.NodeID(i)
		if consumed[id] || g.Node(id).Kind != graph.KindOp {
			continue
		}
		for _, e := range table.Entries() {
			m, ok := pattern.MatchAt(g, e.Pattern, id)
			if !ok || overlaps(m, consumed) || !interiorContained(m, users, isOutput) {
				continue
			}
			if e.Check != nil && !e.Check(g, m) {
				// Veto counts as no match; later entries still get a try.
				continue
			}
			for _, n := range m.Nodes {
				consumed[n] = true
			}
			matches[id] = &foundMatch{entry: e, m: m}
			break
		}
	}
	if len(matches) == 0 {
		return g.Clone(), nil
	}
	return rebuildMerged(g, matches, consumed)
}

func overlaps(m *pattern.Match, consumed []bool) bool {
	for _, n := range m.Nodes {
		if consumed[n] {
			return true
		}
	}
	return false
}

// interiorContained verifies that only the match root is visible outside
// the fragment: interior nodes may feed matched nodes only, and must not
// be graph outputs.
func interiorContained(m *pattern.Match, users [][]graph.NodeID, isOutput map[graph.NodeID]bool) bool {
	for _, id := range m.Nodes {
		if id == m.Root {
			continue
		}
		if isOutput[id] {
			return false
		}
		for _, u := range users[id] {
			if !m.Contains(u) {
				return false
			}
		}
	}
	return true
}

func rebuildMerged(g *graph.Graph, matches map[graph.NodeID]*foundMatch, consumed []bool) (*graph.Graph, error) {
	out := graph.New()
	remap := make([]graph.NodeID, g.NumNodes())
	for i := range remap {
		remap[i] = graph.InvalidNode
	}

	for i := 0; i < g.NumNodes(); i++ {
		id := graph.NodeID(i)
		if fm, ok := matches[id]; ok {
			cid, err := emitComposite(out, g, fm, remap)
			if err != nil {
				return nil, err
			}
			remap[id] = cid
			continue
		}
		if consumed[id] {
			continue // interior node, absorbed into its composite
		}
		remap[id] = copyNode(out, g, id, remap)
	}

	outputs := make([]graph.NodeID, len(g.Outputs()))
	for i, o := range g.Outputs() {
		outputs[i] = remap[o]
	}
	out.SetOutputs(outputs...)
	return out, nil
}

// emitComposite builds the fragment body and the composite node that
// replaces the matched nodes.
func emitComposite(out, g *graph.Graph, fm *foundMatch, remap []graph.NodeID) (graph.NodeID, error) {
	// External operands of the fragment, in first-use order.
	var ext []graph.NodeID
	seen := make(map[graph.NodeID]bool)
	for _, mid := range fm.m.Nodes {
		for _, in := range g.Node(mid).Inputs {
			if !fm.m.Contains(in) && !seen[in] {
				seen[in] = true
				ext = append(ext, in)
			}
		}
	}

	body := graph.New()
	bodyMap := make(map[graph.NodeID]graph.NodeID, len(fm.m.Nodes)+len(ext))
	for i, extID := range ext {
		t, ok := g.Type(extID)
		if !ok {
			return graph.InvalidNode, fmt.Errorf("merge %q: operand %d of fragment untyped", fm.entry.Name, extID)
		}
		name := g.Node(extID).Name
		if name == "" {
			name = fmt.Sprintf("p%d", i)
		}
		bodyMap[extID] = body.AddInput(name, t.Shape, t.DType)
	}
	for _, mid := range fm.m.Nodes {
		n := g.Node(mid)
		inputs := make([]graph.NodeID, len(n.Inputs))
		for j, in := range n.Inputs {
			inputs[j] = bodyMap[in]
		}
		bid := body.AddOp(n.Op, inputs...)
		for k, v := range n.Attrs {
			body.SetAttr(bid, k, v)
		}
		if t, ok := g.Type(mid); ok {
			body.SetType(bid, t)
		}
		bodyMap[mid] = bid
	}
	body.SetOutputs(bodyMap[fm.m.Root])

	args := make([]graph.NodeID, len(ext))
	for i, extID := range ext {
		args[i] = remap[extID]
	}
	cid := out.AddComposite(fm.entry.Name, body, args...)
	if t, ok := g.Type(fm.m.Root); ok {
		out.SetType(cid, t)
	}
	return cid, nil
}

// copyNode clones one node of g into out, remapping its operands.
// Parameter membership, attributes, payloads and annotations follow.
func copyNode(out, g *graph.Graph, id graph.NodeID, remap []graph.NodeID) graph.NodeID {
	n := g.Node(id)
	inputs := make([]graph.NodeID, len(n.Inputs))
	for j, in := range n.Inputs {
		inputs[j] = remap[in]
	}

	var nid graph.NodeID
	switch n.Kind {
	case graph.KindInput:
		t, _ := g.Type(id)
		nid = out.AddInput(n.Name, t.Shape, t.DType)
	case graph.KindConst:
		nid = out.AddConst(n.Value)
		out.Node(nid).Name = n.Name // keep the binding name of bound constants
	case graph.KindOp:
		nid = out.AddOp(n.Op, inputs...)
	case graph.KindComposite:
		nid = out.AddComposite(n.Op, n.Body.Clone(), inputs...)
	case graph.KindCall:
		nid = out.AddCall(n.Name, n.Func, n.NumOut, inputs...)
	case graph.KindProj:
		nid = out.AddProj(inputs[0], n.Index)
	}
	for k, v := range n.Attrs {
		out.SetAttr(nid, k, v)
	}
	if t, ok := g.Type(id); ok {
		out.SetType(nid, t)
	}
	if target, ok := g.Target(id); ok {
		out.SetTarget(nid, target)
	}
	return nid
}
