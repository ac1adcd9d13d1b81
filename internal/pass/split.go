package pass

import (
	"fmt"
	"sort"

	"github.com/born-ml/relay/internal/graph"
)

// PartitionGraph carves the maximal legal regions of backend-tagged
// nodes out of the graph. Each region becomes one extracted Function;
// edges into the region become explicit parameters, edges out of it
// become results, and the region is replaced by a single call node
// (plus projections when a region has several results).
//
// Legality: extracting a region must not create a cycle in the rewritten
// program. A region therefore never absorbs a node when some path leaves
// the region and re-enters it through untagged nodes; such candidates
// are split into smaller regions instead. The whole assignment walks
// nodes in arena (topological) order, so the shrunk boundaries are
// deterministic for a given input graph.
func PartitionGraph(g *graph.Graph, backend string) (*graph.Program, error) {
	n := g.NumNodes()
	anc := g.AncestorSets()

	tagged := func(id graph.NodeID) bool {
		t, ok := g.Target(id)
		return ok && t == backend
	}

	// legal reports whether the node set S can be extracted as one
	// function: no outside node may both depend on S and feed S.
	legal := func(s graph.Bitset, members []graph.NodeID) bool {
		feeds := graph.NewBitset(n)
		for _, m := range members {
			feeds.Or(anc[m])
		}
		for i := 0; i < n; i++ {
			u := graph.NodeID(i)
			if s.Has(u) {
				continue
			}
			if feeds.Has(u) && anc[u].Intersects(s) {
				return false
			}
		}
		return true
	}

	region := make([]int, n)
	for i := range region {
		region[i] = -1
	}
	var members [][]graph.NodeID // per region, nil once merged away
	var sets []graph.Bitset

	trial := func(id graph.NodeID, regions []int) bool {
		s := graph.NewBitset(n)
		all := []graph.NodeID{id}
		for _, r := range regions {
			s.Or(sets[r])
			all = append(all, members[r]...)
		}
		s.Set(id)
		return legal(s, all)
	}

	join := func(id graph.NodeID, r int) {
		region[id] = r
		members[r] = append(members[r], id)
		sets[r].Set(id)
	}

	for i := 0; i < n; i++ {
		id := graph.NodeID(i)
		if !tagged(id) {
			continue
		}
		var cands []int
		for _, in := range g.Node(id).Inputs {
			r := region[in]
			if r < 0 {
				continue
			}
			dup := false
			for _, c := range cands {
				dup = dup || c == r
			}
			if !dup {
				cands = append(cands, r)
			}
		}
		sort.Ints(cands)

		switch {
		case len(cands) > 0 && trial(id, cands):
			// Merge every candidate region through this node.
			dst := cands[0]
			for _, r := range cands[1:] {
				for _, m := range members[r] {
					region[m] = dst
				}
				members[dst] = append(members[dst], members[r]...)
				sets[dst].Or(sets[r])
				members[r] = nil
			}
			join(id, dst)
		default:
			joined := false
			for _, r := range cands {
				if trial(id, []int{r}) {
					join(id, r)
					joined = true
					break
				}
			}
			if !joined {
				region[id] = len(members)
				members = append(members, []graph.NodeID{id})
				s := graph.NewBitset(n)
				s.Set(id)
				sets = append(sets, s)
			}
		}
	}

	// Live regions in deterministic order (by smallest member).
	var live []int
	for r := range members {
		if members[r] != nil {
			sort.Slice(members[r], func(a, b int) bool { return members[r][a] < members[r][b] })
			live = append(live, r)
		}
	}
	sort.Slice(live, func(a, b int) bool { return members[live[a]][0] < members[live[b]][0] })
	if len(live) == 0 {
		return &graph.Program{Main: g.Clone()}, nil
	}
	return extract(g, backend, region, members, live)
}

// extract rewrites the graph with one call per region. Emission follows
// a topological order over the condensation of regions and remaining
// nodes, picking the ready super-node with the smallest original id so
// the rewritten arena is deterministic.
func extract(g *graph.Graph, backend string, region []int, members [][]graph.NodeID, live []int) (*graph.Program, error) {
	n := g.NumNodes()
	users := g.Users()
	isOutput := make(map[graph.NodeID]bool, len(g.Outputs()))
	for _, out := range g.Outputs() {
		isOutput[out] = true
	}

	// Super-node ids: one per live region, then one per free node.
	superIndex := make(map[int]int, len(live)) // region -> super
	type super struct {
		key   graph.NodeID // smallest original node id
		nodes []graph.NodeID
		reg   int // -1 for free nodes
	}
	var supers []super
	for _, r := range live {
		superIndex[r] = len(supers)
		supers = append(supers, super{key: members[r][0], nodes: members[r], reg: r})
	}
	superOf := make([]int, n)
	for i := 0; i < n; i++ {
		id := graph.NodeID(i)
		if r := region[id]; r >= 0 {
			superOf[id] = superIndex[r]
			continue
		}
		superOf[id] = len(supers)
		supers = append(supers, super{key: id, nodes: []graph.NodeID{id}, reg: -1})
	}

	indeg := make([]int, len(supers))
	for i := 0; i < n; i++ {
		for _, in := range g.Node(graph.NodeID(i)).Inputs {
			if superOf[in] != superOf[graph.NodeID(i)] {
				indeg[superOf[graph.NodeID(i)]]++
			}
		}
	}

	order := make([]int, 0, len(supers))
	bySmallest := make([]int, len(supers))
	for i := range bySmallest {
		bySmallest[i] = i
	}
	sort.Slice(bySmallest, func(a, b int) bool { return supers[bySmallest[a]].key < supers[bySmallest[b]].key })
	emitted := make([]bool, len(supers))
	for len(order) < len(supers) {
		progress := false
		for _, s := range bySmallest {
			if emitted[s] || indeg[s] != 0 {
				continue
			}
			emitted[s] = true
			order = append(order, s)
			for _, m := range supers[s].nodes {
				for _, u := range users[m] {
					if superOf[u] != s {
						indeg[superOf[u]]--
					}
				}
			}
			progress = true
			break
		}
		if !progress {
			// Region assignment guarantees an acyclic condensation.
			return nil, fmt.Errorf("partition: condensed graph for backend %q is cyclic", backend)
		}
	}

	out := graph.New()
	remap := make([]graph.NodeID, n)
	for i := range remap {
		remap[i] = graph.InvalidNode
	}
	var funcs []*graph.Function

	for _, s := range order {
		sp := supers[s]
		if sp.reg < 0 {
			id := sp.nodes[0]
			remap[id] = copyNode(out, g, id, remap)
			continue
		}
		if err := emitRegion(out, g, sp.nodes, backend, &funcs, remap, users, isOutput); err != nil {
			return nil, err
		}
	}

	outputs := make([]graph.NodeID, len(g.Outputs()))
	for i, o := range g.Outputs() {
		outputs[i] = remap[o]
	}
	out.SetOutputs(outputs...)
	return &graph.Program{Main: out, Functions: funcs}, nil
}

// emitRegion extracts one region into a Function and a call node.
func emitRegion(out, g *graph.Graph, nodes []graph.NodeID, backend string, funcs *[]*graph.Function,
	remap []graph.NodeID, users [][]graph.NodeID, isOutput map[graph.NodeID]bool) error {

	inRegion := make(map[graph.NodeID]bool, len(nodes))
	for _, id := range nodes {
		inRegion[id] = true
	}

	// Inbound edges become parameters, in first-use order.
	var ext []graph.NodeID
	seen := make(map[graph.NodeID]bool)
	for _, id := range nodes {
		for _, in := range g.Node(id).Inputs {
			if !inRegion[in] && !seen[in] {
				seen[in] = true
				ext = append(ext, in)
			}
		}
	}

	// Outbound edges (and graph outputs) become results.
	var results []graph.NodeID
	for _, id := range nodes {
		visible := isOutput[id]
		for _, u := range users[id] {
			visible = visible || !inRegion[u]
		}
		if visible {
			results = append(results, id)
		}
	}

	body := graph.New()
	bodyMap := make(map[graph.NodeID]graph.NodeID, len(nodes)+len(ext))
	for i, extID := range ext {
		t, ok := g.Type(extID)
		if !ok {
			return fmt.Errorf("partition: region operand %d untyped", extID)
		}
		name := g.Node(extID).Name
		if name == "" {
			name = fmt.Sprintf("p%d", i)
		}
		bodyMap[extID] = body.AddInput(name, t.Shape, t.DType)
	}
	for _, id := range nodes {
		n := g.Node(id)
		inputs := make([]graph.NodeID, len(n.Inputs))
		for j, in := range n.Inputs {
			inputs[j] = bodyMap[in]
		}
		var bid graph.NodeID
		switch n.Kind {
		case graph.KindOp:
			bid = body.AddOp(n.Op, inputs...)
		case graph.KindComposite:
			bid = body.AddComposite(n.Op, n.Body.Clone(), inputs...)
		default:
			return fmt.Errorf("partition: %s node %d cannot be extracted", n.Kind, id)
		}
		for k, v := range n.Attrs {
			body.SetAttr(bid, k, v)
		}
		if t, ok := g.Type(id); ok {
			body.SetType(bid, t)
		}
		bodyMap[id] = bid
	}
	bodyOuts := make([]graph.NodeID, len(results))
	for i, r := range results {
		bodyOuts[i] = bodyMap[r]
	}
	body.SetOutputs(bodyOuts...)

	name := fmt.Sprintf("%s_%d", backend, len(*funcs))
	*funcs = append(*funcs, &graph.Function{Name: name, Target: backend, Body: body})

	args := make([]graph.NodeID, len(ext))
	for i, extID := range ext {
		args[i] = remap[extID]
	}
	call := out.AddCall(name, len(*funcs)-1, len(results), args...)
	if len(results) == 1 {
		if t, ok := g.Type(results[0]); ok {
			out.SetType(call, t)
		}
		remap[results[0]] = call
		return nil
	}
	for i, r := range results {
		pid := out.AddProj(call, i)
		if t, ok := g.Type(r); ok {
			out.SetType(pid, t)
		}
		remap[r] = pid
	}
	return nil
}
