package graph

// The arena is append-only and operands must exist before their users,
// so ascending NodeID order is already a topological order. The helpers
// here build on that invariant; every pass that needs determinism
// iterates in plain index order (or its reverse).

// Bitset is a fixed-capacity set of NodeIDs.
type Bitset []uint64

func NewBitset(n int) Bitset { return make(Bitset, (n+63)/64) }

func (b Bitset) Set(id NodeID)      { b[id/64] |= 1 << (uint(id) % 64) }
func (b Bitset) Has(id NodeID) bool { return b[id/64]&(1<<(uint(id)%64)) != 0 }

// Or adds every element of other to b. Both sets must share capacity.
func (b Bitset) Or(other Bitset) {
	for i := range b {
		b[i] |= other[i]
	}
}

// Intersects reports whether the two sets share any element.
func (b Bitset) Intersects(other Bitset) bool {
	for i := range b {
		if b[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// AncestorSets computes, for every node, the set of nodes it transitively
// depends on (not including itself). One forward sweep suffices because
// index order is topological.
func (g *Graph) AncestorSets() []Bitset {
	sets := make([]Bitset, len(g.nodes))
	for i := range g.nodes {
		sets[i] = NewBitset(len(g.nodes))
		for _, in := range g.nodes[i].Inputs {
			sets[i].Set(in)
			sets[i].Or(sets[in])
		}
	}
	return sets
}
