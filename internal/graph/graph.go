package graph

import "fmt"

// NodeID is an index into a graph's node arena.
type NodeID int

// InvalidNode is the zero-value-adjacent sentinel for "no node".
const InvalidNode NodeID = -1

// Kind discriminates the node variants of the IR.
type Kind int

// Node kinds.
const (
	KindInput     Kind = iota // graph parameter, bound by the caller
	KindConst                 // embedded constant tensor
	KindOp                    // application of a named operator
	KindComposite             // merged pattern fragment (Body holds the fragment)
	KindCall                  // call to an extracted function
	KindProj                  // selects one result of a multi-result call
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConst:
		return "const"
	case KindOp:
		return "op"
	case KindComposite:
		return "composite"
	case KindCall:
		return "call"
	case KindProj:
		return "proj"
	default:
		return "unknown"
	}
}

// Type is the inferred or declared output type of a node.
type Type struct {
	Shape Shape
	DType DataType
}

// Node is one entry in the graph arena. Which fields are meaningful
// depends on Kind; the zero value of the rest is ignored.
type Node struct {
	Kind   Kind
	Op     string // operator name (KindOp) or composite name (KindComposite)
	Name   string // binding name for KindInput, symbol for KindCall
	Inputs []NodeID
	Attrs  map[string]any
	Value  *Tensor // KindConst payload
	Body   *Graph  // KindComposite fragment
	Func   int     // KindCall: index into Program.Functions
	NumOut int     // KindCall: number of results
	Index  int     // KindProj: which result of the call input
}

// Graph is an arena of nodes addressed by NodeID. The arena is
// append-only and builders require operands to exist before their users,
// so index order is always a valid topological order. Type and target
// annotations live in side tables keyed by NodeID rather than on the
// nodes themselves.
type Graph struct {
	nodes   []Node
	inputs  []NodeID
	outputs []NodeID

	types   map[NodeID]Type
	targets map[NodeID]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		types:   make(map[NodeID]Type),
		targets: make(map[NodeID]string),
	}
}

// NumNodes returns the number of nodes in the arena.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Node returns the node stored at id. The pointer stays valid until the
// next Add call.
func (g *Graph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

// Inputs returns the graph parameter nodes in declaration order.
func (g *Graph) Inputs() []NodeID { return g.inputs }

// Outputs returns the graph result nodes in declaration order.
func (g *Graph) Outputs() []NodeID { return g.outputs }

// SetOutputs declares the graph results.
func (g *Graph) SetOutputs(ids ...NodeID) {
	g.outputs = append(g.outputs[:0], ids...)
}

// SetInputs replaces the graph parameter list. Used by passes that
// rebind parameters; ordinary construction goes through AddInput.
func (g *Graph) SetInputs(ids []NodeID) {
	g.inputs = ids
}

// AddInput appends a graph parameter with a declared type.
func (g *Graph) AddInput(name string, shape Shape, dtype DataType) NodeID {
	id := g.add(Node{Kind: KindInput, Name: name})
	g.types[id] = Type{Shape: shape.Clone(), DType: dtype}
	g.inputs = append(g.inputs, id)
	return id
}

// AddConst appends a constant node.
func (g *Graph) AddConst(value *Tensor) NodeID {
	id := g.add(Node{Kind: KindConst, Value: value})
	g.types[id] = Type{Shape: value.Shape.Clone(), DType: value.DType}
	return id
}

// AddOp appends an operator application. Operands must already exist in
// the arena; this keeps index order topological.
func (g *Graph) AddOp(op string, inputs ...NodeID) NodeID {
	g.checkOperands(inputs)
	return g.add(Node{Kind: KindOp, Op: op, Inputs: inputs})
}

// AddComposite appends a composite node for a merged fragment.
func (g *Graph) AddComposite(name string, body *Graph, inputs ...NodeID) NodeID {
	g.checkOperands(inputs)
	return g.add(Node{Kind: KindComposite, Op: name, Body: body, Inputs: inputs})
}

// AddCall appends a call to an extracted function.
func (g *Graph) AddCall(name string, fn, numOut int, inputs ...NodeID) NodeID {
	g.checkOperands(inputs)
	return g.add(Node{Kind: KindCall, Name: name, Func: fn, NumOut: numOut, Inputs: inputs})
}

// AddProj appends a projection of one result of a call node.
func (g *Graph) AddProj(call NodeID, index int) NodeID {
	g.checkOperands([]NodeID{call})
	return g.add(Node{Kind: KindProj, Index: index, Inputs: []NodeID{call}})
}

// SetAttr attaches an attribute to a node.
func (g *Graph) SetAttr(id NodeID, key string, value any) {
	n := &g.nodes[id]
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}
	n.Attrs[key] = value
}

// IntAttr reads an integer attribute, tolerating the int/int64 mix that
// YAML decoding produces.
func (g *Graph) IntAttr(id NodeID, key string, def int) int {
	switch v := g.nodes[id].Attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

// Type returns the annotated output type of a node, if any.
func (g *Graph) Type(id NodeID) (Type, bool) {
	t, ok := g.types[id]
	return t, ok
}

// SetType annotates the output type of a node.
func (g *Graph) SetType(id NodeID, t Type) {
	g.types[id] = t
}

// Target returns the backend tag of a node, if any.
func (g *Graph) Target(id NodeID) (string, bool) {
	t, ok := g.targets[id]
	return t, ok
}

// SetTarget tags a node for a backend.
func (g *Graph) SetTarget(id NodeID, backend string) {
	g.targets[id] = backend
}

// Users returns, for every node, the list of nodes consuming its output.
func (g *Graph) Users() [][]NodeID {
	users := make([][]NodeID, len(g.nodes))
	for i := range g.nodes {
		for _, in := range g.nodes[i].Inputs {
			users[in] = append(users[in], NodeID(i))
		}
	}
	return users
}

// Clone returns a deep copy of the graph. Constant tensors are shared,
// as they are immutable once attached.
func (g *Graph) Clone() *Graph {
	out := New()
	out.nodes = make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		c := n
		c.Inputs = append([]NodeID(nil), n.Inputs...)
		if n.Attrs != nil {
			c.Attrs = make(map[string]any, len(n.Attrs))
			for k, v := range n.Attrs {
				c.Attrs[k] = v
			}
		}
		if n.Body != nil {
			c.Body = n.Body.Clone()
		}
		out.nodes[i] = c
	}
	out.inputs = append([]NodeID(nil), g.inputs...)
	out.outputs = append([]NodeID(nil), g.outputs...)
	for id, t := range g.types {
		out.types[id] = Type{Shape: t.Shape.Clone(), DType: t.DType}
	}
	for id, t := range g.targets {
		out.targets[id] = t
	}
	return out
}

// Equal reports structural equality: same nodes, edges, outputs and
// target tags. Type annotations are deliberately excluded so that a
// graph compares equal to its type-annotated copy.
func (g *Graph) Equal(other *Graph) bool {
	if len(g.nodes) != len(other.nodes) ||
		len(g.inputs) != len(other.inputs) ||
		len(g.outputs) != len(other.outputs) ||
		len(g.targets) != len(other.targets) {
		return false
	}
	for i := range g.inputs {
		if g.inputs[i] != other.inputs[i] {
			return false
		}
	}
	for i := range g.outputs {
		if g.outputs[i] != other.outputs[i] {
			return false
		}
	}
	for id, t := range g.targets {
		if ot, ok := other.targets[id]; !ok || ot != t {
			return false
		}
	}
	for i := range g.nodes {
		a, b := &g.nodes[i], &other.nodes[i]
		if a.Kind != b.Kind || a.Op != b.Op || a.Name != b.Name ||
			a.Func != b.Func || a.NumOut != b.NumOut || a.Index != b.Index ||
			len(a.Inputs) != len(b.Inputs) {
			return false
		}
		for j := range a.Inputs {
			if a.Inputs[j] != b.Inputs[j] {
				return false
			}
		}
		if (a.Body == nil) != (b.Body == nil) {
			return false
		}
		if a.Body != nil && !a.Body.Equal(b.Body) {
			return false
		}
	}
	return true
}

func (g *Graph) add(n Node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

func (g *Graph) checkOperands(inputs []NodeID) {
	for _, in := range inputs {
		if in < 0 || int(in) >= len(g.nodes) {
			panic(fmt.Sprintf("graph: operand %d does not exist yet (arena size %d)", in, len(g.nodes)))
		}
	}
}

// Function is an extracted sub-function destined for external
// compilation by the named target backend.
type Function struct {
	Name   string
	Target string
	Body   *Graph
}

// Program is the result of partitioning: the rewritten main graph plus
// the extracted functions its call nodes refer to.
type Program struct {
	Main      *Graph
	Functions []*Function
}
