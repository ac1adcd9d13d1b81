package pass

import (
	"errors"
	"fmt"

	"github.com/born-ml/relay/internal/graph"
)

// ErrTypeMismatch marks ill-typed graphs. Type errors are fatal to the
// whole pipeline invocation.
var ErrTypeMismatch = errors.New("type mismatch")

// inferFn computes the output type of one operator application from its
// already-typed operands.
type inferFn func(g *graph.Graph, id graph.NodeID, in []graph.Type) (graph.Type, error)

// typeRules is the closed rule set of the built-in type checker. An
// operator without a rule falls back to the type declared on the node
// by the loader, and is ill-typed if neither exists.
var typeRules = map[string]inferFn{
	"add":      inferBroadcast,
	"subtract": inferBroadcast,
	"multiply": inferBroadcast,
	"divide":   inferBroadcast,

	"exp":        inferSame,
	"sigmoid":    inferSame,
	"tanh":       inferSame,
	"nn.relu":    inferSame,
	"nn.softmax": inferSame,

	"nn.dense":         inferDense,
	"nn.bias_add":      inferBiasAdd,
	"nn.conv2d":        inferConv2D,
	"nn.max_pool2d":    inferMaxPool2D,
	"nn.batch_flatten": inferBatchFlatten,
	"reshape":          inferReshape,
}

// InferTypes annotates every node with its output shape and dtype. The
// result is a fresh graph; the argument is left untouched.
func InferTypes(g *graph.Graph) (*graph.Graph, error) {
	out := g.Clone()
	for i := 0; i < out.NumNodes(); i++ {
		id := graph.NodeID(i)
		n := out.Node(id)
		switch n.Kind {
		case graph.KindInput, graph.KindConst:
			// Typed at construction.
			if _, ok := out.Type(id); !ok {
				return nil, fmt.Errorf("node %d (%s): missing declared type: %w", id, n.Kind, ErrTypeMismatch)
			}
		case graph.KindOp:
			in := make([]graph.Type, len(n.Inputs))
			for j, op := range n.Inputs {
				t, ok := out.Type(op)
				if !ok {
					return nil, fmt.Errorf("node %d (%s): operand %d untyped: %w", id, n.Op, op, ErrTypeMismatch)
				}
				in[j] = t
			}
			rule, ok := typeRules[n.Op]
			if !ok {
				if _, declared := out.Type(id); declared {
					continue
				}
				return nil, fmt.Errorf("node %d: no type rule for operator %q and no declared type: %w",
					id, n.Op, ErrTypeMismatch)
			}
			t, err := rule(out, id, in)
			if err != nil {
				return nil, fmt.Errorf("node %d (%s): %w", id, n.Op, err)
			}
			out.SetType(id, t)
		case graph.KindComposite, graph.KindCall, graph.KindProj:
			// Produced by later stages; if present in the input (a
			// re-partitioned program) their types were annotated when
			// they were created, and absent types are tolerated since
			// such nodes are opaque to support predicates anyway.
		}
	}
	return out, nil
}

func sameDTypes(in []graph.Type) (graph.DataType, error) {
	dt := in[0].DType
	for _, t := range in[1:] {
		if t.DType != dt {
			return 0, fmt.Errorf("operand dtypes %s and %s differ: %w", dt, t.DType, ErrTypeMismatch)
		}
	}
	return dt, nil
}

func inferSame(_ *graph.Graph, _ graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 1 {
		return graph.Type{}, fmt.Errorf("expected 1 operand, got %d: %w", len(in), ErrTypeMismatch)
	}
	return in[0], nil
}

func inferBroadcast(_ *graph.Graph, _ graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 2 {
		return graph.Type{}, fmt.Errorf("expected 2 operands, got %d: %w", len(in), ErrTypeMismatch)
	}
	dt, err := sameDTypes(in)
	if err != nil {
		return graph.Type{}, err
	}
	shape, err := graph.BroadcastShapes(in[0].Shape, in[1].Shape)
	if err != nil {
		return graph.Type{}, fmt.Errorf("%s: %w", err, ErrTypeMismatch)
	}
	return graph.Type{Shape: shape, DType: dt}, nil
}

// inferDense types data (m, k) x weight (n, k) -> (m, n).
func inferDense(_ *graph.Graph, _ graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 2 {
		return graph.Type{}, fmt.Errorf("expected 2 operands, got %d: %w", len(in), ErrTypeMismatch)
	}
	dt, err := sameDTypes(in)
	if err != nil {
		return graph.Type{}, err
	}
	data, weight := in[0].Shape, in[1].Shape
	if len(data) != 2 || len(weight) != 2 || data[1] != weight[1] {
		return graph.Type{}, fmt.Errorf("dense shapes %v x %v incompatible: %w", data, weight, ErrTypeMismatch)
	}
	return graph.Type{Shape: graph.Shape{data[0], weight[0]}, DType: dt}, nil
}

// inferBiasAdd checks the bias is a vector matching the axis dimension
// (attribute "axis", default 1) and passes the data type through.
func inferBiasAdd(g *graph.Graph, id graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 2 {
		return graph.Type{}, fmt.Errorf("expected 2 operands, got %d: %w", len(in), ErrTypeMismatch)
	}
	if _, err := sameDTypes(in); err != nil {
		return graph.Type{}, err
	}
	data, bias := in[0].Shape, in[1].Shape
	axis := g.IntAttr(id, "axis", 1)
	if axis < 0 {
		axis += len(data)
	}
	if len(bias) != 1 || axis < 0 || axis >= len(data) || bias[0] != data[axis] {
		return graph.Type{}, fmt.Errorf("bias %v does not match axis %d of %v: %w", bias, axis, data, ErrTypeMismatch)
	}
	return in[0], nil
}

// inferConv2D types NCHW data against OIHW weights, honoring the
// "stride" and "padding" attributes (scalar, defaults 1 and 0).
func inferConv2D(g *graph.Graph, id graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 2 {
		return graph.Type{}, fmt.Errorf("expected 2 operands, got %d: %w", len(in), ErrTypeMismatch)
	}
	dt, err := sameDTypes(in)
	if err != nil {
		return graph.Type{}, err
	}
	data, weight := in[0].Shape, in[1].Shape
	if len(data) != 4 || len(weight) != 4 || data[1] != weight[1] {
		return graph.Type{}, fmt.Errorf("conv2d shapes %v x %v incompatible: %w", data, weight, ErrTypeMismatch)
	}
	stride := g.IntAttr(id, "stride", 1)
	pad := g.IntAttr(id, "padding", 0)
	h := (data[2]+2*pad-weight[2])/stride + 1
	w := (data[3]+2*pad-weight[3])/stride + 1
	if h <= 0 || w <= 0 {
		return graph.Type{}, fmt.Errorf("conv2d kernel %v larger than padded input %v: %w", weight, data, ErrTypeMismatch)
	}
	return graph.Type{Shape: graph.Shape{data[0], weight[0], h, w}, DType: dt}, nil
}

func inferMaxPool2D(g *graph.Graph, id graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 1 {
		return graph.Type{}, fmt.Errorf("expected 1 operand, got %d: %w", len(in), ErrTypeMismatch)
	}
	data := in[0].Shape
	if len(data) != 4 {
		return graph.Type{}, fmt.Errorf("max_pool2d expects NCHW data, got %v: %w", data, ErrTypeMismatch)
	}
	pool := g.IntAttr(id, "pool_size", 2)
	stride := g.IntAttr(id, "stride", pool)
	h := (data[2]-pool)/stride + 1
	w := (data[3]-pool)/stride + 1
	if h <= 0 || w <= 0 {
		return graph.Type{}, fmt.Errorf("pool size %d larger than input %v: %w", pool, data, ErrTypeMismatch)
	}
	return graph.Type{Shape: graph.Shape{data[0], data[1], h, w}, DType: in[0].DType}, nil
}

func inferBatchFlatten(_ *graph.Graph, _ graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 1 {
		return graph.Type{}, fmt.Errorf("expected 1 operand, got %d: %w", len(in), ErrTypeMismatch)
	}
	data := in[0].Shape
	if len(data) == 0 {
		return graph.Type{}, fmt.Errorf("cannot flatten a scalar: %w", ErrTypeMismatch)
	}
	rest := 1
	for _, dim := range data[1:] {
		rest *= dim
	}
	return graph.Type{Shape: graph.Shape{data[0], rest}, DType: in[0].DType}, nil
}

func inferReshape(g *graph.Graph, id graph.NodeID, in []graph.Type) (graph.Type, error) {
	if len(in) != 1 {
		return graph.Type{}, fmt.Errorf("expected 1 operand, got %d: %w", len(in), ErrTypeMismatch)
	}
	dims, ok := intsAttr(g.Node(id).Attrs["newshape"])
	if !ok {
		return graph.Type{}, fmt.Errorf("reshape requires a newshape attribute: %w", ErrTypeMismatch)
	}
	shape := graph.Shape(dims)
	if shape.NumElements() != in[0].Shape.NumElements() {
		return graph.Type{}, fmt.Errorf("cannot reshape %v to %v: %w", in[0].Shape, shape, ErrTypeMismatch)
	}
	return graph.Type{Shape: shape, DType: in[0].DType}, nil
}

// intsAttr reads a []int attribute, tolerating the slice element types
// YAML decoding produces.
func intsAttr(v any) ([]int, bool) {
	switch vs := v.(type) {
	case []int:
		return vs, true
	case []int64:
		out := make([]int, len(vs))
		for i, x := range vs {
			out[i] = int(x)
		}
		return out, true
	case []any:
		out := make([]int, len(vs))
		for i, x := range vs {
			switch n := x.(type) {
			case int:
				out[i] = n
			case int64:
				out[i] = int(n)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
