package ops

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/ir"
	"github.com/gomlx/lazyir/types/shapes"
)

const (
	// KindAMax tags the max-reduction over a list of axes.
	KindAMax = ir.OpKind("lazyir::amax")

	// KindAMin tags the min-reduction over a list of axes.
	KindAMin = ir.OpKind("lazyir::amin")
)

// ReduceInDims reduces its single operand over a list of axes, taking the
// max (AMax) or min (AMin) of the reduced elements.
//
// The axes set is order-insensitive semantically; it is kept in canonical
// (sorted) order so that hashing, printing and deduplication are insensitive
// to the order the caller listed them in. With keepdim=true the reduced axes
// are retained as size-1 dimensions in the output shape, otherwise they are
// removed.
type ReduceInDims struct {
	ir.NodeBase
	opType  backends.OpType
	dims    []int
	keepdim bool
}

var _ ir.Node = (*ReduceInDims)(nil)
var _ ir.AttrComparable = (*ReduceInDims)(nil)

// NewAMax creates a max-reduction of input over the given dims. An empty
// dims list reduces over all axes. Returns an error wrapping ir.ErrShape if
// any axis is out of range for the input rank or listed more than once.
func NewAMax(g *ir.Graph, input ir.Value, dims []int, keepdim bool) (ir.Value, error) {
	return newReduceValue(g, KindAMax, backends.OpTypeReduceMax, input, dims, keepdim)
}

// NewAMin creates a min-reduction of input over the given dims, with the
// same contract as NewAMax.
func NewAMin(g *ir.Graph, input ir.Value, dims []int, keepdim bool) (ir.Value, error) {
	return newReduceValue(g, KindAMin, backends.OpTypeReduceMin, input, dims, keepdim)
}

func newReduceValue(g *ir.Graph, kind ir.OpKind, opType backends.OpType, input ir.Value, dims []int, keepdim bool) (ir.Value, error) {
	node, err := newReduceInDims(kind, opType, input, dims, keepdim)
	if err != nil {
		return ir.Value{}, err
	}
	return ir.MakeValue(g.Intern(node), 0), nil
}

func newReduceInDims(kind ir.OpKind, opType backends.OpType, input ir.Value, dims []int, keepdim bool) (*ReduceInDims, error) {
	canonical, err := canonicalReduceAxes(input.Shape(), dims)
	if err != nil {
		return nil, err
	}
	base, err := ir.NewNodeBase(kind, []ir.Value{input}, 1,
		func(b backends.Builder, operands []backends.Op) (backends.Op, error) {
			return buildReduceInDims(b, opType, operands[0], canonical, keepdim)
		},
		canonical, keepdim)
	if err != nil {
		return nil, err
	}
	return &ReduceInDims{NodeBase: base, opType: opType, dims: canonical, keepdim: keepdim}, nil
}

// canonicalReduceAxes validates the reduction axes against the operand shape
// and returns them in canonical (sorted) order. An empty list expands to all
// axes of the operand.
func canonicalReduceAxes(operand shapes.Shape, axes []int) ([]int, error) {
	if len(axes) == 0 {
		all := make([]int, operand.Rank())
		for axis := range all {
			all[axis] = axis
		}
		return all, nil
	}
	sorted := slices.Clone(axes)
	slices.Sort(sorted)
	for ii, axis := range sorted {
		if axis < 0 || axis >= operand.Rank() {
			return nil, errors.Wrapf(ir.ErrShape, "reduction axis %d is out of range for operand shape %s", axis, operand)
		}
		if ii > 0 && sorted[ii-1] == axis {
			return nil, errors.Wrapf(ir.ErrShape, "reduction axes must be unique, axis %d given more than once", axis)
		}
	}
	return sorted, nil
}

// buildReduceInDims emits the backend ops of a reduction over axes: the
// reduce itself, plus the reshape that reinserts the reduced axes as size-1
// dimensions when keepdim. Shared by shape inference and Lower, so the two
// can never disagree.
func buildReduceInDims(b backends.Builder, opType backends.OpType, operand backends.Op, axes []int, keepdim bool) (backends.Op, error) {
	inputShape, err := b.OpShape(operand)
	if err != nil {
		return nil, err
	}
	var reduced backends.Op
	switch opType {
	case backends.OpTypeReduceMax:
		reduced, err = b.ReduceMax(operand, axes...)
	case backends.OpTypeReduceMin:
		reduced, err = b.ReduceMin(operand, axes...)
	default:
		return nil, errors.Errorf("unsupported reduction operation %s", opType)
	}
	if err != nil {
		return nil, err
	}
	if !keepdim {
		return reduced, nil
	}
	dims := slices.Clone(inputShape.Dimensions)
	for _, axis := range axes {
		dims[axis] = 1
	}
	return b.Reshape(reduced, dims...)
}

// Dims returns the reduced axes in canonical order.
func (n *ReduceInDims) Dims() []int { return slices.Clone(n.dims) }

// Keepdim returns whether reduced axes are retained as size-1 dimensions.
func (n *ReduceInDims) Keepdim() bool { return n.keepdim }

// Clone implements ir.Node.
func (n *ReduceInDims) Clone(operands []ir.Value) (ir.Node, error) {
	ir.AssertOperandCount(n.Kind(), operands, 1)
	return newReduceInDims(n.Kind(), n.opType, operands[0], n.dims, n.keepdim)
}

// Lower implements ir.Node.
func (n *ReduceInDims) Lower(ctx *ir.LoweringContext) ([]backends.Op, error) {
	input, err := ctx.GetOutputOp(n.Operand(0))
	if err != nil {
		return nil, err
	}
	op, err := buildReduceInDims(ctx.Builder(), n.opType, input, n.dims, n.keepdim)
	if err != nil {
		return nil, errors.Wrapf(ir.ErrLowering, "%s: %v", n, err)
	}
	return []backends.Op{op}, nil
}

// AttrsEqual implements ir.AttrComparable.
func (n *ReduceInDims) AttrsEqual(other ir.Node) bool {
	o := other.(*ReduceInDims)
	return n.opType == o.opType && n.keepdim == o.keepdim && slices.Equal(n.dims, o.dims)
}

// String implements ir.Node.
func (n *ReduceInDims) String() string {
	return fmt.Sprintf("%s(dims=%v, keepdim=%v) -> %s", n.Kind(), n.dims, n.keepdim, n.Shape())
}
