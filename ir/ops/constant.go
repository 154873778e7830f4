package ops

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/ir"
)

// KindConstant tags literal tensors embedded in the graph.
const KindConstant = ir.OpKind("lazyir::constant")

// MaxConstSizeToPrint limits how many constant elements String includes.
const MaxConstSizeToPrint = 5

// Constant is a leaf node holding a literal: a flat slice of a supported Go
// basic type plus the dimensions that shape it. Identical literals are
// deduplicated by the graph arena.
type Constant struct {
	ir.NodeBase
	flat any
	dims []int
}

var _ ir.Node = (*Constant)(nil)
var _ ir.AttrComparable = (*Constant)(nil)

// NewConstant creates a constant from the flat values and the shape defined
// by dims. The flat value must be a slice of a supported basic type, with
// length matching the size dims define.
func NewConstant(g *ir.Graph, flat any, dims ...int) (ir.Value, error) {
	node, err := newConstant(flat, slices.Clone(dims))
	if err != nil {
		return ir.Value{}, err
	}
	return ir.MakeValue(g.Intern(node), 0), nil
}

func newConstant(flat any, dims []int) (*Constant, error) {
	base, err := ir.NewNodeBase(KindConstant, nil, 1,
		func(b backends.Builder, _ []backends.Op) (backends.Op, error) {
			return b.Constant(flat, dims...)
		},
		// The flat data is part of the node's content, so it must be part of
		// the hash. %v is deterministic for the basic types accepted.
		fmt.Sprintf("%v", flat), dims)
	if err != nil {
		return nil, err
	}
	return &Constant{NodeBase: base, flat: flat, dims: dims}, nil
}

// Clone implements ir.Node.
func (n *Constant) Clone(operands []ir.Value) (ir.Node, error) {
	ir.AssertOperandCount(KindConstant, operands, 0)
	return newConstant(n.flat, n.dims)
}

// Lower implements ir.Node.
func (n *Constant) Lower(ctx *ir.LoweringContext) ([]backends.Op, error) {
	op, err := ctx.Builder().Constant(n.flat, n.dims...)
	if err != nil {
		return nil, errors.Wrapf(ir.ErrLowering, "%s: %v", n, err)
	}
	return []backends.Op{op}, nil
}

// AttrsEqual implements ir.AttrComparable.
func (n *Constant) AttrsEqual(other ir.Node) bool {
	o := other.(*Constant)
	return slices.Equal(n.dims, o.dims) && reflect.DeepEqual(n.flat, o.flat)
}

// String implements ir.Node.
func (n *Constant) String() string {
	if n.Shape().Size() <= MaxConstSizeToPrint {
		return fmt.Sprintf("%s(%v) -> %s", n.Kind(), n.flat, n.Shape())
	}
	return fmt.Sprintf("%s(%d values) -> %s", n.Kind(), n.Shape().Size(), n.Shape())
}
