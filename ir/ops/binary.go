package ops

import (
	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/ir"
)

const (
	// KindAdd tags element-wise addition with broadcasting.
	KindAdd = ir.OpKind("lazyir::add")

	// KindMul tags element-wise multiplication with broadcasting.
	KindMul = ir.OpKind("lazyir::mul")
)

// Binary is an element-wise binary operation (Add, Mul) with the standard
// broadcasting rules. It carries no scalar attributes: kind plus operands
// fully determine it, so equal applications deduplicate.
type Binary struct {
	ir.NodeBase
	opType backends.OpType
}

var _ ir.Node = (*Binary)(nil)
var _ ir.AttrComparable = (*Binary)(nil)

// NewAdd creates the element-wise sum of lhs and rhs.
func NewAdd(g *ir.Graph, lhs, rhs ir.Value) (ir.Value, error) {
	return newBinaryValue(g, KindAdd, backends.OpTypeAdd, lhs, rhs)
}

// NewMul creates the element-wise product of lhs and rhs.
func NewMul(g *ir.Graph, lhs, rhs ir.Value) (ir.Value, error) {
	return newBinaryValue(g, KindMul, backends.OpTypeMul, lhs, rhs)
}

func newBinaryValue(g *ir.Graph, kind ir.OpKind, opType backends.OpType, lhs, rhs ir.Value) (ir.Value, error) {
	node, err := newBinary(kind, opType, lhs, rhs)
	if err != nil {
		return ir.Value{}, err
	}
	return ir.MakeValue(g.Intern(node), 0), nil
}

func newBinary(kind ir.OpKind, opType backends.OpType, lhs, rhs ir.Value) (*Binary, error) {
	base, err := ir.NewNodeBase(kind, []ir.Value{lhs, rhs}, 1,
		func(b backends.Builder, operands []backends.Op) (backends.Op, error) {
			return applyBinary(b, opType, operands[0], operands[1])
		})
	if err != nil {
		return nil, err
	}
	return &Binary{NodeBase: base, opType: opType}, nil
}

func applyBinary(b backends.Builder, opType backends.OpType, lhs, rhs backends.Op) (backends.Op, error) {
	switch opType {
	case backends.OpTypeAdd:
		return b.Add(lhs, rhs)
	case backends.OpTypeMul:
		return b.Mul(lhs, rhs)
	default:
		return nil, errors.Errorf("unsupported binary operation %s", opType)
	}
}

// Clone implements ir.Node.
func (n *Binary) Clone(operands []ir.Value) (ir.Node, error) {
	ir.AssertOperandCount(n.Kind(), operands, 2)
	return newBinary(n.Kind(), n.opType, operands[0], operands[1])
}

// Lower implements ir.Node.
func (n *Binary) Lower(ctx *ir.LoweringContext) ([]backends.Op, error) {
	lhs, err := ctx.GetOutputOp(n.Operand(0))
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.GetOutputOp(n.Operand(1))
	if err != nil {
		return nil, err
	}
	op, err := applyBinary(ctx.Builder(), n.opType, lhs, rhs)
	if err != nil {
		return nil, errors.Wrapf(ir.ErrLowering, "%s: %v", n, err)
	}
	return []backends.Op{op}, nil
}

// AttrsEqual implements ir.AttrComparable.
func (n *Binary) AttrsEqual(other ir.Node) bool {
	return n.opType == other.(*Binary).opType
}
