package trace

import (
	"reflect"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/backends/shapeinference"
	"github.com/gomlx/lazyir/types/shapes"
)

// Builder keeps track of the computation graph being defined.
type Builder struct {
	name     string
	backend  *Backend
	compiled bool

	// nodes are only created when their inputs have already been created, so
	// this is a natural DAG ordering of the program. Compile relies on this
	// invariance.
	nodes []*Node

	// inputs are the nodes created by Parameter, in creation order.
	inputs []*Node
}

// Compile-time check.
var _ backends.Builder = (*Builder)(nil)

// Node in the traced program.
type Node struct {
	builderIdx int
	opType     backends.OpType
	shape      shapes.Shape
	inputs     []*Node
	builder    *Builder

	// Static (non-graph) attributes, set depending on opType.
	name string // Parameter
	axes []int  // ReduceMax, ReduceMin
	dims []int  // Constant, Reshape
	flat any    // Constant
}

// OpType of the node.
func (n *Node) OpType() backends.OpType { return n.opType }

// Shape of the node's output.
func (n *Node) Shape() shapes.Shape { return n.shape }

// Inputs of this node, the nodes whose outputs it consumes.
func (n *Node) Inputs() []*Node { return n.inputs }

// Name implements backends.Builder.
func (b *Builder) Name() string { return b.name }

// newNode adds a new node of the given opType and shape to the Builder
// program. It's used by the other ops when creating new nodes.
func (b *Builder) newNode(opType backends.OpType, shape shapes.Shape, inputs ...*Node) *Node {
	n := &Node{
		builder:    b,
		opType:     opType,
		builderIdx: len(b.nodes),
		shape:      shape,
		inputs:     slices.Clone(inputs),
	}
	b.nodes = append(b.nodes, n)
	return n
}

// checkOps validates that the ops come from this builder, and that the
// Builder is not yet compiled. It also checks the opType against the
// backend's capabilities.
func (b *Builder) checkOps(opType backends.OpType, ops ...backends.Op) ([]*Node, error) {
	if b == nil {
		return nil, errors.Errorf("%s: Builder is nil, cannot build a computation", opType)
	}
	if b.compiled {
		return nil, errors.Errorf("cannot add new op (%s) to Builder %q, it has already been compiled", opType, b.name)
	}
	if !b.backend.capabilities.Supports(opType) {
		return nil, errors.Wrapf(backends.ErrNotImplemented, "operation %s is not supported by this %q backend", opType, b.backend.Name())
	}
	nodes := make([]*Node, len(ops))
	var ok bool
	for idx, op := range ops {
		if op == nil {
			return nil, errors.Errorf("%s: input op #%d is nil", opType, idx)
		}
		nodes[idx], ok = op.(*Node)
		if !ok {
			return nil, errors.Errorf("%s: input op #%d was created by a different backend, cannot use it with backend %q", opType, idx, b.backend.Name())
		}
		if nodes[idx].builder != b {
			return nil, errors.Errorf("%s: input op #%d was created with a different builder (%q), cannot use it with builder %q",
				opType, idx, nodes[idx].builder.name, b.name)
		}
	}
	return nodes, nil
}

// OpShape implements backends.Builder.
// Notice it is not gated by capabilities, since it is not an operation.
func (b *Builder) OpShape(op backends.Op) (shapes.Shape, error) {
	node, ok := op.(*Node)
	if !ok || node.builder != b {
		return shapes.Invalid(), errors.Errorf("OpShape: op was not created by builder %q", b.name)
	}
	return node.shape, nil
}

// Parameter implements backends.Builder.
func (b *Builder) Parameter(name string, shape shapes.Shape) (backends.Op, error) {
	if _, err := b.checkOps(backends.OpTypeParameter); err != nil {
		return nil, err
	}
	if !shape.Ok() || shape.IsTuple() {
		return nil, errors.Errorf("Parameter %q must have a valid non-tuple shape, got %s", name, shape)
	}
	if !b.backend.capabilities.DTypes[shape.DType] {
		return nil, errors.Wrapf(backends.ErrNotImplemented, "dtype %s of parameter %q is not supported by this %q backend", shape.DType, name, b.backend.Name())
	}
	n := b.newNode(backends.OpTypeParameter, shape)
	n.name = name
	b.inputs = append(b.inputs, n)
	return n, nil
}

// Constant implements backends.Builder.
func (b *Builder) Constant(flat any, dims ...int) (backends.Op, error) {
	if _, err := b.checkOps(backends.OpTypeConstant); err != nil {
		return nil, err
	}
	dtype, flatLen, err := checkFlat(flat)
	if err != nil {
		return nil, err
	}
	if !b.backend.capabilities.DTypes[dtype] {
		return nil, errors.Wrapf(backends.ErrNotImplemented, "constant dtype %s is not supported by this %q backend", dtype, b.backend.Name())
	}
	shape := shapes.Make(dtype, dims...)
	if shape.Size() != flatLen {
		return nil, errors.Errorf("Constant: flat data has %d values, but dims %v define a shape %s with %d elements", flatLen, dims, shape, shape.Size())
	}
	n := b.newNode(backends.OpTypeConstant, shape)
	n.dims = slices.Clone(dims)
	n.flat = flat
	return n, nil
}

// checkFlat returns an error if flat is not a slice of one of the dtypes
// supported. It returns the dtype and the length of the flat slice.
func checkFlat(flat any) (dtypes.DType, int, error) {
	flatType := reflect.TypeOf(flat)
	if flatType == nil || flatType.Kind() != reflect.Slice {
		return dtypes.InvalidDType, 0, errors.Errorf("flat data should be a slice, got %T", flat)
	}
	dtype := dtypes.FromGoType(flatType.Elem())
	if dtype == dtypes.InvalidDType {
		return dtypes.InvalidDType, 0, errors.Errorf("flat is a slice of %s, not a valid data type", flatType.Elem())
	}
	return dtype, reflect.ValueOf(flat).Len(), nil
}

// addBinaryOp adds a generic binary op.
func (b *Builder) addBinaryOp(opType backends.OpType, lhsOp, rhsOp backends.Op) (backends.Op, error) {
	inputs, err := b.checkOps(opType, lhsOp, rhsOp)
	if err != nil {
		return nil, err
	}
	lhs, rhs := inputs[0], inputs[1]
	shape, err := shapeinference.BinaryOp(opType, lhs.shape, rhs.shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(opType, shape, lhs, rhs), nil
}

// Add implements backends.Builder.
func (b *Builder) Add(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeAdd, lhs, rhs)
}

// Mul implements backends.Builder.
func (b *Builder) Mul(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeMul, lhs, rhs)
}

// addReduceOp adds a reduction over the given axes.
func (b *Builder) addReduceOp(opType backends.OpType, operandOp backends.Op, axes []int) (backends.Op, error) {
	inputs, err := b.checkOps(opType, operandOp)
	if err != nil {
		return nil, err
	}
	operand := inputs[0]
	reduceAxes := axes
	if len(reduceAxes) == 0 {
		// Reduce over all axes.
		reduceAxes = make([]int, operand.shape.Rank())
		for axis := range reduceAxes {
			reduceAxes[axis] = axis
		}
	}
	shape, err := shapeinference.ReduceOp(operand.shape, reduceAxes)
	if err != nil {
		return nil, err
	}
	n := b.newNode(opType, shape, operand)
	n.axes = slices.Clone(reduceAxes)
	return n, nil
}

// ReduceMax implements backends.Builder.
func (b *Builder) ReduceMax(operand backends.Op, axes ...int) (backends.Op, error) {
	return b.addReduceOp(backends.OpTypeReduceMax, operand, axes)
}

// ReduceMin implements backends.Builder.
func (b *Builder) ReduceMin(operand backends.Op, axes ...int) (backends.Op, error) {
	return b.addReduceOp(backends.OpTypeReduceMin, operand, axes)
}

// Reshape implements backends.Builder.
func (b *Builder) Reshape(operand backends.Op, dims ...int) (backends.Op, error) {
	inputs, err := b.checkOps(backends.OpTypeReshape, operand)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.ReshapeOp(inputs[0].shape, dims)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeReshape, shape, inputs[0])
	n.dims = slices.Clone(dims)
	return n, nil
}
