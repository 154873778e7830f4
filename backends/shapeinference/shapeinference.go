// Package shapeinference calculates the shape resulting from operations and
// validates their inputs.
//
// It is the shape arithmetic shared by backends: given only operand shapes
// (never data), it returns the output shape of an operation or an error if
// the operands are incompatible with the operation's semantics.
//
// It defines a BinaryOp function for shape inference of the element-wise
// binary operations, using the standard broadcasting rules, and one function
// per remaining OpType.
package shapeinference

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/types"
	"github.com/gomlx/lazyir/types/shapes"
)

var (
	// NumberOperations can take any type of number as input: integers, floats, or complex numbers.
	NumberOperations = types.SetWith(
		backends.OpTypeAdd,
		backends.OpTypeMul,
		backends.OpTypeReduceMax,
		backends.OpTypeReduceMin,
	)

	// StandardBinaryOperations include all operations that have two operands
	// usually named lhs (left-hand-side) and rhs (right-hand-side), and are
	// commutative (invariant to order).
	StandardBinaryOperations = types.SetWith(
		backends.OpTypeAdd,
		backends.OpTypeMul,
	)

	// ReduceOperations reduce the operand over a list of axes.
	ReduceOperations = types.SetWith(
		backends.OpTypeReduceMax,
		backends.OpTypeReduceMin,
	)
)

// BinaryOp returns the expected output shape for ops in the
// StandardBinaryOperations set.
//
// It returns an error if the data type (shape.DType) is invalid for the
// operation, if the dtypes don't match, or if the shapes are not
// broadcast-compatible.
func BinaryOp(opType backends.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if !StandardBinaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardBinaryOperations set, cannot process it with BinaryOp", opType)
		return
	}
	if lhsShape.DType == dtypes.InvalidDType || rhsShape.DType == dtypes.InvalidDType {
		err = errors.Errorf("invalid shape %s or %s for BinaryOp %s", lhsShape, rhsShape, opType)
		return
	}
	if lhsShape.DType != rhsShape.DType {
		err = errors.Errorf("data types (DType) for BinaryOp %s must match, got %s and %s", opType, lhsShape, rhsShape)
		return
	}
	if NumberOperations.Has(opType) && !(lhsShape.DType.IsInt() || lhsShape.DType.IsFloat() || lhsShape.DType.IsComplex()) {
		err = errors.Errorf("numeric BinaryOp %s must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", opType, lhsShape)
		return
	}
	return binaryOpImpl(opType, lhsShape, rhsShape)
}

func binaryOpImpl(opType backends.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	// Trivial cases: if one of the sides is a scalar, return the other side shape.
	if lhsShape.IsScalar() {
		return rhsShape, nil
	}
	if rhsShape.IsScalar() {
		return lhsShape, nil
	}

	// Other cases, either the dimensions match or one of them is 1.
	if lhsShape.Rank() != rhsShape.Rank() {
		err = errors.Errorf("if operands are not scalars, their rank must match for BinaryOp (%s), got shapes %s and %s",
			opType, lhsShape, rhsShape)
		return
	}
	output = lhsShape.Clone()
	for axis := range output.Rank() {
		lhsDim := lhsShape.Dimensions[axis]
		rhsDim := rhsShape.Dimensions[axis]
		if lhsDim != 1 && rhsDim != 1 && lhsDim != rhsDim {
			err = errors.Errorf("dimension of axis #%d doesn't match and cannot be broadcast for BinaryOp (%s), got shapes %s and %s",
				axis, opType, lhsShape, rhsShape)
			return
		}
		output.Dimensions[axis] = max(lhsDim, rhsDim)
	}
	return
}

// ReduceOp returns the output shape for a reduction (ReduceMax, ReduceMin)
// over the given axes: the reduced axes are removed from the operand shape.
//
// If axes is empty the reduction is over all axes, and the output is a
// scalar. It is an error if any axis is out of range or appears more than
// once.
func ReduceOp(operand shapes.Shape, axes []int) (output shapes.Shape, err error) {
	if len(axes) == 0 {
		return shapes.Make(operand.DType), nil
	}
	axesSet := types.MakeSet[int](len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= operand.Rank() {
			return shapes.Invalid(), errors.Errorf("Reduce operations require each axis to be 0 <= axis < rank, but got invalid axis %d for shape %s", axis, operand)
		}
		if axesSet.Has(axis) {
			return shapes.Invalid(), errors.Errorf("Reduce operations require each axis to be unique, but axis %d was given more than once for shape %s", axis, operand)
		}
		axesSet.Insert(axis)
	}
	output = shapes.Make(operand.DType)
	outputRank := operand.Rank() - len(axes)
	if outputRank > 0 {
		// Copy over dimensions that will stay.
		output.Dimensions = make([]int, 0, outputRank)
		for axis, dim := range operand.Dimensions {
			if !axesSet.Has(axis) {
				output.Dimensions = append(output.Dimensions, dim)
			}
		}
	}
	return
}

// ReshapeOp returns the output shape of a Reshape: same dtype, new
// dimensions. The total size must not change.
func ReshapeOp(operand shapes.Shape, dims []int) (output shapes.Shape, err error) {
	output = shapes.Make(operand.DType, dims...)
	if output.Size() != operand.Size() {
		return shapes.Invalid(), errors.Errorf("Reshape of shape %s to dimensions %v would change the total size from %d to %d",
			operand, dims, operand.Size(), output.Size())
	}
	return
}
