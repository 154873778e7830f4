package shapeinference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/types/shapes"
)

// Aliases
var (
	Bool = dtypes.Bool
	I32  = dtypes.Int32
	F32  = dtypes.Float32
	F64  = dtypes.Float64

	MS = shapes.Make
)

// must1 panics if there is an error.
func must1[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

func TestBinaryOp(t *testing.T) {
	// Invalid operation type (not a binary op).
	var err error
	_, err = BinaryOp(backends.OpTypeReduceMax, MS(F32, 2), MS(F32, 2))
	require.Error(t, err)

	// Mismatched or invalid dtypes.
	_, err = BinaryOp(backends.OpTypeAdd, MS(F32, 2), MS(F64, 2))
	require.Error(t, err)
	_, err = BinaryOp(backends.OpTypeMul, MS(Bool, 2), MS(Bool, 2))
	require.Error(t, err)
	_, err = BinaryOp(backends.OpTypeAdd, shapes.Invalid(), MS(F32, 2))
	require.Error(t, err)

	// The same shape should be ok.
	matrixShape := MS(F32, 2, 3)
	output := must1(BinaryOp(backends.OpTypeAdd, matrixShape, matrixShape))
	require.True(t, matrixShape.Equal(output))

	// Scalar with matrix.
	scalarShape := MS(F32)
	require.True(t, matrixShape.Equal(must1(BinaryOp(backends.OpTypeAdd, scalarShape, matrixShape))))
	require.True(t, matrixShape.Equal(must1(BinaryOp(backends.OpTypeAdd, matrixShape, scalarShape))))

	// Broadcasting on both sides.
	shape1 := MS(F32, 2, 1, 3)
	shape2 := MS(F32, 1, 4, 3)
	require.True(t, MS(F32, 2, 4, 3).Equal(must1(BinaryOp(backends.OpTypeMul, shape1, shape2))))

	// Rank mismatch and non-broadcastable dimensions.
	_, err = BinaryOp(backends.OpTypeAdd, MS(F32, 2, 3), MS(F32, 2))
	require.Error(t, err)
	_, err = BinaryOp(backends.OpTypeAdd, MS(F32, 2, 3), MS(F32, 2, 4))
	require.Error(t, err)
}

func TestReduceOp(t *testing.T) {
	operand := MS(F32, 4, 5, 6)

	// Single axis.
	require.True(t, MS(F32, 4, 6).Equal(must1(ReduceOp(operand, []int{1}))))

	// Multiple axes.
	require.True(t, MS(F32, 5).Equal(must1(ReduceOp(operand, []int{0, 2}))))

	// All axes reduce to a scalar, also the meaning of an empty axes list.
	require.True(t, MS(F32).Equal(must1(ReduceOp(operand, []int{0, 1, 2}))))
	require.True(t, MS(F32).Equal(must1(ReduceOp(operand, nil))))

	// Out-of-range or duplicate axes.
	var err error
	_, err = ReduceOp(operand, []int{3})
	require.Error(t, err)
	_, err = ReduceOp(operand, []int{-1})
	require.Error(t, err)
	_, err = ReduceOp(operand, []int{1, 1})
	require.Error(t, err)

	// Integer dtypes are preserved.
	require.True(t, MS(I32, 4).Equal(must1(ReduceOp(MS(I32, 4, 5), []int{1}))))
}

func TestReshapeOp(t *testing.T) {
	operand := MS(F32, 4, 6)
	require.True(t, MS(F32, 2, 12).Equal(must1(ReshapeOp(operand, []int{2, 12}))))
	require.True(t, MS(F32, 24).Equal(must1(ReshapeOp(operand, []int{24}))))

	// Size must be preserved.
	_, err := ReshapeOp(operand, []int{4, 5})
	require.Error(t, err)
}
