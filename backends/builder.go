package backends

import (
	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/types/shapes"
)

// Op represents the output of an operation during computation graph building.
//
// It is opaque from the lazyir perspective: the IR layer receives it from a
// Builder method and passes it back as input to other Builder methods.
type Op any

// ErrNotImplemented is returned (wrapped) by builders for operations they
// don't support. It doesn't carry a stack, attach one with
// errors.Wrapf(ErrNotImplemented, "...") when using it.
var ErrNotImplemented = errors.New("not implemented")

// Builder defines the set of ops needed to build a computation.
//
// A Builder that doesn't implement an operation returns an error wrapping
// ErrNotImplemented for it -- this restricts what type of graphs it can
// lower, see Backend.Capabilities.
type Builder interface {
	// Name of the computation being built.
	Name() string

	// Compile the computation built. This invalidates the Builder and returns
	// an Executable holding the finished program.
	//
	// It is given the list of outputs of the computation.
	Compile(outputs ...Op) (Executable, error)

	// OpShape returns the shape of a computation Op.
	// Notice this is not an operation and doesn't change the computation being built.
	OpShape(op Op) (shapes.Shape, error)

	// Parameter creates an input parameter for the computation.
	// During execution of the compiled computation this value will need to be
	// fed in the same order it is created.
	Parameter(name string, shape shapes.Shape) (Op, error)

	// Constant creates a constant in the computation with the given flat
	// values and the shape defined by dims.
	//
	// The flat value must be a slice of a basic type supported -- that can be
	// converted to a DType. Its length must match the size given by dims.
	Constant(flat any, dims ...int) (Op, error)

	// StandardOps include the standard math operations.
	StandardOps
}

// StandardOps is the catalog of math operations a Builder provides.
// It is the part of the Builder interface the concrete IR operations emit
// their lowerings through.
type StandardOps interface {
	// Add returns the element-wise sum of lhs and rhs, with standard
	// broadcasting rules.
	Add(lhs, rhs Op) (Op, error)

	// Mul returns the element-wise product of lhs and rhs, with standard
	// broadcasting rules.
	Mul(lhs, rhs Op) (Op, error)

	// ReduceMax reduces the operand by taking the max over the given axes.
	// The reduced axes are removed from the output shape.
	// If no axes are given, it reduces the full operand to a scalar.
	ReduceMax(operand Op, axes ...int) (Op, error)

	// ReduceMin reduces the operand by taking the min over the given axes.
	// The reduced axes are removed from the output shape.
	// If no axes are given, it reduces the full operand to a scalar.
	ReduceMin(operand Op, axes ...int) (Op, error)

	// Reshape reshapes the operand to the given dims. The total size of the
	// new shape must match the operand's size.
	Reshape(operand Op, dims ...int) (Op, error)
}
