package ir

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/backends/trace"
	"github.com/gomlx/lazyir/types/shapes"
)

// ShapeFn is the backend-agnostic shape-computing closure an operation
// supplies at construction: invoked with placeholder backend operands, it
// emits the operation's lowering and returns the backend op whose shape is
// the operation's output shape.
//
// The closure must only depend on the operands' shapes and dtypes, never on
// runtime tensor values -- it is executed purely symbolically at
// graph-construction time. The same builder functions used here are reused
// by Node.Lower, so shape inference and lowering can never drift apart.
type ShapeFn func(b backends.Builder, operands []backends.Op) (backends.Op, error)

// InferOutputShape returns the output shape of an operation applied to
// operands of the given shapes, without executing any real data: it feeds
// placeholder parameters of those shapes through shapeFn on a scratch
// tracing builder and reads back the resulting op's shape.
//
// It is deterministic and side-effect free. It returns an error wrapping
// ErrShape if the operand shapes are incompatible with the operation's
// semantic constraints, so that graph construction fails fast -- before any
// compilation or execution.
func InferOutputShape(inputShapes []shapes.Shape, shapeFn ShapeFn) (shapes.Shape, error) {
	b := trace.New().Builder("shape-inference")
	operands := make([]backends.Op, len(inputShapes))
	for ii, inputShape := range inputShapes {
		var err error
		operands[ii], err = b.Parameter(fmt.Sprintf("operand#%d", ii), inputShape)
		if err != nil {
			return shapes.Invalid(), errors.Wrapf(ErrShape, "invalid shape %s for operand #%d: %v", inputShape, ii, err)
		}
	}
	output, err := shapeFn(b, operands)
	if err != nil {
		return shapes.Invalid(), errors.Wrapf(ErrShape, "inferring output shape: %v", err)
	}
	shape, err := b.OpShape(output)
	if err != nil {
		return shapes.Invalid(), errors.Wrapf(ErrShape, "reading inferred output shape: %v", err)
	}
	return shape, nil
}
