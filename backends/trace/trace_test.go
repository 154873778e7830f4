package trace

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/types/shapes"
)

var (
	F32 = dtypes.Float32
	MS  = shapes.Make
)

func TestRegistry(t *testing.T) {
	backend, err := backends.NewWithConfig(BackendName)
	require.NoError(t, err)
	assert.Equal(t, BackendName, backend.Name())
	assert.Contains(t, backends.List(), BackendName)
	require.True(t, backend.Capabilities().Supports(backends.OpTypeReduceMax))
}

func TestBuilder(t *testing.T) {
	b := New().Builder("test")
	require.Equal(t, "test", b.Name())

	x, err := b.Parameter("x", MS(F32, 4, 5, 6))
	require.NoError(t, err)
	gotShape, err := b.OpShape(x)
	require.NoError(t, err)
	require.True(t, MS(F32, 4, 5, 6).Equal(gotShape))

	reduced, err := b.ReduceMax(x, 1)
	require.NoError(t, err)
	gotShape, err = b.OpShape(reduced)
	require.NoError(t, err)
	require.True(t, MS(F32, 4, 6).Equal(gotShape))

	// ReduceMax without axes reduces to a scalar.
	scalar, err := b.ReduceMax(x)
	require.NoError(t, err)
	gotShape, err = b.OpShape(scalar)
	require.NoError(t, err)
	require.True(t, gotShape.IsScalar())

	// Invalid reduction axis surfaces immediately.
	_, err = b.ReduceMax(x, 3)
	require.Error(t, err)

	c, err := b.Constant([]float32{1, 2, 3}, 3)
	require.NoError(t, err)
	gotShape, err = b.OpShape(c)
	require.NoError(t, err)
	require.True(t, MS(F32, 3).Equal(gotShape))

	// Constant flat data must match the dims.
	_, err = b.Constant([]float32{1, 2, 3}, 4)
	require.Error(t, err)
	_, err = b.Constant(float32(1))
	require.Error(t, err)

	exec, err := b.Compile(reduced)
	require.NoError(t, err)
	names, inputShapes := exec.Inputs()
	assert.Equal(t, []string{"x"}, names)
	require.Len(t, inputShapes, 1)
	assert.True(t, MS(F32, 4, 5, 6).Equal(inputShapes[0]))
	outputShapes := exec.Outputs()
	require.Len(t, outputShapes, 1)
	assert.True(t, MS(F32, 4, 6).Equal(outputShapes[0]))

	traceExec := exec.(*Executable)
	assert.Equal(t, 1, traceExec.OpCount(backends.OpTypeReduceMax))
	assert.Equal(t, 1, traceExec.OpCount(backends.OpTypeParameter))

	// A compiled builder accepts no more ops.
	_, err = b.Parameter("y", MS(F32, 2))
	require.Error(t, err)
}

func TestBuilderIsolation(t *testing.T) {
	b1 := New().Builder("b1")
	b2 := New().Builder("b2")
	x, err := b1.Parameter("x", MS(F32, 2))
	require.NoError(t, err)
	// Ops from another builder are rejected.
	_, err = b2.ReduceMax(x, 0)
	require.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	caps := New().Capabilities()
	delete(caps.Operations, backends.OpTypeReduceMax)
	restricted := NewWithCapabilities(caps)
	b := restricted.Builder("restricted")

	x, err := b.Parameter("x", MS(F32, 4, 5))
	require.NoError(t, err)
	_, err = b.ReduceMax(x, 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, backends.ErrNotImplemented))

	// Other ops still work.
	_, err = b.ReduceMin(x, 1)
	require.NoError(t, err)
}
