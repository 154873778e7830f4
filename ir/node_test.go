package ir

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/types/shapes"
)

var (
	F32 = dtypes.Float32
	MS  = shapes.Make
)

// testNode is a minimal Node used to exercise the base contract without
// depending on the concrete operations in the ops sub-package.
type testNode struct {
	NodeBase
	tag int
}

const kindTest = OpKind("lazyir-test::stub")

func newTestNode(operands []Value, shape shapes.Shape, numOutputs, tag int) *testNode {
	return &testNode{
		NodeBase: NewNodeBaseWithShape(kindTest, operands, shape, numOutputs, tag),
		tag:      tag,
	}
}

func (n *testNode) Clone(operands []Value) (Node, error) {
	AssertOperandCount(kindTest, operands, len(n.Operands()))
	return newTestNode(operands, n.Shape(), n.NumOutputs(), n.tag), nil
}

func (n *testNode) Lower(ctx *LoweringContext) ([]backends.Op, error) {
	ops := make([]backends.Op, n.NumOutputs())
	for ii := range ops {
		ops[ii] = n
	}
	return ops, nil
}

func (n *testNode) AttrsEqual(other Node) bool {
	return n.tag == other.(*testNode).tag
}

func TestValue(t *testing.T) {
	single := newTestNode(nil, MS(F32, 2, 3), 1, 0)
	v := MakeValue(single, 0)
	assert.True(t, v.IsValid())
	assert.Equal(t, 0, v.Index())
	assert.True(t, MS(F32, 2, 3).Equal(v.Shape()))

	// Out-of-range output index is a programmer error.
	require.Panics(t, func() { MakeValue(single, 1) })
	require.Panics(t, func() { MakeValue(single, -1) })
	require.Panics(t, func() { MakeValue(nil, 0) })

	// The zero Value is invalid.
	var zero Value
	assert.False(t, zero.IsValid())
	assert.False(t, zero.Shape().Ok())
}

func TestValueMultiOutput(t *testing.T) {
	tuple := shapes.MakeTuple([]shapes.Shape{MS(F32, 2), MS(F32, 3, 4)})
	multi := newTestNode(nil, tuple, 2, 0)

	v0, v1 := MakeValue(multi, 0), MakeValue(multi, 1)
	assert.True(t, MS(F32, 2).Equal(v0.Shape()))
	assert.True(t, MS(F32, 3, 4).Equal(v1.Shape()))
	assert.NotEqual(t, v0.StructuralHash(), v1.StructuralHash())
	require.Panics(t, func() { MakeValue(multi, 2) })

	// Declared outputs must match the tuple size.
	require.Panics(t, func() { newTestNode(nil, tuple, 3, 0) })
}

func TestNodeBaseHash(t *testing.T) {
	a := newTestNode(nil, MS(F32, 2), 1, 0)
	b := newTestNode(nil, MS(F32, 2), 1, 0)
	assert.Equal(t, a.StructuralHash(), b.StructuralHash())

	// Extra hash material participates.
	c := newTestNode(nil, MS(F32, 2), 1, 1)
	assert.NotEqual(t, a.StructuralHash(), c.StructuralHash())

	// Operand identity participates: two consumers of different (but
	// equally-shaped) nodes hash differently only if the operands' own
	// hashes differ.
	consumerOfA := newTestNode([]Value{MakeValue(a, 0)}, MS(F32, 2), 1, 0)
	consumerOfB := newTestNode([]Value{MakeValue(b, 0)}, MS(F32, 2), 1, 0)
	assert.Equal(t, consumerOfA.StructuralHash(), consumerOfB.StructuralHash())
	consumerOfC := newTestNode([]Value{MakeValue(c, 0)}, MS(F32, 2), 1, 0)
	assert.NotEqual(t, consumerOfA.StructuralHash(), consumerOfC.StructuralHash())
}

func TestGraphIntern(t *testing.T) {
	g := NewGraph("test")
	a := g.Intern(newTestNode(nil, MS(F32, 2), 1, 0))
	assert.Equal(t, 1, g.NumNodes())
	assert.Equal(t, NodeId(0), g.IdOf(a))
	assert.Equal(t, a, g.NodeById(0))

	// A structurally identical node dedups to the existing one.
	b := g.Intern(newTestNode(nil, MS(F32, 2), 1, 0))
	assert.Same(t, a, b)
	assert.Equal(t, 1, g.NumNodes())

	// Different attributes make a different node.
	c := g.Intern(newTestNode(nil, MS(F32, 2), 1, 1))
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, g.NumNodes())

	// Re-interning an already registered node is a no-op.
	assert.Same(t, a, g.Intern(a))
	assert.Equal(t, 2, g.NumNodes())

	// Unknown nodes have no id.
	assert.Equal(t, InvalidNodeId, g.IdOf(newTestNode(nil, MS(F32, 3), 1, 0)))
	require.Panics(t, func() { g.NodeById(NodeId(2)) })
}

func TestInferOutputShape(t *testing.T) {
	// The closure lowers symbolically on placeholder operands; only shapes flow.
	shape, err := InferOutputShape([]shapes.Shape{MS(F32, 2, 3), MS(F32, 2, 3)},
		func(b backends.Builder, operands []backends.Op) (backends.Op, error) {
			return b.Add(operands[0], operands[1])
		})
	require.NoError(t, err)
	assert.True(t, MS(F32, 2, 3).Equal(shape))

	// Incompatible operand shapes surface as ErrShape at construction time.
	_, err = InferOutputShape([]shapes.Shape{MS(F32, 2, 3), MS(F32, 4, 5)},
		func(b backends.Builder, operands []backends.Op) (backends.Op, error) {
			return b.Add(operands[0], operands[1])
		})
	require.ErrorIs(t, err, ErrShape)
}
