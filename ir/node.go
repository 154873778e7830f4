// Package ir implements the deferred-execution intermediate representation
// for tensor computations.
//
// Operations on tensors are not executed eagerly: they are recorded as nodes
// of a directed acyclic dataflow graph, which is later lowered as a unit to a
// backend op-builder (see github.com/gomlx/lazyir/backends) and compiled.
// Deferring execution allows global optimization -- common-subexpression
// elimination during construction (see Graph.Intern), fusion and more by
// later passes -- before any device code is generated.
//
// The main elements of the package are:
//
//   - Node: the abstract graph vertex, one per operation instance. A node's
//     output shape is inferred once at construction (see InferOutputShape)
//     and its structural hash fingerprints the whole subgraph below it.
//     Nodes are immutable after construction: rewriting always goes through
//     Clone, never in-place mutation, which is what makes subgraphs safely
//     shareable across consumers and compilations.
//   - Value: a reference to one specific output of a Node, the unit of
//     wiring between nodes.
//   - Graph: the arena that owns nodes for their lifetime and deduplicates
//     structurally-identical ones.
//   - LoweringContext: the per-compilation state that walks the DAG once,
//     lowering each node exactly once and memoizing the resulting backend
//     handles.
//
// Concrete operations live in the sub-package ops; they embed NodeBase and
// supply the shape-inference closure, the lowering logic, cloning and a
// descriptor.
package ir

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/types/shapes"
)

// OpKind is an immutable tag identifying an operation's semantic identity,
// e.g. "lazyir::amax". Two nodes with different OpKind are never considered
// structurally equal, regardless of their other fields.
type OpKind string

// String implements fmt.Stringer.
func (k OpKind) String() string { return string(k) }

// Node is one operation instance in the dataflow graph.
//
// Every concrete operation embeds NodeBase -- which provides Kind, Operands,
// Shape, NumOutputs and StructuralHash -- and implements the remaining
// polymorphic methods: Clone, Lower and String. The rest of the system
// (Graph, LoweringContext, rewriting passes) depends only on this contract.
type Node interface {
	// Kind identifies the operation.
	Kind() OpKind

	// Operands are the inputs of the operation, in order. The order is
	// semantically significant and fixed at construction. Callers must not
	// modify the returned slice.
	Operands() []Value

	// Shape is the statically inferred output shape, computed once at
	// construction. For nodes with NumOutputs() > 1 it is a tuple shape.
	Shape() shapes.Shape

	// NumOutputs is the fixed number of outputs this node declares.
	NumOutputs() int

	// StructuralHash is a pure function of the operation kind, the operands'
	// hashes and the operation's scalar parameters. Structurally-identical
	// subgraphs hash equal, enabling deduplication and caching.
	StructuralHash() uint64

	// Clone returns a new node of the same concrete type with the operands
	// replaced, re-deriving shape and hash. The same arity is required --
	// a mismatch is a programmer error and panics. The original node is
	// never mutated.
	Clone(operands []Value) (Node, error)

	// Lower emits the backend ops implementing this node, using the
	// already-lowered operand handles obtained from ctx, and returns exactly
	// NumOutputs() backend handles. It is called at most once per node per
	// LoweringContext.
	Lower(ctx *LoweringContext) ([]backends.Op, error)

	// String returns a deterministic human-readable descriptor: the
	// operation kind plus its scalar parameters. Stable within one run for
	// structurally-identical nodes; not guaranteed stable across versions.
	String() string
}

// Value is a reference to one specific output of a Node. It is immutable and
// never owns the node: the node is owned by the Graph that interned it, which
// must outlive every Value referencing it.
type Value struct {
	node  Node
	index int
}

// MakeValue returns a Value referencing the index-th output of node.
// It panics if index is out of range for the node's declared outputs.
func MakeValue(node Node, index int) Value {
	if node == nil {
		exceptions.Panicf("ir.MakeValue: node is nil")
	}
	if index < 0 || index >= node.NumOutputs() {
		exceptions.Panicf("ir.MakeValue: output index %d out of range for node %s with %d outputs",
			index, node, node.NumOutputs())
	}
	return Value{node: node, index: index}
}

// Node whose output this Value references.
func (v Value) Node() Node { return v.node }

// Index of the referenced output within the node's outputs.
func (v Value) Index() int { return v.index }

// IsValid reports whether the Value references a node. The zero Value is
// invalid.
func (v Value) IsValid() bool { return v.node != nil }

// Shape of the referenced output. For multi-output nodes this resolves the
// tuple element shape.
func (v Value) Shape() shapes.Shape {
	if !v.IsValid() {
		return shapes.Invalid()
	}
	if v.node.NumOutputs() == 1 {
		return v.node.Shape()
	}
	return v.node.Shape().TupleShapes[v.index]
}

// StructuralHash of the referenced output: the node's hash combined with the
// output index.
func (v Value) StructuralHash() uint64 {
	return Hash(v.node.StructuralHash(), v.index)
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if !v.IsValid() {
		return "Value(invalid)"
	}
	if v.node.NumOutputs() == 1 {
		return v.node.String()
	}
	return fmt.Sprintf("%s#%d", v.node.String(), v.index)
}

// NodeBase is the common implementation every concrete operation embeds.
// All fields are set at construction and immutable thereafter, which makes
// nodes safely readable by multiple goroutines -- e.g. concurrent
// compilations sharing cached subgraphs.
type NodeBase struct {
	kind           OpKind
	operands       []Value
	shape          shapes.Shape
	numOutputs     int
	structuralHash uint64
}

// NewNodeBase builds the base of a node: it computes the output shape
// exactly once by running shapeFn symbolically over the operands' shapes
// (see InferOutputShape), and derives the structural hash from kind, the
// operands' hashes and hashMaterial (the operation's scalar parameters --
// everything that affects output shape or content must be included).
//
// It returns an error wrapping ErrShape if shape inference fails; in that
// case no node should be constructed.
func NewNodeBase(kind OpKind, operands []Value, numOutputs int, shapeFn ShapeFn, hashMaterial ...any) (NodeBase, error) {
	inputShapes := make([]shapes.Shape, len(operands))
	for ii, operand := range operands {
		if !operand.IsValid() {
			exceptions.Panicf("%s: operand #%d is an invalid (zero) Value", kind, ii)
		}
		inputShapes[ii] = operand.Shape()
	}
	shape, err := InferOutputShape(inputShapes, shapeFn)
	if err != nil {
		return NodeBase{}, err
	}
	return newNodeBaseWithShape(kind, operands, shape, numOutputs, hashMaterial), nil
}

// NewNodeBaseWithShape is the variant of NewNodeBase for operations whose
// output shape is known without inference -- e.g. leaf nodes like graph
// inputs, or multi-output operations that assemble their own tuple shape.
func NewNodeBaseWithShape(kind OpKind, operands []Value, shape shapes.Shape, numOutputs int, hashMaterial ...any) NodeBase {
	return newNodeBaseWithShape(kind, operands, shape, numOutputs, hashMaterial)
}

func newNodeBaseWithShape(kind OpKind, operands []Value, shape shapes.Shape, numOutputs int, hashMaterial []any) NodeBase {
	if numOutputs <= 0 {
		exceptions.Panicf("%s: numOutputs must be positive, got %d", kind, numOutputs)
	}
	if numOutputs > 1 && shape.TupleSize() != numOutputs {
		exceptions.Panicf("%s: node declares %d outputs, but its shape %s is not a tuple of that size", kind, numOutputs, shape)
	}
	components := make([]any, 0, 2+len(operands)+len(hashMaterial))
	components = append(components, kind, numOutputs)
	for _, operand := range operands {
		components = append(components, operand.StructuralHash())
	}
	components = append(components, hashMaterial...)
	return NodeBase{
		kind:           kind,
		operands:       slices.Clone(operands),
		shape:          shape,
		numOutputs:     numOutputs,
		structuralHash: Hash(components...),
	}
}

// Kind identifies the operation performed by the node.
func (n *NodeBase) Kind() OpKind { return n.kind }

// Operands are the inputs of the node, in order. Callers must not modify the
// returned slice.
func (n *NodeBase) Operands() []Value { return n.operands }

// Operand returns the ii-th operand.
func (n *NodeBase) Operand(ii int) Value { return n.operands[ii] }

// Shape of the node's output, computed once at construction.
func (n *NodeBase) Shape() shapes.Shape { return n.shape }

// OutputShape returns the shape of the index-th output.
func (n *NodeBase) OutputShape(index int) shapes.Shape {
	if index < 0 || index >= n.numOutputs {
		exceptions.Panicf("%s: OutputShape(%d) out of range for %d outputs", n.kind, index, n.numOutputs)
	}
	if n.numOutputs == 1 {
		return n.shape
	}
	return n.shape.TupleShapes[index]
}

// NumOutputs returns the number of outputs the node declares.
func (n *NodeBase) NumOutputs() int { return n.numOutputs }

// StructuralHash of the node. See Node.StructuralHash.
func (n *NodeBase) StructuralHash() uint64 { return n.structuralHash }

// String returns the default descriptor "kind -> shape". Operations with
// scalar parameters override it to include them.
func (n *NodeBase) String() string {
	return fmt.Sprintf("%s -> %s", n.kind, n.shape)
}

// AssertOperandCount panics if the number of operands doesn't match the
// operation's arity. Used by Clone implementations: a mismatch is a
// programmer error, not a recoverable condition.
func AssertOperandCount(kind OpKind, operands []Value, want int) {
	if len(operands) != want {
		exceptions.Panicf("%s: got %d operands, operation requires %d", kind, len(operands), want)
	}
}
