package ir

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/lazyir/backends"
)

// LoweringContext translates a node DAG into a backend program, exactly once
// per compilation.
//
// It owns one backends.Builder and a memoization cache from node identity to
// the node's emitted backend handles: each node's Lower runs at most once
// per context, no matter how many consumers request its outputs -- critical
// since nodes may be shared by multiple consumers (and by multiple graphs).
//
// A LoweringContext must not be shared across concurrent compilations: each
// compilation creates its own context (and hence its own cache), so no
// cross-context synchronization is needed even when the underlying nodes are
// shared.
type LoweringContext struct {
	backend backends.Backend
	builder backends.Builder

	emitted map[Node][]backends.Op
	results []backends.Op
}

// NewLoweringContext creates the context for one compilation of a
// computation with the given name, targeting the given backend.
func NewLoweringContext(name string, backend backends.Backend) *LoweringContext {
	return &LoweringContext{
		backend: backend,
		builder: backend.Builder(name),
		emitted: make(map[Node][]backends.Op),
	}
}

// Backend this context lowers to.
func (ctx *LoweringContext) Backend() backends.Backend { return ctx.backend }

// Builder the nodes emit their backend ops through. Used by Node.Lower
// implementations.
func (ctx *LoweringContext) Builder() backends.Builder { return ctx.builder }

// LowerNode returns the backend handles for all outputs of node, lowering it
// first if this context hasn't yet -- a node's Lower recursively requests
// its operands' handles through GetOutputOp, so the traversal is a memoized
// post-order walk of the DAG.
//
// On failure the error wraps ErrLowering and the compilation must be
// abandoned; the nodes themselves remain valid for lowering under a
// different context/backend.
func (ctx *LoweringContext) LowerNode(node Node) ([]backends.Op, error) {
	if ops, found := ctx.emitted[node]; found {
		return ops, nil
	}
	klog.V(2).Infof("lowering %s", node)
	ops, err := node.Lower(ctx)
	if err != nil {
		if !errors.Is(err, ErrLowering) {
			err = errors.Wrapf(ErrLowering, "lowering %s: %v", node, err)
		}
		return nil, err
	}
	if len(ops) != node.NumOutputs() {
		exceptions.Panicf("node %s lowered to %d backend ops, but declares %d outputs", node, len(ops), node.NumOutputs())
	}
	ctx.emitted[node] = ops
	return ops, nil
}

// GetOutputOp returns the backend handle for the given value, lowering its
// node (and, recursively, the node's operands) on first request.
func (ctx *LoweringContext) GetOutputOp(v Value) (backends.Op, error) {
	if !v.IsValid() {
		exceptions.Panicf("LoweringContext.GetOutputOp: invalid (zero) Value")
	}
	ops, err := ctx.LowerNode(v.Node())
	if err != nil {
		return nil, err
	}
	return ops[v.Index()], nil
}

// AddResult lowers v (if needed) and registers it as one of the designated
// outputs of the compiled program, in call order.
func (ctx *LoweringContext) AddResult(v Value) error {
	op, err := ctx.GetOutputOp(v)
	if err != nil {
		return err
	}
	ctx.results = append(ctx.results, op)
	return nil
}

// Compile finishes the builder and returns the backend executable for the
// results registered with AddResult. On error no partial program is
// returned.
func (ctx *LoweringContext) Compile() (backends.Executable, error) {
	if len(ctx.results) == 0 {
		return nil, errors.Wrapf(ErrLowering, "no results registered with AddResult for computation %q", ctx.builder.Name())
	}
	exec, err := ctx.builder.Compile(ctx.results...)
	if err != nil {
		return nil, errors.Wrapf(ErrLowering, "compiling %q: %v", ctx.builder.Name(), err)
	}
	return exec, nil
}
