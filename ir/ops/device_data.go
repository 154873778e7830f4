// Package ops implements the concrete IR operations.
//
// Each operation embeds ir.NodeBase and supplies its shape-inference
// closure, its lowering to the backend op-builder, cloning with substituted
// operands, and a descriptor. Factories take the *ir.Graph arena and return
// ir.Values already interned (and hence deduplicated) in it.
package ops

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/ir"
	"github.com/gomlx/lazyir/types/shapes"
)

// KindDeviceData tags graph inputs: tensors that live on the device and are
// fed to the compiled program as parameters.
const KindDeviceData = ir.OpKind("lazyir::device_data")

// DeviceData is a leaf node representing one input of the computation. Every
// instance is a distinct input: DeviceData nodes are never deduplicated,
// even when name and shape coincide.
type DeviceData struct {
	ir.NodeBase
	name string
}

var _ ir.Node = (*DeviceData)(nil)

// NewDeviceData creates a graph input with the given name and shape.
func NewDeviceData(g *ir.Graph, name string, shape shapes.Shape) (ir.Value, error) {
	node, err := newDeviceData(name, shape)
	if err != nil {
		return ir.Value{}, err
	}
	return ir.MakeValue(g.Intern(node), 0), nil
}

func newDeviceData(name string, shape shapes.Shape) (*DeviceData, error) {
	if !shape.Ok() || shape.IsTuple() {
		return nil, errors.Wrapf(ir.ErrShape, "DeviceData %q requires a valid non-tuple shape, got %s", name, shape)
	}
	base := ir.NewNodeBaseWithShape(KindDeviceData, nil, shape, 1, name, shape)
	return &DeviceData{NodeBase: base, name: name}, nil
}

// Name of the input, as fed to the compiled program.
func (n *DeviceData) Name() string { return n.name }

// Clone implements ir.Node.
func (n *DeviceData) Clone(operands []ir.Value) (ir.Node, error) {
	ir.AssertOperandCount(KindDeviceData, operands, 0)
	return newDeviceData(n.name, n.Shape())
}

// Lower implements ir.Node.
func (n *DeviceData) Lower(ctx *ir.LoweringContext) ([]backends.Op, error) {
	op, err := ctx.Builder().Parameter(n.name, n.Shape())
	if err != nil {
		return nil, errors.Wrapf(ir.ErrLowering, "%s: %v", n, err)
	}
	return []backends.Op{op}, nil
}

// String implements ir.Node.
func (n *DeviceData) String() string {
	return fmt.Sprintf("%s(name=%q) -> %s", n.Kind(), n.name, n.Shape())
}
