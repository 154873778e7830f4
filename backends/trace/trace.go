// Package trace implements a minimal pure-Go backend that records the
// computation being built as a flat program of nodes, without executing
// anything.
//
// It serves two roles:
//
//   - It is the scratch builder the IR layer uses for symbolic shape
//     inference: placeholder parameters are fed through an operation's
//     lowering closure and only the resulting shapes are tracked.
//   - It is the reference backend for tests: the recorded program makes it
//     easy to assert exactly which ops a graph lowers to, and how many.
//
// A trace Backend can be restricted with capabilities (see
// NewWithCapabilities) to exercise lowering failures.
package trace

import (
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/lazyir/backends"
)

// BackendName to be used with backends.NewWithConfig or the LAZYIR_BACKEND
// environment variable.
const BackendName = "trace"

func init() {
	backends.Register(BackendName, func(config string) (backends.Backend, error) {
		return New(), nil
	})
}

// Backend records built computations. See package documentation.
type Backend struct {
	capabilities backends.Capabilities
}

var _ backends.Backend = (*Backend)(nil)

// New returns a trace Backend supporting every operation and dtype the
// builder implements.
func New() *Backend {
	return &Backend{capabilities: fullCapabilities.Clone()}
}

// NewWithCapabilities returns a trace Backend restricted to the given
// capabilities: unsupported operations fail with backends.ErrNotImplemented
// when built.
func NewWithCapabilities(capabilities backends.Capabilities) *Backend {
	return &Backend{capabilities: capabilities.Clone()}
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "Tracing backend: records the built program, doesn't execute"
}

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities {
	return b.capabilities.Clone()
}

// Builder implements backends.Backend.
func (b *Backend) Builder(name string) backends.Builder {
	return &Builder{name: name, backend: b}
}

var fullCapabilities = backends.Capabilities{
	Operations: map[backends.OpType]bool{
		backends.OpTypeParameter: true,
		backends.OpTypeConstant:  true,
		backends.OpTypeAdd:       true,
		backends.OpTypeMul:       true,
		backends.OpTypeReduceMax: true,
		backends.OpTypeReduceMin: true,
		backends.OpTypeReshape:   true,
	},
	DTypes: map[dtypes.DType]bool{
		dtypes.Bool:    true,
		dtypes.Int8:    true,
		dtypes.Int16:   true,
		dtypes.Int32:   true,
		dtypes.Int64:   true,
		dtypes.Uint8:   true,
		dtypes.Uint16:  true,
		dtypes.Uint32:  true,
		dtypes.Uint64:  true,
		dtypes.Float32: true,
		dtypes.Float64: true,
	},
}
