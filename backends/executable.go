package backends

import (
	"github.com/gomlx/lazyir/types/shapes"
)

// Executable is the API for compiled programs.
//
// How (and whether) an Executable is run is owned by the backend and its
// execution engine -- the IR layer only produces Executables and hands them
// over.
type Executable interface {
	// Name of the computation this executable was compiled from.
	Name() string

	// Inputs returns the list of parameter names and shapes, in the order
	// created by the Builder.Parameter calls.
	Inputs() (names []string, inputShapes []shapes.Shape)

	// Outputs returns the list of the shapes of the outputs of the
	// computation, in the order given to the Builder.Compile call.
	Outputs() (outputShapes []shapes.Shape)

	// Finalize immediately frees resources associated to the executable.
	Finalize()
}
