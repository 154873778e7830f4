package trace

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/lazyir/backends"
	"github.com/gomlx/lazyir/types/shapes"
)

// Executable holds the recorded program of a compiled trace computation.
type Executable struct {
	name         string
	inputNames   []string
	inputShapes  []shapes.Shape
	outputShapes []shapes.Shape

	program []*Node
	outputs []*Node
}

var _ backends.Executable = (*Executable)(nil)

// Compile implements backends.Builder: it freezes the Builder and returns the
// recorded program as an Executable.
func (b *Builder) Compile(outputs ...backends.Op) (backends.Executable, error) {
	if b.compiled {
		return nil, errors.Errorf("Builder %q has already been compiled", b.name)
	}
	if len(outputs) == 0 {
		return nil, errors.Errorf("Compile of %q requires at least one output", b.name)
	}
	outputNodes := make([]*Node, len(outputs))
	var ok bool
	for idx, op := range outputs {
		outputNodes[idx], ok = op.(*Node)
		if !ok || outputNodes[idx].builder != b {
			return nil, errors.Errorf("Compile: output #%d was not created by builder %q", idx, b.name)
		}
	}
	b.compiled = true

	exec := &Executable{
		name:         b.name,
		inputNames:   make([]string, 0, len(b.inputs)),
		inputShapes:  make([]shapes.Shape, 0, len(b.inputs)),
		outputShapes: make([]shapes.Shape, 0, len(outputNodes)),
		program:      b.nodes,
		outputs:      outputNodes,
	}
	for _, input := range b.inputs {
		exec.inputNames = append(exec.inputNames, input.name)
		exec.inputShapes = append(exec.inputShapes, input.shape)
	}
	for _, output := range outputNodes {
		exec.outputShapes = append(exec.outputShapes, output.shape)
	}
	klog.V(1).Infof("trace: compiled %q with %d nodes, %d inputs, %d outputs",
		b.name, len(exec.program), len(exec.inputShapes), len(exec.outputShapes))
	return exec, nil
}

// Name implements backends.Executable.
func (e *Executable) Name() string { return e.name }

// Inputs implements backends.Executable.
func (e *Executable) Inputs() (names []string, inputShapes []shapes.Shape) {
	return e.inputNames, e.inputShapes
}

// Outputs implements backends.Executable.
func (e *Executable) Outputs() (outputShapes []shapes.Shape) {
	return e.outputShapes
}

// Finalize implements backends.Executable.
func (e *Executable) Finalize() {
	e.program = nil
	e.outputs = nil
}

// Program returns the recorded nodes in the order they were built, which is
// also a valid topological (post-)order of the computation DAG.
func (e *Executable) Program() []*Node { return e.program }

// OpCount returns how many nodes of the given OpType the program recorded.
func (e *Executable) OpCount(opType backends.OpType) int {
	count := 0
	for _, node := range e.program {
		if node.opType == opType {
			count++
		}
	}
	return count
}
