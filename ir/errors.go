package ir

import (
	"github.com/pkg/errors"
)

// The IR error taxonomy. Errors returned by this package (and by the
// concrete operations in sub-packages) wrap one of these sentinels, so
// callers can classify failures with errors.Is.
//
// Precondition violations -- wrong operand arity on Clone, out-of-range
// output index on a Value -- are programmer errors and panic instead, see
// github.com/gomlx/exceptions.
var (
	// ErrShape indicates operand shapes or operation parameters that are
	// semantically invalid for the operation being constructed. It is
	// surfaced at graph-building time and no node is constructed.
	ErrShape = errors.New("invalid shapes or operation parameters")

	// ErrLowering indicates the backend cannot represent the requested
	// operation or parameters. It aborts the current compilation; the node
	// and the graph remain valid and may be lowered again on a different
	// backend.
	ErrLowering = errors.New("cannot lower operation to the backend")
)
