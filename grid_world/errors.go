package grid_world

import "errors"

var (
	// ErrOutOfBounds indicates a coordinate outside [1,width]x[1,height].
	ErrOutOfBounds = errors.New("grid_world: coordinate out of bounds")
	// ErrInvariantViolation indicates a grid the solver cannot evaluate, such as a
	// hazard whose redirect target lies off-grid while carrying probability mass.
	ErrInvariantViolation = errors.New("grid_world: invariant violation")
	// ErrInvalidProblem indicates a malformed problem definition.
	ErrInvalidProblem = errors.New("grid_world: invalid problem definition")
)
