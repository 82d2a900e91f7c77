package types

import "errors"

// Sentinel errors forming the error taxonomy. Callers classify failures
// with errors.Is; storage wraps these with context via fmt.Errorf("%w").
var (
	// ErrValidation covers missing required fields and invalid enum values.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for unknown project, task or queue ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParent is returned when a referenced parent task does not
	// exist or belongs to another project.
	ErrInvalidParent = errors.New("invalid parent task")

	// ErrSelfParent is returned when a task is reparented onto itself.
	ErrSelfParent = errors.New("task cannot be its own parent")

	// ErrCyclicMove is returned when a task is reparented under one of its
	// own descendants.
	ErrCyclicMove = errors.New("cannot move task under its own descendant")

	// ErrRootDeletion is returned when deletion of a project's root task is
	// attempted.
	ErrRootDeletion = errors.New("root task cannot be deleted")
)
