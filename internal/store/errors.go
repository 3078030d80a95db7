package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations. Callers
// check them with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrVideoNotFound indicates that the requested video does not exist.
	ErrVideoNotFound = fmt.Errorf("%w: video", ErrNotFound)

	// ErrAnalysisNotFound indicates that the requested analysis result
	// does not exist.
	ErrAnalysisNotFound = fmt.Errorf("%w: analysis result", ErrNotFound)
)
