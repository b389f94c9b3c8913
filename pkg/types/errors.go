package types

import "errors"

// Error taxonomy shared by the store, indexes, and engines. Callers classify
// failures with errors.Is; messages carry the offending id via wrapping.
var (
	// ErrNotFound is returned when an operation references a missing node or edge id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when a creation collides with an existing id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownNode is returned when edge creation references a non-existent endpoint.
	ErrUnknownNode = errors.New("unknown node")
	// ErrHasDependentEdges is returned when a non-cascading node deletion is
	// blocked by incident edges.
	ErrHasDependentEdges = errors.New("node has dependent edges")
	// ErrInvalidPattern is returned for a malformed pattern-match query.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrTooLargeForExactComputation is returned when an exact analytics
	// algorithm would exceed the configured size ceiling. Callers should
	// request the sampled variant instead.
	ErrTooLargeForExactComputation = errors.New("graph too large for exact computation")
	// ErrConflict is returned on an optimistic-concurrency version mismatch.
	ErrConflict = errors.New("version conflict")

	// Validation errors.
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyID       = errors.New("id cannot be empty")
	ErrEmptyLabel    = errors.New("label cannot be empty")
	ErrInvalidType   = errors.New("invalid type")
	ErrInvalidWeight = errors.New("weight must be non-negative")
	ErrInvalidScore  = errors.New("strength and confidence must be in [0, 1]")
	ErrInvalidLimit  = errors.New("limit must be positive")
)
