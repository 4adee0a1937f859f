package store

import "errors"

// Sentinel errors shared by all store implementations.  Services translate
// these into API-level error kinds; stores never log.
var (
	// ErrNotFound: the id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the row exists but is not in the state the operation
	// requires (e.g. promoting a rule that is already active).
	ErrConflict = errors.New("conflict")

	// ErrMissingReference: a foreign key (user or scanner id) does not
	// reference an existing row.
	ErrMissingReference = errors.New("missing reference")
)
