package repository

import "errors"

// Sentinel errors shared by all repositories. Services and handlers match on
// these with errors.Is; everything else is treated as an unexpected storage
// failure and surfaced generically.
var (
	// ErrNotFound covers both "row absent" and "row owned by someone else";
	// callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrConflict is a unique-constraint violation, e.g. two racing inserts
	// for the same subject id.
	ErrConflict = errors.New("already exists")
)
