// Package repository is the data access layer over MySQL. Sentinel errors
// defined here let handlers distinguish failure scenarios without parsing
// driver messages.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not visible to
// the requesting user. Ownership checks are folded into the query itself
// (user-scoped WHERE clauses), so "someone else's note" and "no such note"
// are indistinguishable by design. Handlers translate this into 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a signup collides with an existing
// email. Handlers translate this into 409.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when an insert violates a unique constraint,
// e.g. a random refresh token colliding with an existing one. Callers may
// treat it as retryable.
var ErrDuplicate = errors.New("duplicate record")
