package store

import "errors"

// ErrNotFound is returned when a record does not exist or, for the
// compare-and-swap updates, when the guarding token value no longer
// matches any row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert would shadow an existing
// account's email address.
var ErrEmailExists = errors.New("email already exists")
