// Package repository implements the data access layer over MySQL. The
// sentinel values defined here let handlers map storage failures onto
// HTTP statuses without inspecting driver errors. Ownership is enforced
// in every query: a row belonging to another user surfaces as the same
// not-found error as a row that does not exist, so existence never leaks
// across accounts.
package repository

import "errors"

// ErrUsernameExists is returned when registration hits the unique
// constraint on user.username. Handlers translate it to HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrNoteNotFound is returned when a note is missing or owned by someone
// else. Handlers translate it to HTTP 404.
var ErrNoteNotFound = errors.New("note not found")

// ErrLabelNotFound is returned when a label is missing or owned by
// someone else. Handlers translate it to HTTP 404.
var ErrLabelNotFound = errors.New("label not found")

// ErrAlreadyAttached is returned when a label is attached to a note that
// already carries it. Attaching is not idempotent by design; handlers
// translate this to HTTP 409.
var ErrAlreadyAttached = errors.New("label already attached")

// ErrNotAttached is returned when detaching a label edge that does not
// exist. Handlers translate it to HTTP 404.
var ErrNotAttached = errors.New("label not attached")
