package store

import "errors"

var (
	// ErrValidation is returned when an action is refused before any
	// state change or network call (empty title, unknown category,
	// non-positive goal target).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for actions on an id the store does not hold.
	ErrNotFound = errors.New("not found")

	// ErrPending is returned for actions on a task whose create request
	// has not been confirmed yet.
	ErrPending = errors.New("task not yet saved")

	// ErrNoUser is returned by actions invoked while no user is active.
	ErrNoUser = errors.New("no active user")
)
