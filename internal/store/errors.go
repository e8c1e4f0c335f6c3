package store

import "errors"

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a simulator mutation targets a row
// that is not in the state the mutation expects.
var ErrInvalidTransition = errors.New("invalid state transition")
