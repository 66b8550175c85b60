package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write collides with an existing record.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrAtCapacity is returned when a capacity-conditional reserve fails.
	ErrAtCapacity = errors.New("persistence: session at capacity")
	// ErrCounterUnderflow is returned when a release would drop a counter
	// below zero. Booking invariants make this unreachable; treat it as a
	// logic error.
	ErrCounterUnderflow = errors.New("persistence: counter underflow")
	// ErrConstraintViolation is returned when a write violates a schema
	// constraint other than uniqueness.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
