package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the acting subject does not own the
	// resource it is trying to mutate.
	ErrForbidden = errors.New("application: forbidden")
	// ErrAlreadyExists is returned when a create collides with an existing resource.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrAtCapacity is returned when a booking would exceed the session's
	// resolved capacity. Clients may retry against a different session.
	ErrAtCapacity = errors.New("application: session at capacity")
	// ErrAlreadyBooked is returned when the subject already holds an active
	// booking on the session.
	ErrAlreadyBooked = errors.New("application: already booked")
	// ErrAlreadyCancelled is returned when cancelling a booking that is
	// already cancelled.
	ErrAlreadyCancelled = errors.New("application: booking already cancelled")
	// ErrAlreadyCheckedIn is returned when a present check-in exists for the booking.
	ErrAlreadyCheckedIn = errors.New("application: already checked in")
	// ErrTooEarly is returned when a check-in precedes the session window.
	ErrTooEarly = errors.New("application: check-in too early")
	// ErrTooLate is returned when a check-in follows the session window.
	ErrTooLate = errors.New("application: check-in too late")
	// ErrOutOfRange is returned when a GPS check-in is outside the location's radius.
	ErrOutOfRange = errors.New("application: check-in out of range")
	// ErrRangeTooLarge is returned when a session query window exceeds the
	// configured maximum number of days.
	ErrRangeTooLarge = errors.New("application: date range too large")
	// ErrStoreConflict is returned when a transaction is cancelled for a
	// reason other than the capacity condition. Retryable.
	ErrStoreConflict = errors.New("application: store conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
