package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// SessionResolver materializes a single virtual session for write paths.
type SessionResolver interface {
	ResolveSession(ctx context.Context, tenantID, sessionID string) (Session, error)
}

// BookingService creates and cancels bookings. Capacity enforcement lives in
// the store transaction; the service resolves the capacity bound, runs the
// duplicate check, and translates store outcomes into the error taxonomy.
type BookingService struct {
	bookings    BookingStore
	sessions    SessionResolver
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingStore, sessions SessionResolver, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		sessions:    sessions,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateBooking books a session seat for the input's subject. The booking row
// and the capacity reservation commit in one transaction; a capacity failure
// leaves no booking behind.
func (s *BookingService) CreateBooking(ctx context.Context, principal Principal, input BookingInput) (persistence.Booking, error) {
	result, err := s.createBooking(ctx, principal, input, false)
	if err != nil {
		return persistence.Booking{}, err
	}
	return result.Booking, nil
}

// CreateBookingIdempotent behaves like CreateBooking but short-circuits on an
// existing active booking for the subject, returning it with Created=false.
// The event worker uses this to absorb redelivered booking requests.
func (s *BookingService) CreateBookingIdempotent(ctx context.Context, principal Principal, input BookingInput) (BookingResult, error) {
	return s.createBooking(ctx, principal, input, true)
}

func (s *BookingService) createBooking(ctx context.Context, principal Principal, input BookingInput, idempotent bool) (BookingResult, error) {
	logger := serviceLogger(ctx, s.logger, "booking", "create_booking",
		"tenant_id", principal.TenantID, "session_id", input.SessionID)

	if err := validateBookingInput(&input, principal); err != nil {
		return BookingResult{}, err
	}

	session, err := s.sessions.ResolveSession(ctx, principal.TenantID, input.SessionID)
	if err != nil {
		return BookingResult{}, err
	}

	existing, err := s.bookings.ListBookingsBySession(ctx, principal.TenantID, input.SessionID)
	if err != nil {
		return BookingResult{}, mapStoreError(err)
	}
	for _, booking := range existing {
		if booking.SubjectID == input.SubjectID && booking.Status != "CANCELLED" {
			if idempotent {
				logger.InfoContext(ctx, "booking request short-circuited on existing booking",
					"booking_id", booking.ID)
				return BookingResult{Booking: booking}, nil
			}
			return BookingResult{}, ErrAlreadyBooked
		}
	}

	booking := persistence.Booking{
		TenantID:    principal.TenantID,
		SessionID:   input.SessionID,
		ID:          s.idGenerator(),
		SubjectID:   input.SubjectID,
		SubjectType: input.SubjectType,
		Status:      "CONFIRMED",
		Source:      input.Source,
		Notes:       input.Notes,
		Extra:       input.Extra,
		CreatedAt:   s.now(),
	}

	if err := s.bookings.CreateBookingReserving(ctx, booking, session.Capacity, session.Date); err != nil {
		if errors.Is(err, persistence.ErrAtCapacity) {
			return BookingResult{}, ErrAtCapacity
		}
		if errors.Is(err, persistence.ErrDuplicate) {
			return BookingResult{}, fmt.Errorf("%w: booking id collision", ErrStoreConflict)
		}
		return BookingResult{}, mapStoreError(err)
	}

	logger.InfoContext(ctx, "booking created",
		"booking_id", booking.ID, "subject_id", booking.SubjectID)
	return BookingResult{Booking: booking, Created: true}, nil
}

// CancelBooking transitions a booking to CANCELLED and releases its seat.
// Non-admin callers with a known subject id may only cancel their own.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) (persistence.Booking, error) {
	logger := serviceLogger(ctx, s.logger, "booking", "cancel_booking",
		"tenant_id", principal.TenantID, "booking_id", bookingID)

	if strings.TrimSpace(bookingID) == "" {
		vErr := &ValidationError{}
		vErr.add("bookingId", "bookingId is required")
		return persistence.Booking{}, vErr
	}

	booking, err := s.bookings.GetBooking(ctx, principal.TenantID, bookingID)
	if err != nil {
		return persistence.Booking{}, mapStoreError(err)
	}
	if principal.SubjectID != "" && !principal.IsAdmin && booking.SubjectID != principal.SubjectID {
		return persistence.Booking{}, ErrForbidden
	}
	if booking.Status == "CANCELLED" {
		return persistence.Booking{}, ErrAlreadyCancelled
	}

	cancelledAt := s.now()
	if err := s.bookings.CancelBookingReleasing(ctx, principal.TenantID, booking.SessionID, bookingID, cancelledAt); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			// The booking flipped to CANCELLED between the read and the write.
			return persistence.Booking{}, ErrAlreadyCancelled
		}
		return persistence.Booking{}, mapStoreError(err)
	}

	booking.Status = "CANCELLED"
	booking.CancelledAt = &cancelledAt
	logger.InfoContext(ctx, "booking cancelled", "session_id", booking.SessionID)
	return booking, nil
}

// ListSessionBookings returns every booking on a session.
func (s *BookingService) ListSessionBookings(ctx context.Context, principal Principal, sessionID string) ([]persistence.Booking, error) {
	bookings, err := s.bookings.ListBookingsBySession(ctx, principal.TenantID, sessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return bookings, nil
}

// ListSubjectBookings returns the caller's bookings, newest first.
func (s *BookingService) ListSubjectBookings(ctx context.Context, principal Principal, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	if principal.SubjectID == "" {
		vErr := &ValidationError{}
		vErr.add("subjectId", "subject could not be resolved")
		return nil, vErr
	}
	bookings, err := s.bookings.ListBookingsBySubject(ctx, principal.TenantID, principal.SubjectID, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return bookings, nil
}

func validateBookingInput(input *BookingInput, principal Principal) error {
	if input.SubjectID == "" {
		input.SubjectID = principal.SubjectID
	}
	if input.SubjectType == "" {
		input.SubjectType = "MEMBER"
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(input.SessionID) == "" {
		vErr.add("sessionId", "sessionId is required")
	}
	if strings.TrimSpace(input.SubjectID) == "" {
		vErr.add("subjectId", "subjectId is required")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
