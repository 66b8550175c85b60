package persistence

import (
	"context"
	"time"
)

// ProgramRepository stores program catalog entries.
type ProgramRepository interface {
	CreateProgram(ctx context.Context, program Program) error
	GetProgram(ctx context.Context, tenantID, id string) (Program, error)
	UpdateProgram(ctx context.Context, program Program) error
	DeleteProgram(ctx context.Context, tenantID, id string) error
	ListPrograms(ctx context.Context, tenantID string) ([]Program, error)
}

// LocationRepository stores physical locations.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) error
	GetLocation(ctx context.Context, tenantID, id string) (Location, error)
	UpdateLocation(ctx context.Context, location Location) error
	DeleteLocation(ctx context.Context, tenantID, id string) error
	ListLocations(ctx context.Context, tenantID string) ([]Location, error)
}

// ScheduleFilter narrows schedule listings.
type ScheduleFilter struct {
	ProgramIDs []string
	HostID     string
}

// ScheduleRepository stores schedule time patterns.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) error
	GetSchedule(ctx context.Context, tenantID, id string) (Schedule, error)
	UpdateSchedule(ctx context.Context, schedule Schedule) error
	DeleteSchedule(ctx context.Context, tenantID, id string) error
	ListSchedules(ctx context.Context, tenantID string, filter ScheduleFilter) ([]Schedule, error)
}

// ExceptionRepository stores per-date schedule overrides.
type ExceptionRepository interface {
	CreateException(ctx context.Context, exception ScheduleException) error
	GetException(ctx context.Context, tenantID, scheduleID, occurrenceDate string) (ScheduleException, error)
	UpdateException(ctx context.Context, exception ScheduleException) error
	DeleteException(ctx context.Context, tenantID, scheduleID, occurrenceDate string) error
	// ListExceptions returns exceptions for a schedule whose occurrence date
	// falls within [startDate, endDate]; empty bounds are unbounded.
	ListExceptions(ctx context.Context, tenantID, scheduleID, startDate, endDate string) ([]ScheduleException, error)
}

// BookingFilter narrows subject-scoped booking listings.
type BookingFilter struct {
	Status string
	Limit  int
}

// BookingRepository stores bookings and owns the two multi-entity
// transactions that keep booking rows and summary counters consistent.
type BookingRepository interface {
	// CreateBookingReserving inserts the booking and increments the session
	// summary counter in one transaction. capacity carries the resolved
	// capacity bound (nil means unlimited); date is the session's local
	// occurrence date, recorded when the summary row is first created. The
	// capacity condition failing surfaces ErrAtCapacity and leaves no
	// booking row behind.
	CreateBookingReserving(ctx context.Context, booking Booking, capacity *int, date string) error
	// CancelBookingReleasing marks the booking cancelled and decrements the
	// summary counter in one transaction, conditional on the counter being
	// positive.
	CancelBookingReleasing(ctx context.Context, tenantID, sessionID, bookingID string, cancelledAt time.Time) error
	GetBooking(ctx context.Context, tenantID, bookingID string) (Booking, error)
	ListBookingsBySession(ctx context.Context, tenantID, sessionID string) ([]Booking, error)
	ListBookingsBySubject(ctx context.Context, tenantID, subjectID string, filter BookingFilter) ([]Booking, error)
	// ListUnattendedBefore returns confirmed bookings, across tenants, whose
	// session occurrence date is strictly before cutoffDate and which have
	// no attendance record yet.
	ListUnattendedBefore(ctx context.Context, cutoffDate string, limit int) ([]Booking, error)
}

// SummaryRepository reads session summary counters.
type SummaryRepository interface {
	// GetSummaries batch-loads summaries for the supplied session ids,
	// keyed by session id. Missing sessions are simply absent from the map.
	GetSummaries(ctx context.Context, tenantID string, sessionIDs []string) (map[string]SessionSummary, error)
	GetSummary(ctx context.Context, tenantID, sessionID string) (SessionSummary, error)
}

// AttendanceRepository stores check-in records.
type AttendanceRepository interface {
	// CreateAttendance inserts a record, failing with ErrDuplicate when one
	// already exists for the booking.
	CreateAttendance(ctx context.Context, record AttendanceRecord) error
	// UpsertAttendance creates or replaces the record for a booking; used by
	// administrative overrides and the no-show sweep.
	UpsertAttendance(ctx context.Context, record AttendanceRecord) error
	GetAttendance(ctx context.Context, tenantID, sessionID, bookingID string) (AttendanceRecord, error)
	ListAttendanceBySession(ctx context.Context, tenantID, sessionID string) ([]AttendanceRecord, error)
	ListAttendanceBySubject(ctx context.Context, tenantID, subjectID string) ([]AttendanceRecord, error)
}
