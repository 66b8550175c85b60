package application

import (
	"context"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// The store interfaces capture the persistence interactions the services
// need. The sqlite repositories satisfy them directly; tests provide stubs.

// ProgramStore persists program catalog entries.
type ProgramStore interface {
	CreateProgram(ctx context.Context, program persistence.Program) error
	GetProgram(ctx context.Context, tenantID, id string) (persistence.Program, error)
	UpdateProgram(ctx context.Context, program persistence.Program) error
	DeleteProgram(ctx context.Context, tenantID, id string) error
	ListPrograms(ctx context.Context, tenantID string) ([]persistence.Program, error)
}

// LocationStore persists locations.
type LocationStore interface {
	CreateLocation(ctx context.Context, location persistence.Location) error
	GetLocation(ctx context.Context, tenantID, id string) (persistence.Location, error)
	UpdateLocation(ctx context.Context, location persistence.Location) error
	DeleteLocation(ctx context.Context, tenantID, id string) error
	ListLocations(ctx context.Context, tenantID string) ([]persistence.Location, error)
}

// ScheduleStore persists schedule time patterns.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, schedule persistence.Schedule) error
	GetSchedule(ctx context.Context, tenantID, id string) (persistence.Schedule, error)
	UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error
	DeleteSchedule(ctx context.Context, tenantID, id string) error
	ListSchedules(ctx context.Context, tenantID string, filter persistence.ScheduleFilter) ([]persistence.Schedule, error)
}

// ExceptionStore persists per-date schedule overrides.
type ExceptionStore interface {
	CreateException(ctx context.Context, exception persistence.ScheduleException) error
	GetException(ctx context.Context, tenantID, scheduleID, occurrenceDate string) (persistence.ScheduleException, error)
	UpdateException(ctx context.Context, exception persistence.ScheduleException) error
	DeleteException(ctx context.Context, tenantID, scheduleID, occurrenceDate string) error
	ListExceptions(ctx context.Context, tenantID, scheduleID, startDate, endDate string) ([]persistence.ScheduleException, error)
}

// BookingStore persists bookings together with their capacity counters.
type BookingStore interface {
	CreateBookingReserving(ctx context.Context, booking persistence.Booking, capacity *int, date string) error
	CancelBookingReleasing(ctx context.Context, tenantID, sessionID, bookingID string, cancelledAt time.Time) error
	GetBooking(ctx context.Context, tenantID, bookingID string) (persistence.Booking, error)
	ListBookingsBySession(ctx context.Context, tenantID, sessionID string) ([]persistence.Booking, error)
	ListBookingsBySubject(ctx context.Context, tenantID, subjectID string, filter persistence.BookingFilter) ([]persistence.Booking, error)
}

// SummaryStore reads session summary counters.
type SummaryStore interface {
	GetSummaries(ctx context.Context, tenantID string, sessionIDs []string) (map[string]persistence.SessionSummary, error)
	GetSummary(ctx context.Context, tenantID, sessionID string) (persistence.SessionSummary, error)
}

// AttendanceStore persists check-in records.
type AttendanceStore interface {
	CreateAttendance(ctx context.Context, record persistence.AttendanceRecord) error
	UpsertAttendance(ctx context.Context, record persistence.AttendanceRecord) error
	GetAttendance(ctx context.Context, tenantID, sessionID, bookingID string) (persistence.AttendanceRecord, error)
	ListAttendanceBySession(ctx context.Context, tenantID, sessionID string) ([]persistence.AttendanceRecord, error)
	ListAttendanceBySubject(ctx context.Context, tenantID, subjectID string) ([]persistence.AttendanceRecord, error)
}
