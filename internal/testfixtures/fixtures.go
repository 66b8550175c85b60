// Package testfixtures provides deterministic builders for tests: a
// controllable clock, a sequential id generator, entity fixtures, and a
// SQLite harness.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

var (
	programCounter  uint64
	locationCounter uint64
	scheduleCounter uint64
	bookingCounter  uint64
)

var referenceTime = time.Date(2025, time.January, 6, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It is a Monday, which keeps weekly recurrence fixtures predictable.
func ReferenceTime() time.Time {
	return referenceTime
}

// TenantID is the tenant every fixture belongs to unless overridden.
const TenantID = "tenant-001"

// ---------------------------- Program fixtures ----------------------------

// ProgramOption configures a generated program fixture.
type ProgramOption func(*persistence.Program)

// NewProgram returns a deterministic program with optional overrides.
func NewProgram(opts ...ProgramOption) persistence.Program {
	idx := atomic.AddUint64(&programCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	program := persistence.Program{
		TenantID:  TenantID,
		ID:        fmt.Sprintf("prog-%03d", idx),
		Name:      fmt.Sprintf("Program %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&program)
	}
	return program
}

// WithProgramID overrides the generated program id.
func WithProgramID(id string) ProgramOption {
	return func(p *persistence.Program) { p.ID = id }
}

// WithProgramTenant overrides the tenant the program belongs to.
func WithProgramTenant(tenantID string) ProgramOption {
	return func(p *persistence.Program) { p.TenantID = tenantID }
}

// WithProgramName overrides the generated name.
func WithProgramName(name string) ProgramOption {
	return func(p *persistence.Program) { p.Name = name }
}

// WithProgramTags sets the program tags.
func WithProgramTags(tags ...string) ProgramOption {
	return func(p *persistence.Program) { p.Tags = tags }
}

// ---------------------------- Location fixtures ---------------------------

// LocationOption configures a generated location fixture.
type LocationOption func(*persistence.Location)

// NewLocation returns a deterministic location with optional overrides. The
// default venue carries coordinates and a 100 meter check-in radius.
func NewLocation(opts ...LocationOption) persistence.Location {
	idx := atomic.AddUint64(&locationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	lat := 30.2672
	lng := -97.7431
	location := persistence.Location{
		TenantID:            TenantID,
		ID:                  fmt.Sprintf("loc-%03d", idx),
		Name:                fmt.Sprintf("Studio %03d", idx),
		Lat:                 &lat,
		Lng:                 &lng,
		CheckInRadiusMeters: 100,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
	for _, opt := range opts {
		opt(&location)
	}
	return location
}

// WithLocationID overrides the generated location id.
func WithLocationID(id string) LocationOption {
	return func(l *persistence.Location) { l.ID = id }
}

// WithLocationTenant overrides the tenant the location belongs to.
func WithLocationTenant(tenantID string) LocationOption {
	return func(l *persistence.Location) { l.TenantID = tenantID }
}

// WithLocationCoordinates sets the venue coordinates.
func WithLocationCoordinates(lat, lng float64) LocationOption {
	return func(l *persistence.Location) {
		l.Lat = &lat
		l.Lng = &lng
	}
}

// WithoutLocationCoordinates clears the coordinates, producing a venue that
// cannot gate GPS check-ins.
func WithoutLocationCoordinates() LocationOption {
	return func(l *persistence.Location) {
		l.Lat = nil
		l.Lng = nil
	}
}

// WithLocationRadius sets the check-in radius in meters.
func WithLocationRadius(meters float64) LocationOption {
	return func(l *persistence.Location) { l.CheckInRadiusMeters = meters }
}

// ---------------------------- Schedule fixtures ---------------------------

// ScheduleOption configures a generated schedule fixture.
type ScheduleOption func(*persistence.Schedule)

// NewSchedule returns a deterministic schedule with optional overrides. The
// default is a weekly Monday/Wednesday/Friday session in America/New_York
// starting at the reference Monday.
func NewSchedule(opts ...ScheduleOption) persistence.Schedule {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	programID := "prog-001"
	rrule := "RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR"
	schedule := persistence.Schedule{
		TenantID:    TenantID,
		ID:          fmt.Sprintf("sched-%03d", idx),
		Type:        "SESSION",
		ProgramID:   &programID,
		StartLocal:  "2025-01-06T07:00:00",
		EndLocal:    "2025-01-06T08:00:00",
		Timezone:    "America/New_York",
		IsRecurring: true,
		RRule:       &rrule,
		Hosts:       []persistence.Host{{ID: "host-001", Type: "PROVIDER"}},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

// WithScheduleID overrides the generated schedule id.
func WithScheduleID(id string) ScheduleOption {
	return func(s *persistence.Schedule) { s.ID = id }
}

// WithScheduleTenant overrides the tenant the schedule belongs to.
func WithScheduleTenant(tenantID string) ScheduleOption {
	return func(s *persistence.Schedule) { s.TenantID = tenantID }
}

// WithScheduleType sets the schedule type, clearing the program reference
// for BLOCK schedules.
func WithScheduleType(scheduleType string) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.Type = scheduleType
		if scheduleType == "BLOCK" {
			s.ProgramID = nil
		}
	}
}

// WithScheduleProgram points the schedule at a program.
func WithScheduleProgram(programID string) ScheduleOption {
	return func(s *persistence.Schedule) { s.ProgramID = &programID }
}

// WithScheduleLocation points the schedule at a location.
func WithScheduleLocation(locationID string) ScheduleOption {
	return func(s *persistence.Schedule) { s.LocationID = &locationID }
}

// WithScheduleTimes sets the local start and end wall-clock datetimes.
func WithScheduleTimes(start, end string) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.StartLocal = start
		s.EndLocal = end
	}
}

// WithScheduleTimezone sets the IANA zone the wall-clock times live in.
func WithScheduleTimezone(zone string) ScheduleOption {
	return func(s *persistence.Schedule) { s.Timezone = zone }
}

// WithScheduleRule sets the recurrence rule.
func WithScheduleRule(rrule string) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.IsRecurring = true
		s.RRule = &rrule
	}
}

// WithoutRecurrence makes the schedule a one-off.
func WithoutRecurrence() ScheduleOption {
	return func(s *persistence.Schedule) {
		s.IsRecurring = false
		s.RRule = nil
	}
}

// WithScheduleCapacity sets the base capacity.
func WithScheduleCapacity(capacity int) ScheduleOption {
	return func(s *persistence.Schedule) { s.BaseCapacity = &capacity }
}

// WithScheduleHosts replaces the host list. The first host is the primary.
func WithScheduleHosts(hosts ...persistence.Host) ScheduleOption {
	return func(s *persistence.Schedule) { s.Hosts = hosts }
}

// --------------------------- Exception fixtures ---------------------------

// ExceptionOption configures a generated schedule exception fixture.
type ExceptionOption func(*persistence.ScheduleException)

// NewException returns a CANCELLED exception for the supplied schedule and
// occurrence date, with optional overrides.
func NewException(scheduleID, occurrenceDate string, opts ...ExceptionOption) persistence.ScheduleException {
	exception := persistence.ScheduleException{
		TenantID:       TenantID,
		ScheduleID:     scheduleID,
		OccurrenceDate: occurrenceDate,
		Type:           "CANCELLED",
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&exception)
	}
	return exception
}

// WithExceptionTenant overrides the tenant the exception belongs to.
func WithExceptionTenant(tenantID string) ExceptionOption {
	return func(e *persistence.ScheduleException) { e.TenantID = tenantID }
}

// AsOverride turns the exception into an OVERRIDE.
func AsOverride() ExceptionOption {
	return func(e *persistence.ScheduleException) { e.Type = "OVERRIDE" }
}

// WithOverrideCapacity sets an override capacity and marks the exception as
// an OVERRIDE.
func WithOverrideCapacity(capacity int) ExceptionOption {
	return func(e *persistence.ScheduleException) {
		e.Type = "OVERRIDE"
		e.OverrideCapacity = &capacity
	}
}

// WithOverrideStart sets an override start clock and marks the exception as
// an OVERRIDE.
func WithOverrideStart(start string) ExceptionOption {
	return func(e *persistence.ScheduleException) {
		e.Type = "OVERRIDE"
		e.OverrideStart = &start
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingOption configures a generated booking fixture.
type BookingOption func(*persistence.Booking)

// NewBooking returns a confirmed booking on the supplied session with
// optional overrides.
func NewBooking(sessionID string, opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	booking := persistence.Booking{
		TenantID:    TenantID,
		SessionID:   sessionID,
		ID:          fmt.Sprintf("bk-%03d", idx),
		SubjectID:   fmt.Sprintf("subj-%03d", idx),
		SubjectType: "MEMBER",
		Status:      "CONFIRMED",
		Source:      "API",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return booking
}

// WithBookingID overrides the generated booking id.
func WithBookingID(id string) BookingOption {
	return func(b *persistence.Booking) { b.ID = id }
}

// WithBookingTenant overrides the tenant the booking belongs to.
func WithBookingTenant(tenantID string) BookingOption {
	return func(b *persistence.Booking) { b.TenantID = tenantID }
}

// WithBookingSubject sets the subject holding the booking.
func WithBookingSubject(subjectID, subjectType string) BookingOption {
	return func(b *persistence.Booking) {
		b.SubjectID = subjectID
		b.SubjectType = subjectType
	}
}

// WithBookingStatus sets the booking status.
func WithBookingStatus(status string) BookingOption {
	return func(b *persistence.Booking) { b.Status = status }
}
