package application

import (
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// Principal identifies the tenant and subject behind a request. SubjectID is
// empty for unauthenticated header-only callers; services that require
// ownership checks skip them when it is unknown.
type Principal struct {
	TenantID  string
	SubjectID string
	IsAdmin   bool
}

// Session is a virtual occurrence of a schedule on one local date. Sessions
// are never stored; they are materialized on demand and their counters come
// from the session summary when one exists.
type Session struct {
	TenantID      string
	ID            string
	ScheduleID    string
	Date          string
	Start         time.Time
	End           time.Time
	Timezone      string
	Type          string
	ProgramID     *string
	LocationID    *string
	Hosts         []persistence.Host
	Tags          []string
	Capacity      *int
	BookedCount   int
	WaitlistCount int
}

// HasHost reports whether any of the session's hosts matches the id.
func (s Session) HasHost(hostID string) bool {
	for _, host := range s.Hosts {
		if host.ID == hostID {
			return true
		}
	}
	return false
}

// SessionQuery captures the read-path filters for session listings.
type SessionQuery struct {
	SessionID  string
	StartDate  string
	EndDate    string
	ProgramIDs []string
	Type       string
	HostID     string
	LocationID string
	// StartTime and EndTime bound the session's local wall-clock start, "HH:MM".
	StartTime string
	EndTime   string
}

// ProgramInput captures caller provided program fields.
type ProgramInput struct {
	Name        string
	Description string
	Tags        []string
	Extra       map[string]string
}

// LocationInput captures caller provided location fields.
type LocationInput struct {
	Name                string
	Lat                 *float64
	Lng                 *float64
	CheckInRadiusMeters *float64
	Extra               map[string]string
}

// ScheduleInput captures caller provided schedule fields. Start and End are
// offset-free local wall-clock datetimes interpreted in Timezone.
type ScheduleInput struct {
	Type         string
	ProgramID    *string
	LocationID   *string
	Start        string
	End          string
	Timezone     string
	IsRecurring  bool
	RRule        *string
	BaseCapacity *int
	Hosts        []persistence.Host
	Tags         []string
	Extra        map[string]string
}

// ExceptionInput captures caller provided per-date override fields.
type ExceptionInput struct {
	ScheduleID         string
	OccurrenceDate     string
	Type               string
	OverrideStart      *string
	OverrideEnd        *string
	OverrideCapacity   *int
	OverrideHosts      []persistence.Host
	OverrideLocationID *string
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	SessionID   string
	SubjectID   string
	SubjectType string
	Source      string
	Notes       string
	Extra       map[string]string
}

// BookingResult pairs a booking with whether this call created it. Created is
// false when an idempotent create short-circuited on an existing booking.
type BookingResult struct {
	Booking persistence.Booking
	Created bool
}

// CheckInInput captures caller provided check-in fields. Lat and Lng are both
// present for a GPS check-in and both absent for a manual one.
type CheckInInput struct {
	BookingID string
	Lat       *float64
	Lng       *float64
}

// CheckInResult pairs the stored attendance record with the measured GPS
// distance, when one was computed.
type CheckInResult struct {
	Record         persistence.AttendanceRecord
	DistanceMeters *float64
}

// AttendanceOverrideInput captures an administrative attendance correction.
type AttendanceOverrideInput struct {
	SessionID string
	BookingID string
	Status    string
}
