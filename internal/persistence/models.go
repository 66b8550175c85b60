package persistence

import "time"

// Program is the catalog entry describing what a schedule offers.
type Program struct {
	TenantID    string
	ID          string
	Name        string
	Description string
	Tags        []string
	Extra       map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is a physical place with optional coordinates used by check-in.
type Location struct {
	TenantID            string
	ID                  string
	Name                string
	Lat                 *float64
	Lng                 *float64
	CheckInRadiusMeters float64
	Extra               map[string]string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Host references a provider or resource assigned to a schedule. The first
// host in a schedule's list is the primary.
type Host struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
}

// Schedule is a stored time pattern. Start and end are offset-free local
// wall-clock datetimes interpreted in Timezone.
type Schedule struct {
	TenantID     string
	ID           string
	Type         string
	ProgramID    *string
	LocationID   *string
	StartLocal   string
	EndLocal     string
	Timezone     string
	IsRecurring  bool
	RRule        *string
	BaseCapacity *int
	Hosts        []Host
	Tags         []string
	Extra        map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrimaryHostID returns the id of the first host, or empty when none.
func (s Schedule) PrimaryHostID() string {
	if len(s.Hosts) == 0 {
		return ""
	}
	return s.Hosts[0].ID
}

// ScheduleException is a per-date override keyed by the occurrence's local
// date in the schedule's zone.
type ScheduleException struct {
	TenantID           string
	ScheduleID         string
	OccurrenceDate     string
	Type               string
	OverrideStart      *string
	OverrideEnd        *string
	OverrideCapacity   *int
	OverrideHosts      []Host
	OverrideLocationID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Booking is a subject's claim on a virtual session.
type Booking struct {
	TenantID    string
	SessionID   string
	ID          string
	SubjectID   string
	SubjectType string
	Status      string
	Source      string
	Notes       string
	Extra       map[string]string
	CreatedAt   time.Time
	CancelledAt *time.Time
}

// SessionSummary is the persistent shadow of a virtual session's counters.
// It exists only once a booking has been taken against the session.
type SessionSummary struct {
	TenantID      string
	SessionID     string
	Date          string
	Capacity      *int
	BookedCount   int
	WaitlistCount int
	UpdatedAt     time.Time
}

// AttendanceRecord tracks check-in state for one booking.
type AttendanceRecord struct {
	TenantID      string
	SessionID     string
	BookingID     string
	SubjectID     string
	Status        string
	CheckInTime   *time.Time
	CheckInMethod string
	CheckInLat    *float64
	CheckInLng    *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
