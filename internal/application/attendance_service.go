package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/studio-scheduler/internal/geo"
	"github.com/example/studio-scheduler/internal/persistence"
)

const (
	// DefaultCheckInWindowBefore is how early a check-in may precede the session start.
	DefaultCheckInWindowBefore = 15 * time.Minute
	// DefaultCheckInWindowAfter is how late a check-in may follow the session start.
	DefaultCheckInWindowAfter = 15 * time.Minute
	// DefaultCheckInRadiusMeters applies when a location has no radius configured.
	DefaultCheckInRadiusMeters = 100.0
)

// AttendanceService validates and records check-ins against a booking's
// session, composing the time-window check with the GPS proximity check.
type AttendanceService struct {
	bookings      BookingStore
	attendance    AttendanceStore
	locations     LocationStore
	sessions      SessionResolver
	windowBefore  time.Duration
	windowAfter   time.Duration
	defaultRadius float64
	now           func() time.Time
	logger        *slog.Logger
}

// AttendanceConfig carries the tunable check-in bounds. Zero values fall back
// to the defaults.
type AttendanceConfig struct {
	WindowBefore  time.Duration
	WindowAfter   time.Duration
	DefaultRadius float64
}

// NewAttendanceService wires dependencies for check-in operations.
func NewAttendanceService(bookings BookingStore, attendance AttendanceStore, locations LocationStore, sessions SessionResolver, cfg AttendanceConfig, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if cfg.WindowBefore <= 0 {
		cfg.WindowBefore = DefaultCheckInWindowBefore
	}
	if cfg.WindowAfter <= 0 {
		cfg.WindowAfter = DefaultCheckInWindowAfter
	}
	if cfg.DefaultRadius <= 0 {
		cfg.DefaultRadius = DefaultCheckInRadiusMeters
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		bookings:      bookings,
		attendance:    attendance,
		locations:     locations,
		sessions:      sessions,
		windowBefore:  cfg.WindowBefore,
		windowAfter:   cfg.WindowAfter,
		defaultRadius: cfg.DefaultRadius,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// CheckIn records attendance for a confirmed booking. The check-in time must
// fall inside the window around the session start; when coordinates are
// supplied the caller must also be within the session location's radius.
func (s *AttendanceService) CheckIn(ctx context.Context, principal Principal, input CheckInInput) (CheckInResult, error) {
	logger := serviceLogger(ctx, s.logger, "attendance", "check_in",
		"tenant_id", principal.TenantID, "booking_id", input.BookingID)

	if err := validateCheckInInput(input); err != nil {
		return CheckInResult{}, err
	}

	booking, err := s.bookings.GetBooking(ctx, principal.TenantID, input.BookingID)
	if err != nil {
		return CheckInResult{}, mapStoreError(err)
	}
	if booking.Status != "CONFIRMED" {
		vErr := &ValidationError{}
		vErr.add("bookingId", "booking is not confirmed")
		return CheckInResult{}, vErr
	}
	if principal.SubjectID != "" && !principal.IsAdmin && booking.SubjectID != principal.SubjectID {
		return CheckInResult{}, ErrForbidden
	}

	existing, err := s.attendance.GetAttendance(ctx, principal.TenantID, booking.SessionID, booking.ID)
	if err == nil && existing.Status == "PRESENT" {
		return CheckInResult{}, ErrAlreadyCheckedIn
	}
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return CheckInResult{}, mapStoreError(err)
	}

	session, err := s.sessions.ResolveSession(ctx, principal.TenantID, booking.SessionID)
	if err != nil {
		return CheckInResult{}, err
	}

	checkInTime := s.now()
	status, err := s.checkWindow(checkInTime, session.Start)
	if err != nil {
		return CheckInResult{}, err
	}

	method := "MANUAL"
	var distance *float64
	if input.Lat != nil && input.Lng != nil {
		method = "GPS"
		d, err := s.checkProximity(ctx, principal.TenantID, session, *input.Lat, *input.Lng)
		if err != nil {
			return CheckInResult{}, err
		}
		distance = d
	}

	record := persistence.AttendanceRecord{
		TenantID:      principal.TenantID,
		SessionID:     booking.SessionID,
		BookingID:     booking.ID,
		SubjectID:     booking.SubjectID,
		Status:        status,
		CheckInTime:   &checkInTime,
		CheckInMethod: method,
		CheckInLat:    input.Lat,
		CheckInLng:    input.Lng,
		CreatedAt:     checkInTime,
		UpdatedAt:     checkInTime,
	}
	// Upsert so a LATE retry after an earlier NO_SHOW sweep still lands.
	if err := s.attendance.UpsertAttendance(ctx, record); err != nil {
		return CheckInResult{}, mapStoreError(err)
	}

	logger.InfoContext(ctx, "check-in recorded",
		"session_id", booking.SessionID, "status", status, "method", method)
	return CheckInResult{Record: record, DistanceMeters: distance}, nil
}

// Override records an administrative attendance correction, bypassing the
// window and GPS checks.
func (s *AttendanceService) Override(ctx context.Context, principal Principal, input AttendanceOverrideInput) (persistence.AttendanceRecord, error) {
	vErr := &ValidationError{}
	if input.SessionID == "" {
		vErr.add("sessionId", "sessionId is required")
	}
	if input.BookingID == "" {
		vErr.add("bookingId", "bookingId is required")
	}
	switch input.Status {
	case "PRESENT", "LATE", "NO_SHOW":
	default:
		vErr.add("status", "status must be PRESENT, LATE or NO_SHOW")
	}
	if vErr.HasErrors() {
		return persistence.AttendanceRecord{}, vErr
	}

	booking, err := s.bookings.GetBooking(ctx, principal.TenantID, input.BookingID)
	if err != nil {
		return persistence.AttendanceRecord{}, mapStoreError(err)
	}
	if booking.SessionID != input.SessionID {
		return persistence.AttendanceRecord{}, ErrNotFound
	}

	now := s.now()
	record := persistence.AttendanceRecord{
		TenantID:      principal.TenantID,
		SessionID:     input.SessionID,
		BookingID:     input.BookingID,
		SubjectID:     booking.SubjectID,
		Status:        input.Status,
		CheckInMethod: "OVERRIDE",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.Status != "NO_SHOW" {
		record.CheckInTime = &now
	}

	if err := s.attendance.UpsertAttendance(ctx, record); err != nil {
		return persistence.AttendanceRecord{}, mapStoreError(err)
	}

	serviceLogger(ctx, s.logger, "attendance", "override",
		"tenant_id", principal.TenantID, "booking_id", input.BookingID).
		InfoContext(ctx, "attendance overridden", "status", input.Status)
	return record, nil
}

// ListSessionAttendance returns every attendance record on a session.
func (s *AttendanceService) ListSessionAttendance(ctx context.Context, principal Principal, sessionID string) ([]persistence.AttendanceRecord, error) {
	records, err := s.attendance.ListAttendanceBySession(ctx, principal.TenantID, sessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return records, nil
}

// ListSubjectAttendance returns the caller's attendance history.
func (s *AttendanceService) ListSubjectAttendance(ctx context.Context, principal Principal) ([]persistence.AttendanceRecord, error) {
	if principal.SubjectID == "" {
		vErr := &ValidationError{}
		vErr.add("subjectId", "subject could not be resolved")
		return nil, vErr
	}
	records, err := s.attendance.ListAttendanceBySubject(ctx, principal.TenantID, principal.SubjectID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return records, nil
}

func (s *AttendanceService) checkWindow(checkInTime, sessionStart time.Time) (string, error) {
	delta := checkInTime.Sub(sessionStart)
	if delta < -s.windowBefore {
		early := math.Ceil((-delta - s.windowBefore).Minutes())
		return "", fmt.Errorf("%w: %.0f minutes before the check-in window opens", ErrTooEarly, early)
	}
	if delta > s.windowAfter {
		late := math.Ceil((delta - s.windowAfter).Minutes())
		return "", fmt.Errorf("%w: %.0f minutes after the check-in window closed", ErrTooLate, late)
	}
	if delta > 0 {
		return "LATE", nil
	}
	return "PRESENT", nil
}

// checkProximity returns the measured distance when the session's location
// has coordinates; sessions without a located venue skip the distance check.
func (s *AttendanceService) checkProximity(ctx context.Context, tenantID string, session Session, lat, lng float64) (*float64, error) {
	if session.LocationID == nil {
		return nil, nil
	}
	location, err := s.locations.GetLocation(ctx, tenantID, *session.LocationID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, mapStoreError(err)
	}
	if location.Lat == nil || location.Lng == nil {
		return nil, nil
	}

	radius := location.CheckInRadiusMeters
	if radius <= 0 {
		radius = s.defaultRadius
	}
	within, distance := geo.WithinRadius(
		geo.Point{Lat: *location.Lat, Lng: *location.Lng},
		geo.Point{Lat: lat, Lng: lng},
		radius,
	)
	if !within {
		return nil, fmt.Errorf("%w: %.0fm from the venue (allowed %.0fm)", ErrOutOfRange, distance, radius)
	}
	return &distance, nil
}

func validateCheckInInput(input CheckInInput) error {
	vErr := &ValidationError{}
	if input.BookingID == "" {
		vErr.add("bookingId", "bookingId is required")
	}
	if (input.Lat == nil) != (input.Lng == nil) {
		vErr.add("coordinates", "lat and lng must be provided together")
	}
	if input.Lat != nil && input.Lng != nil {
		if err := geo.ValidateCoordinates(*input.Lat, *input.Lng); err != nil {
			vErr.add("coordinates", "lat must be in [-90,90] and lng in [-180,180]")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
