package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

type attendanceFixture struct {
	service    *AttendanceService
	bookings   *stubBookingStore
	attendance *stubAttendanceStore
	locations  *stubLocationStore
	now        time.Time
}

// setupAttendance seeds a confirmed booking for subj1 on a session starting
// five minutes after the fixture clock, at a located venue.
func setupAttendance(t *testing.T) *attendanceFixture {
	t.Helper()
	ctx := context.Background()

	now := time.Date(2025, 1, 6, 11, 55, 0, 0, time.UTC)
	sessionStart := now.Add(5 * time.Minute)

	bookings := newStubBookingStore()
	booking := persistence.Booking{
		TenantID:    "tenant1",
		SessionID:   "sched_x#2025-01-06",
		ID:          "bk1",
		SubjectID:   "subj1",
		SubjectType: "MEMBER",
		Status:      "CONFIRMED",
		CreatedAt:   now.Add(-time.Hour),
	}
	if err := bookings.CreateBookingReserving(ctx, booking, nil, "2025-01-06"); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	locations := newStubLocationStore()
	lat, lng := 30.2672, -97.7431
	location := persistence.Location{
		TenantID:            "tenant1",
		ID:                  "loc1",
		Name:                "Downtown Studio",
		Lat:                 &lat,
		Lng:                 &lng,
		CheckInRadiusMeters: 100,
	}
	if err := locations.CreateLocation(ctx, location); err != nil {
		t.Fatalf("seed location failed: %v", err)
	}

	locID := "loc1"
	resolver := &stubSessionResolver{sessions: map[string]Session{
		"tenant1/sched_x#2025-01-06": {
			TenantID:   "tenant1",
			ID:         "sched_x#2025-01-06",
			ScheduleID: "sched_x",
			Date:       "2025-01-06",
			Start:      sessionStart,
			End:        sessionStart.Add(time.Hour),
			Timezone:   "America/Chicago",
			LocationID: &locID,
		},
	}}

	attendance := newStubAttendanceStore()
	service := NewAttendanceService(bookings, attendance, locations, resolver,
		AttendanceConfig{}, fixedNow(now), nil)
	return &attendanceFixture{
		service:    service,
		bookings:   bookings,
		attendance: attendance,
		locations:  locations,
		now:        now,
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestAttendanceService_CheckIn_GPSPresent(t *testing.T) {
	fixture := setupAttendance(t)

	result, err := fixture.service.CheckIn(context.Background(), testPrincipal(), CheckInInput{
		BookingID: "bk1",
		Lat:       floatPtr(30.2675),
		Lng:       floatPtr(-97.7428),
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if result.Record.Status != "PRESENT" {
		t.Errorf("Expected status PRESENT, got '%s'", result.Record.Status)
	}
	if result.Record.CheckInMethod != "GPS" {
		t.Errorf("Expected method GPS, got '%s'", result.Record.CheckInMethod)
	}
	if result.DistanceMeters == nil || *result.DistanceMeters < 20 || *result.DistanceMeters > 70 {
		t.Errorf("Expected roughly 42m distance, got %v", result.DistanceMeters)
	}
	if result.Record.CheckInTime == nil || !result.Record.CheckInTime.Equal(fixture.now) {
		t.Errorf("Expected check-in time %v, got %v", fixture.now, result.Record.CheckInTime)
	}
}

func TestAttendanceService_CheckIn_OutOfRange(t *testing.T) {
	fixture := setupAttendance(t)

	_, err := fixture.service.CheckIn(context.Background(), testPrincipal(), CheckInInput{
		BookingID: "bk1",
		Lat:       floatPtr(30.2700),
		Lng:       floatPtr(-97.7500),
	})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Expected ErrOutOfRange, got %v", err)
	}
	if _, getErr := fixture.attendance.GetAttendance(context.Background(), "tenant1", "sched_x#2025-01-06", "bk1"); !errors.Is(getErr, persistence.ErrNotFound) {
		t.Error("Expected no attendance record after rejected check-in")
	}
}

func TestAttendanceService_CheckIn_Manual(t *testing.T) {
	fixture := setupAttendance(t)

	result, err := fixture.service.CheckIn(context.Background(), testPrincipal(), CheckInInput{
		BookingID: "bk1",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if result.Record.CheckInMethod != "MANUAL" {
		t.Errorf("Expected method MANUAL, got '%s'", result.Record.CheckInMethod)
	}
	if result.DistanceMeters != nil {
		t.Errorf("Expected no distance for manual check-in, got %v", *result.DistanceMeters)
	}
}

func TestAttendanceService_CheckIn_Late(t *testing.T) {
	fixture := setupAttendance(t)

	// Ten minutes after start is inside the window but late.
	late := NewAttendanceService(fixture.bookings, fixture.attendance, fixture.locations,
		&stubSessionResolver{sessions: map[string]Session{
			"tenant1/sched_x#2025-01-06": {
				TenantID: "tenant1",
				ID:       "sched_x#2025-01-06",
				Start:    fixture.now.Add(-10 * time.Minute),
			},
		}},
		AttendanceConfig{}, fixedNow(fixture.now), nil)

	result, err := late.CheckIn(context.Background(), testPrincipal(), CheckInInput{BookingID: "bk1"})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if result.Record.Status != "LATE" {
		t.Errorf("Expected status LATE, got '%s'", result.Record.Status)
	}
}

func TestAttendanceService_CheckIn_WindowBounds(t *testing.T) {
	fixture := setupAttendance(t)

	build := func(start time.Time) *AttendanceService {
		return NewAttendanceService(fixture.bookings, fixture.attendance, fixture.locations,
			&stubSessionResolver{sessions: map[string]Session{
				"tenant1/sched_x#2025-01-06": {
					TenantID: "tenant1",
					ID:       "sched_x#2025-01-06",
					Start:    start,
				},
			}},
			AttendanceConfig{}, fixedNow(fixture.now), nil)
	}

	// Session starts in 30 minutes; the window opens at T-15.
	_, err := build(fixture.now.Add(30 * time.Minute)).CheckIn(context.Background(), testPrincipal(), CheckInInput{BookingID: "bk1"})
	if !errors.Is(err, ErrTooEarly) {
		t.Errorf("Expected ErrTooEarly, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "15") {
		t.Errorf("Expected the early margin in the message, got %q", err.Error())
	}

	// Session started 40 minutes ago; the window closed at T+15.
	_, err = build(fixture.now.Add(-40 * time.Minute)).CheckIn(context.Background(), testPrincipal(), CheckInInput{BookingID: "bk1"})
	if !errors.Is(err, ErrTooLate) {
		t.Errorf("Expected ErrTooLate, got %v", err)
	}
}

func TestAttendanceService_CheckIn_Duplicate(t *testing.T) {
	fixture := setupAttendance(t)
	ctx := context.Background()

	if _, err := fixture.service.CheckIn(ctx, testPrincipal(), CheckInInput{BookingID: "bk1"}); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	_, err := fixture.service.CheckIn(ctx, testPrincipal(), CheckInInput{BookingID: "bk1"})
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("Expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestAttendanceService_CheckIn_SubjectMismatch(t *testing.T) {
	fixture := setupAttendance(t)

	other := Principal{TenantID: "tenant1", SubjectID: "intruder"}
	_, err := fixture.service.CheckIn(context.Background(), other, CheckInInput{BookingID: "bk1"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestAttendanceService_CheckIn_CoordinateValidation(t *testing.T) {
	fixture := setupAttendance(t)

	_, err := fixture.service.CheckIn(context.Background(), testPrincipal(), CheckInInput{
		BookingID: "bk1",
		Lat:       floatPtr(120),
		Lng:       floatPtr(0),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	_, err = fixture.service.CheckIn(context.Background(), testPrincipal(), CheckInInput{
		BookingID: "bk1",
		Lat:       floatPtr(30.0),
	})
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for lone latitude, got %v", err)
	}
}

func TestAttendanceService_Override(t *testing.T) {
	fixture := setupAttendance(t)
	ctx := context.Background()
	admin := Principal{TenantID: "tenant1", SubjectID: "staff", IsAdmin: true}

	record, err := fixture.service.Override(ctx, admin, AttendanceOverrideInput{
		SessionID: "sched_x#2025-01-06",
		BookingID: "bk1",
		Status:    "NO_SHOW",
	})
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if record.CheckInMethod != "OVERRIDE" {
		t.Errorf("Expected method OVERRIDE, got '%s'", record.CheckInMethod)
	}
	if record.CheckInTime != nil {
		t.Errorf("Expected no check-in time for NO_SHOW, got %v", record.CheckInTime)
	}

	record, err = fixture.service.Override(ctx, admin, AttendanceOverrideInput{
		SessionID: "sched_x#2025-01-06",
		BookingID: "bk1",
		Status:    "PRESENT",
	})
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if record.CheckInTime == nil {
		t.Error("Expected check-in time for PRESENT override")
	}

	_, err = fixture.service.Override(ctx, admin, AttendanceOverrideInput{
		SessionID: "sched_x#2025-01-06",
		BookingID: "bk1",
		Status:    "EXPELLED",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for bad status, got %v", err)
	}
}
