package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

func testBooking(id, subjectID string) persistence.Booking {
	return persistence.Booking{
		TenantID:    "tenant1",
		SessionID:   "sched1#2025-01-06",
		ID:          id,
		SubjectID:   subjectID,
		SubjectType: "CLIENT",
		Status:      "CONFIRMED",
		Source:      "WEB",
		CreatedAt:   testTimestamp(),
	}
}

func TestBookingRepository_ReserveCreatesSummary(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	capacity := 2
	if err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk1", "subj1"), &capacity, "2025-01-06"); err != nil {
		t.Fatalf("CreateBookingReserving failed: %v", err)
	}

	summary, err := store.Summaries.GetSummary(ctx, "tenant1", "sched1#2025-01-06")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.BookedCount != 1 {
		t.Errorf("Expected booked count 1, got %d", summary.BookedCount)
	}
	if summary.Date != "2025-01-06" {
		t.Errorf("Expected summary date '2025-01-06', got '%s'", summary.Date)
	}
	if summary.Capacity == nil || *summary.Capacity != 2 {
		t.Errorf("Expected capacity 2, got %v", summary.Capacity)
	}
}

func TestBookingRepository_ReserveAtCapacity(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	capacity := 2
	for i := 1; i <= 2; i++ {
		booking := testBooking(fmt.Sprintf("bk%d", i), fmt.Sprintf("subj%d", i))
		if err := store.Bookings.CreateBookingReserving(ctx, booking, &capacity, "2025-01-06"); err != nil {
			t.Fatalf("CreateBookingReserving %d failed: %v", i, err)
		}
	}

	err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk3", "subj3"), &capacity, "2025-01-06")
	if !errors.Is(err, persistence.ErrAtCapacity) {
		t.Fatalf("Expected ErrAtCapacity, got %v", err)
	}

	// The rejected booking must leave no row and no counter bump behind.
	_, err = store.Bookings.GetBooking(ctx, "tenant1", "bk3")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected rejected booking to be absent, got %v", err)
	}
	summary, err := store.Summaries.GetSummary(ctx, "tenant1", "sched1#2025-01-06")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.BookedCount != 2 {
		t.Errorf("Expected booked count 2, got %d", summary.BookedCount)
	}
}

func TestBookingRepository_ReserveUnlimited(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		booking := testBooking(fmt.Sprintf("bk%d", i), fmt.Sprintf("subj%d", i))
		if err := store.Bookings.CreateBookingReserving(ctx, booking, nil, "2025-01-06"); err != nil {
			t.Fatalf("CreateBookingReserving %d failed: %v", i, err)
		}
	}

	summary, err := store.Summaries.GetSummary(ctx, "tenant1", "sched1#2025-01-06")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.BookedCount != 5 {
		t.Errorf("Expected booked count 5, got %d", summary.BookedCount)
	}
	if summary.Capacity != nil {
		t.Errorf("Expected nil capacity, got %v", *summary.Capacity)
	}
}

func TestBookingRepository_ReserveZeroCapacity(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	capacity := 0
	err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk1", "subj1"), &capacity, "2025-01-06")
	if !errors.Is(err, persistence.ErrAtCapacity) {
		t.Fatalf("Expected ErrAtCapacity for zero capacity, got %v", err)
	}
	_, err = store.Bookings.GetBooking(ctx, "tenant1", "bk1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected no booking row, got %v", err)
	}
}

func TestBookingRepository_DuplicateBookingRollsBackReserve(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	if err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk1", "subj1"), nil, "2025-01-06"); err != nil {
		t.Fatalf("CreateBookingReserving failed: %v", err)
	}

	err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk1", "subj2"), nil, "2025-01-06")
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	// The failed insert must roll the counter increment back with it.
	summary, err := store.Summaries.GetSummary(ctx, "tenant1", "sched1#2025-01-06")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.BookedCount != 1 {
		t.Errorf("Expected booked count 1 after rollback, got %d", summary.BookedCount)
	}
}

func TestBookingRepository_CancelReleasesCapacity(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	capacity := 1
	if err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk1", "subj1"), &capacity, "2025-01-06"); err != nil {
		t.Fatalf("CreateBookingReserving failed: %v", err)
	}

	cancelledAt := testTimestamp().Add(time.Hour)
	if err := store.Bookings.CancelBookingReleasing(ctx, "tenant1", "sched1#2025-01-06", "bk1", cancelledAt); err != nil {
		t.Fatalf("CancelBookingReleasing failed: %v", err)
	}

	booking, err := store.Bookings.GetBooking(ctx, "tenant1", "bk1")
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if booking.Status != "CANCELLED" {
		t.Errorf("Expected status CANCELLED, got '%s'", booking.Status)
	}
	if booking.CancelledAt == nil || !booking.CancelledAt.Equal(cancelledAt) {
		t.Errorf("Expected cancelled at %v, got %v", cancelledAt, booking.CancelledAt)
	}

	summary, err := store.Summaries.GetSummary(ctx, "tenant1", "sched1#2025-01-06")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.BookedCount != 0 {
		t.Errorf("Expected booked count 0 after cancel, got %d", summary.BookedCount)
	}

	// The freed slot must be reusable.
	if err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk2", "subj2"), &capacity, "2025-01-06"); err != nil {
		t.Errorf("Expected freed slot to be bookable, got %v", err)
	}
}

func TestBookingRepository_CancelAlreadyCancelled(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	if err := store.Bookings.CreateBookingReserving(ctx, testBooking("bk1", "subj1"), nil, "2025-01-06"); err != nil {
		t.Fatalf("CreateBookingReserving failed: %v", err)
	}
	if err := store.Bookings.CancelBookingReleasing(ctx, "tenant1", "sched1#2025-01-06", "bk1", testTimestamp()); err != nil {
		t.Fatalf("CancelBookingReleasing failed: %v", err)
	}

	err := store.Bookings.CancelBookingReleasing(ctx, "tenant1", "sched1#2025-01-06", "bk1", testTimestamp())
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for second cancel, got %v", err)
	}
}

func TestBookingRepository_ListBySubject(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		booking := testBooking(fmt.Sprintf("bk%d", i), "subj1")
		booking.SessionID = fmt.Sprintf("sched1#2025-01-0%d", i)
		booking.CreatedAt = testTimestamp().Add(time.Duration(i) * time.Minute)
		if err := store.Bookings.CreateBookingReserving(ctx, booking, nil, "2025-01-06"); err != nil {
			t.Fatalf("CreateBookingReserving failed: %v", err)
		}
	}
	if err := store.Bookings.CancelBookingReleasing(ctx, "tenant1", "sched1#2025-01-02", "bk2", testTimestamp()); err != nil {
		t.Fatalf("CancelBookingReleasing failed: %v", err)
	}

	confirmed, err := store.Bookings.ListBookingsBySubject(ctx, "tenant1", "subj1", persistence.BookingFilter{Status: "CONFIRMED"})
	if err != nil {
		t.Fatalf("ListBookingsBySubject failed: %v", err)
	}
	if len(confirmed) != 2 {
		t.Errorf("Expected 2 confirmed bookings, got %d", len(confirmed))
	}

	// Newest first.
	all, err := store.Bookings.ListBookingsBySubject(ctx, "tenant1", "subj1", persistence.BookingFilter{})
	if err != nil {
		t.Fatalf("ListBookingsBySubject failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "bk3" {
		t.Errorf("Expected newest booking first, got %v", all)
	}

	limited, err := store.Bookings.ListBookingsBySubject(ctx, "tenant1", "subj1", persistence.BookingFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListBookingsBySubject failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 booking with limit, got %d", len(limited))
	}
}

func TestBookingRepository_ListUnattendedBefore(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	past := testBooking("bk1", "subj1")
	past.SessionID = "sched1#2025-01-01"
	attended := testBooking("bk2", "subj2")
	attended.SessionID = "sched1#2025-01-02"
	future := testBooking("bk3", "subj3")
	future.SessionID = "sched1#2025-02-01"
	for _, booking := range []persistence.Booking{past, attended, future} {
		if err := store.Bookings.CreateBookingReserving(ctx, booking, nil, "2025-01-06"); err != nil {
			t.Fatalf("CreateBookingReserving failed: %v", err)
		}
	}

	checkIn := testTimestamp()
	record := persistence.AttendanceRecord{
		TenantID:      "tenant1",
		SessionID:     "sched1#2025-01-02",
		BookingID:     "bk2",
		SubjectID:     "subj2",
		Status:        "PRESENT",
		CheckInTime:   &checkIn,
		CheckInMethod: "GPS",
		CreatedAt:     testTimestamp(),
		UpdatedAt:     testTimestamp(),
	}
	if err := store.Attendance.CreateAttendance(ctx, record); err != nil {
		t.Fatalf("CreateAttendance failed: %v", err)
	}

	unattended, err := store.Bookings.ListUnattendedBefore(ctx, "2025-01-15", 100)
	if err != nil {
		t.Fatalf("ListUnattendedBefore failed: %v", err)
	}
	if len(unattended) != 1 || unattended[0].ID != "bk1" {
		t.Errorf("Expected only bk1 unattended, got %d records", len(unattended))
	}
}

func TestAttendanceRepository_CreateAndUpsert(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	checkIn := testTimestamp()
	lat, lng := 30.2672, -97.7431
	record := persistence.AttendanceRecord{
		TenantID:      "tenant1",
		SessionID:     "sched1#2025-01-06",
		BookingID:     "bk1",
		SubjectID:     "subj1",
		Status:        "PRESENT",
		CheckInTime:   &checkIn,
		CheckInMethod: "GPS",
		CheckInLat:    &lat,
		CheckInLng:    &lng,
		CreatedAt:     testTimestamp(),
		UpdatedAt:     testTimestamp(),
	}
	if err := store.Attendance.CreateAttendance(ctx, record); err != nil {
		t.Fatalf("CreateAttendance failed: %v", err)
	}

	err := store.Attendance.CreateAttendance(ctx, record)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for second create, got %v", err)
	}

	record.Status = "NO_SHOW"
	record.CheckInTime = nil
	record.CheckInMethod = "OVERRIDE"
	if err := store.Attendance.UpsertAttendance(ctx, record); err != nil {
		t.Fatalf("UpsertAttendance failed: %v", err)
	}

	retrieved, err := store.Attendance.GetAttendance(ctx, "tenant1", "sched1#2025-01-06", "bk1")
	if err != nil {
		t.Fatalf("GetAttendance failed: %v", err)
	}
	if retrieved.Status != "NO_SHOW" {
		t.Errorf("Expected status NO_SHOW, got '%s'", retrieved.Status)
	}
	if retrieved.CheckInTime != nil {
		t.Errorf("Expected check-in time cleared, got %v", retrieved.CheckInTime)
	}
	if retrieved.CheckInMethod != "OVERRIDE" {
		t.Errorf("Expected method OVERRIDE, got '%s'", retrieved.CheckInMethod)
	}
}

func TestSummaryRepository_GetSummariesBatch(t *testing.T) {
	store := setupStoreTest(t)
	ctx := context.Background()

	booking := testBooking("bk1", "subj1")
	if err := store.Bookings.CreateBookingReserving(ctx, booking, nil, "2025-01-06"); err != nil {
		t.Fatalf("CreateBookingReserving failed: %v", err)
	}

	summaries, err := store.Summaries.GetSummaries(ctx, "tenant1",
		[]string{"sched1#2025-01-06", "sched1#2025-01-07"})
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}
	if summaries["sched1#2025-01-06"].BookedCount != 1 {
		t.Errorf("Expected booked count 1, got %d", summaries["sched1#2025-01-06"].BookedCount)
	}

	empty, err := store.Summaries.GetSummaries(ctx, "tenant1", nil)
	if err != nil {
		t.Fatalf("GetSummaries with no ids failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty map, got %d entries", len(empty))
	}
}
