package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

type stubUnattendedSource struct {
	cutoffs  []string
	bookings []persistence.Booking
	err      error
}

func (s *stubUnattendedSource) ListUnattendedBefore(_ context.Context, cutoffDate string, limit int) ([]persistence.Booking, error) {
	s.cutoffs = append(s.cutoffs, cutoffDate)
	if s.err != nil {
		return nil, s.err
	}
	if limit > len(s.bookings) {
		limit = len(s.bookings)
	}
	batch := s.bookings[:limit]
	s.bookings = s.bookings[limit:]
	return batch, nil
}

type stubAttendanceSink struct {
	records []persistence.AttendanceRecord
	err     error
}

func (s *stubAttendanceSink) UpsertAttendance(_ context.Context, record persistence.AttendanceRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func sweeperTestTime() time.Time {
	return time.Date(2025, 1, 7, 3, 0, 0, 0, time.UTC)
}

func testUnattendedBooking(id string) persistence.Booking {
	return persistence.Booking{
		TenantID:    "tenant1",
		SessionID:   "sched_x#2025-01-06",
		ID:          id,
		SubjectID:   "subj_" + id,
		SubjectType: "MEMBER",
		Status:      "CONFIRMED",
	}
}

func TestNoShowSweeper_Sweep(t *testing.T) {
	source := &stubUnattendedSource{bookings: []persistence.Booking{
		testUnattendedBooking("bk1"),
		testUnattendedBooking("bk2"),
	}}
	sink := &stubAttendanceSink{}
	sweeper := NewNoShowSweeper(source, sink, func() time.Time { return sweeperTestTime() }, nil)

	swept, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if swept != 2 {
		t.Errorf("Expected 2 swept, got %d", swept)
	}
	if len(source.cutoffs) == 0 || source.cutoffs[0] != "2025-01-07" {
		t.Errorf("Expected cutoff 2025-01-07, got %v", source.cutoffs)
	}
	if len(sink.records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.Status != "NO_SHOW" {
		t.Errorf("Expected status NO_SHOW, got '%s'", record.Status)
	}
	if record.CheckInMethod != CheckInMethodSweep {
		t.Errorf("Expected method %s, got '%s'", CheckInMethodSweep, record.CheckInMethod)
	}
	if record.CheckInTime != nil {
		t.Errorf("Expected no check-in time, got %v", record.CheckInTime)
	}
	if record.SubjectID != "subj_bk1" || record.SessionID != "sched_x#2025-01-06" {
		t.Errorf("Expected booking identity carried over, got %+v", record)
	}
}

func TestNoShowSweeper_DrainsFullBatches(t *testing.T) {
	var bookings []persistence.Booking
	for i := 0; i < sweepBatchSize+5; i++ {
		bookings = append(bookings, testUnattendedBooking(fmt.Sprintf("bk%d", i)))
	}
	source := &stubUnattendedSource{bookings: bookings}
	sink := &stubAttendanceSink{}
	sweeper := NewNoShowSweeper(source, sink, func() time.Time { return sweeperTestTime() }, nil)

	swept, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if swept != sweepBatchSize+5 {
		t.Errorf("Expected %d swept, got %d", sweepBatchSize+5, swept)
	}
	if len(source.cutoffs) != 2 {
		t.Errorf("Expected two batch queries, got %d", len(source.cutoffs))
	}
}

func TestNoShowSweeper_Empty(t *testing.T) {
	sweeper := NewNoShowSweeper(&stubUnattendedSource{}, &stubAttendanceSink{},
		func() time.Time { return sweeperTestTime() }, nil)

	swept, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if swept != 0 {
		t.Errorf("Expected nothing swept, got %d", swept)
	}
}

func TestNoShowSweeper_SourceError(t *testing.T) {
	source := &stubUnattendedSource{err: errors.New("store unavailable")}
	sweeper := NewNoShowSweeper(source, &stubAttendanceSink{},
		func() time.Time { return sweeperTestTime() }, nil)

	if _, err := sweeper.Sweep(context.Background()); err == nil {
		t.Error("Expected an error from a failing source")
	}
}

func TestNoShowSweeper_ScheduleRejectsBadSpec(t *testing.T) {
	sweeper := NewNoShowSweeper(&stubUnattendedSource{}, &stubAttendanceSink{}, nil, nil)

	if _, err := sweeper.Schedule("not a cron spec"); err == nil {
		t.Error("Expected an error for an invalid cron spec")
	}

	runner, err := sweeper.Schedule("30 3 * * *")
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	runner.Stop()
}
