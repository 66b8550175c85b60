// Package jobs contains the background maintenance tasks that run alongside
// the request path.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/timeutil"
)

const sweepBatchSize = 100

// CheckInMethodSweep marks attendance records written by the no-show sweep.
const CheckInMethodSweep = "SYSTEM"

// UnattendedSource lists confirmed bookings that never produced an
// attendance record.
type UnattendedSource interface {
	ListUnattendedBefore(ctx context.Context, cutoffDate string, limit int) ([]persistence.Booking, error)
}

// AttendanceSink records sweep results. Upsert keeps the sweep idempotent
// across overlapping runs.
type AttendanceSink interface {
	UpsertAttendance(ctx context.Context, record persistence.AttendanceRecord) error
}

// NoShowSweeper marks confirmed bookings on past sessions as NO_SHOW when no
// check-in was ever recorded. A later manual or override check-in replaces
// the sweep's record.
type NoShowSweeper struct {
	bookings   UnattendedSource
	attendance AttendanceSink
	batchSize  int
	now        func() time.Time
	logger     *slog.Logger
}

func NewNoShowSweeper(bookings UnattendedSource, attendance AttendanceSink, now func() time.Time, logger *slog.Logger) *NoShowSweeper {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoShowSweeper{
		bookings:   bookings,
		attendance: attendance,
		batchSize:  sweepBatchSize,
		now:        now,
		logger:     logger,
	}
}

// Sweep processes every unattended booking whose session date is before
// today (UTC) and returns the number of records written.
func (s *NoShowSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Format(timeutil.LocalDateLayout)
	swept := 0

	for {
		bookings, err := s.bookings.ListUnattendedBefore(ctx, cutoff, s.batchSize)
		if err != nil {
			return swept, fmt.Errorf("failed to list unattended bookings: %w", err)
		}
		if len(bookings) == 0 {
			return swept, nil
		}

		for _, booking := range bookings {
			record := persistence.AttendanceRecord{
				TenantID:      booking.TenantID,
				SessionID:     booking.SessionID,
				BookingID:     booking.ID,
				SubjectID:     booking.SubjectID,
				Status:        "NO_SHOW",
				CheckInMethod: CheckInMethodSweep,
				CreatedAt:     s.now(),
				UpdatedAt:     s.now(),
			}
			if err := s.attendance.UpsertAttendance(ctx, record); err != nil {
				return swept, fmt.Errorf("failed to record no-show for booking %s: %w", booking.ID, err)
			}
			swept++
		}

		// A full batch means more rows may remain; a short one means done.
		if len(bookings) < s.batchSize {
			return swept, nil
		}
	}
}

// Schedule registers the sweep on a cron runner and starts it. The returned
// cron owns the schedule; callers stop it on shutdown.
func (s *NoShowSweeper) Schedule(spec string) (*cron.Cron, error) {
	runner := cron.New()
	_, err := runner.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		swept, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("no-show sweep failed", "swept", swept, "error", err)
			return
		}
		if swept > 0 {
			s.logger.Info("no-show sweep completed", "swept", swept)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	runner.Start()
	return runner, nil
}
