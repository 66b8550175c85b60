package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite store
// for integration-style persistence tests.
type SQLiteHarness struct {
	Programs   persistence.ProgramRepository
	Locations  persistence.LocationRepository
	Schedules  persistence.ScheduleRepository
	Exceptions persistence.ExceptionRepository
	Bookings   persistence.BookingRepository
	Summaries  persistence.SummaryRepository
	Attendance persistence.AttendanceRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "scheduler.db")

	store, err := sqlite.Open(dsn)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLiteHarness{
		Programs:   store.Programs,
		Locations:  store.Locations,
		Schedules:  store.Schedules,
		Exceptions: store.Exceptions,
		Bookings:   store.Bookings,
		Summaries:  store.Summaries,
		Attendance: store.Attendance,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
