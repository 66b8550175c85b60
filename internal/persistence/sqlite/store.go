package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store bundles the connection pool with the per-entity repositories.
type Store struct {
	pool *ConnectionPool

	Programs   *ProgramRepository
	Locations  *LocationRepository
	Schedules  *ScheduleRepository
	Exceptions *ExceptionRepository
	Bookings   *BookingRepository
	Summaries  *SummaryRepository
	Attendance *AttendanceRepository
}

// Open creates a store for the supplied DSN. Call Migrate before use.
func Open(dsn string) (*Store, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:       pool,
		Programs:   NewProgramRepository(pool),
		Locations:  NewLocationRepository(pool),
		Schedules:  NewScheduleRepository(pool),
		Exceptions: NewExceptionRepository(pool),
		Bookings:   NewBookingRepository(pool),
		Summaries:  NewSummaryRepository(pool),
		Attendance: NewAttendanceRepository(pool),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		tenant_id   TEXT NOT NULL,
		id          TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tags        TEXT,
		extra       TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (tenant_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		tenant_id          TEXT NOT NULL,
		id                 TEXT NOT NULL,
		name               TEXT NOT NULL,
		lat                REAL,
		lng                REAL,
		check_in_radius_m  REAL NOT NULL,
		extra              TEXT,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		PRIMARY KEY (tenant_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		tenant_id       TEXT NOT NULL,
		id              TEXT NOT NULL,
		type            TEXT NOT NULL,
		program_id      TEXT,
		location_id     TEXT,
		start_local     TEXT NOT NULL,
		end_local       TEXT NOT NULL,
		timezone        TEXT NOT NULL,
		is_recurring    INTEGER NOT NULL DEFAULT 0,
		rrule           TEXT,
		base_capacity   INTEGER,
		primary_host_id TEXT,
		hosts           TEXT,
		tags            TEXT,
		extra           TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		PRIMARY KEY (tenant_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_primary_host
		ON schedules (tenant_id, primary_host_id)`,
	`CREATE TABLE IF NOT EXISTS schedule_exceptions (
		tenant_id            TEXT NOT NULL,
		schedule_id          TEXT NOT NULL,
		occurrence_date      TEXT NOT NULL,
		type                 TEXT NOT NULL,
		override_start       TEXT,
		override_end         TEXT,
		override_capacity    INTEGER,
		override_hosts       TEXT,
		override_location_id TEXT,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL,
		PRIMARY KEY (tenant_id, schedule_id, occurrence_date)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		tenant_id    TEXT NOT NULL,
		session_id   TEXT NOT NULL,
		id           TEXT NOT NULL,
		subject_id   TEXT NOT NULL,
		subject_type TEXT NOT NULL,
		status       TEXT NOT NULL,
		source       TEXT NOT NULL DEFAULT '',
		notes        TEXT NOT NULL DEFAULT '',
		extra        TEXT,
		created_at   TEXT NOT NULL,
		cancelled_at TEXT,
		PRIMARY KEY (tenant_id, session_id, id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_by_id
		ON bookings (tenant_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_by_subject
		ON bookings (tenant_id, subject_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS session_summaries (
		tenant_id      TEXT NOT NULL,
		session_id     TEXT NOT NULL,
		date           TEXT NOT NULL DEFAULT '',
		capacity       INTEGER,
		booked_count   INTEGER NOT NULL DEFAULT 0,
		waitlist_count INTEGER NOT NULL DEFAULT 0,
		updated_at     TEXT NOT NULL,
		PRIMARY KEY (tenant_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_by_date
		ON session_summaries (tenant_id, date)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		tenant_id       TEXT NOT NULL,
		session_id      TEXT NOT NULL,
		booking_id      TEXT NOT NULL,
		subject_id      TEXT NOT NULL,
		status          TEXT NOT NULL,
		check_in_time   TEXT,
		check_in_method TEXT NOT NULL,
		check_in_lat    REAL,
		check_in_lng    REAL,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		PRIMARY KEY (tenant_id, session_id, booking_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_by_subject
		ON attendance_records (tenant_id, subject_id)`,
}

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// --- column codec helpers shared by the repositories ---

func encodeJSON(value any) (sql.NullString, error) {
	switch v := value.(type) {
	case []string:
		if len(v) == 0 {
			return sql.NullString{}, nil
		}
	case map[string]string:
		if len(v) == 0 {
			return sql.NullString{}, nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode column: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeJSON(column sql.NullString, target any) error {
	if !column.Valid || column.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(column.String), target); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(column sql.NullString) *string {
	if !column.Valid {
		return nil
	}
	value := column.String
	return &value
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func intPtr(column sql.NullInt64) *int {
	if !column.Valid {
		return nil
	}
	value := int(column.Int64)
	return &value
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func floatPtr(column sql.NullFloat64) *float64 {
	if !column.Valid {
		return nil
	}
	value := column.Float64
	return &value
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return ts, nil
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}

func timePtr(column sql.NullString) (*time.Time, error) {
	if !column.Valid || column.String == "" {
		return nil, nil
	}
	ts, err := parseTime(column.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
