package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/studio-scheduler/internal/persistence"
)

// AttendanceRepository implements persistence.AttendanceRepository on SQLite.
type AttendanceRepository struct {
	pool *ConnectionPool
}

func NewAttendanceRepository(pool *ConnectionPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `tenant_id, session_id, booking_id, subject_id, status,
	check_in_time, check_in_method, check_in_lat, check_in_lng, created_at, updated_at`

func (r *AttendanceRepository) CreateAttendance(ctx context.Context, record persistence.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.pool.DB().ExecContext(ctx, query, attendanceArgs(record)...)
	if err != nil {
		return fmt.Errorf("failed to create attendance record: %w", MapError(err))
	}
	return nil
}

func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, record persistence.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, session_id, booking_id) DO UPDATE SET
			subject_id = excluded.subject_id,
			status = excluded.status,
			check_in_time = excluded.check_in_time,
			check_in_method = excluded.check_in_method,
			check_in_lat = excluded.check_in_lat,
			check_in_lng = excluded.check_in_lng,
			updated_at = excluded.updated_at`
	_, err := r.pool.DB().ExecContext(ctx, query, attendanceArgs(record)...)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance record: %w", MapError(err))
	}
	return nil
}

func (r *AttendanceRepository) GetAttendance(ctx context.Context, tenantID, sessionID, bookingID string) (persistence.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records WHERE tenant_id = ? AND session_id = ? AND booking_id = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, sessionID, bookingID)
	record, err := scanAttendance(row)
	if err != nil {
		return persistence.AttendanceRecord{}, MapError(err)
	}
	return record, nil
}

func (r *AttendanceRepository) ListAttendanceBySession(ctx context.Context, tenantID, sessionID string) ([]persistence.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records WHERE tenant_id = ? AND session_id = ? ORDER BY booking_id`
	return r.list(ctx, query, tenantID, sessionID)
}

func (r *AttendanceRepository) ListAttendanceBySubject(ctx context.Context, tenantID, subjectID string) ([]persistence.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records WHERE tenant_id = ? AND subject_id = ? ORDER BY session_id`
	return r.list(ctx, query, tenantID, subjectID)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]persistence.AttendanceRecord, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", MapError(err))
	}
	defer rows.Close()

	var records []persistence.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func attendanceArgs(record persistence.AttendanceRecord) []any {
	return []any{
		record.TenantID, record.SessionID, record.BookingID, record.SubjectID, record.Status,
		nullTime(record.CheckInTime), record.CheckInMethod,
		nullFloat(record.CheckInLat), nullFloat(record.CheckInLng),
		formatTime(record.CreatedAt), formatTime(record.UpdatedAt),
	}
}

func scanAttendance(row rowScanner) (persistence.AttendanceRecord, error) {
	var (
		record               persistence.AttendanceRecord
		checkInTime          sql.NullString
		lat, lng             sql.NullFloat64
		createdAt, updatedAt string
	)
	if err := row.Scan(&record.TenantID, &record.SessionID, &record.BookingID,
		&record.SubjectID, &record.Status, &checkInTime, &record.CheckInMethod,
		&lat, &lng, &createdAt, &updatedAt); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	record.CheckInLat = floatPtr(lat)
	record.CheckInLng = floatPtr(lng)
	var err error
	if record.CheckInTime, err = timePtr(checkInTime); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	return record, nil
}
