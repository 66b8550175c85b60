package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/studio-scheduler/internal/persistence"
)

// ExceptionRepository implements persistence.ExceptionRepository on SQLite.
type ExceptionRepository struct {
	pool *ConnectionPool
}

func NewExceptionRepository(pool *ConnectionPool) *ExceptionRepository {
	return &ExceptionRepository{pool: pool}
}

const exceptionColumns = `tenant_id, schedule_id, occurrence_date, type, override_start,
	override_end, override_capacity, override_hosts, override_location_id, created_at, updated_at`

func (r *ExceptionRepository) CreateException(ctx context.Context, exception persistence.ScheduleException) error {
	hosts := sql.NullString{}
	if len(exception.OverrideHosts) > 0 {
		var err error
		if hosts, err = encodeJSON(exception.OverrideHosts); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO schedule_exceptions (` + exceptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.pool.DB().ExecContext(ctx, query,
		exception.TenantID, exception.ScheduleID, exception.OccurrenceDate, exception.Type,
		nullString(exception.OverrideStart), nullString(exception.OverrideEnd),
		nullInt(exception.OverrideCapacity), hosts, nullString(exception.OverrideLocationID),
		formatTime(exception.CreatedAt), formatTime(exception.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create exception: %w", MapError(err))
	}
	return nil
}

func (r *ExceptionRepository) GetException(ctx context.Context, tenantID, scheduleID, occurrenceDate string) (persistence.ScheduleException, error) {
	query := `SELECT ` + exceptionColumns + `
		FROM schedule_exceptions WHERE tenant_id = ? AND schedule_id = ? AND occurrence_date = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, scheduleID, occurrenceDate)
	exception, err := scanException(row)
	if err != nil {
		return persistence.ScheduleException{}, MapError(err)
	}
	return exception, nil
}

func (r *ExceptionRepository) UpdateException(ctx context.Context, exception persistence.ScheduleException) error {
	hosts := sql.NullString{}
	if len(exception.OverrideHosts) > 0 {
		var err error
		if hosts, err = encodeJSON(exception.OverrideHosts); err != nil {
			return err
		}
	}

	query := `
		UPDATE schedule_exceptions SET type = ?, override_start = ?, override_end = ?,
			override_capacity = ?, override_hosts = ?, override_location_id = ?, updated_at = ?
		WHERE tenant_id = ? AND schedule_id = ? AND occurrence_date = ?`
	result, err := r.pool.DB().ExecContext(ctx, query,
		exception.Type, nullString(exception.OverrideStart), nullString(exception.OverrideEnd),
		nullInt(exception.OverrideCapacity), hosts, nullString(exception.OverrideLocationID),
		formatTime(exception.UpdatedAt),
		exception.TenantID, exception.ScheduleID, exception.OccurrenceDate)
	if err != nil {
		return fmt.Errorf("failed to update exception: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *ExceptionRepository) DeleteException(ctx context.Context, tenantID, scheduleID, occurrenceDate string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM schedule_exceptions WHERE tenant_id = ? AND schedule_id = ? AND occurrence_date = ?`,
		tenantID, scheduleID, occurrenceDate)
	if err != nil {
		return fmt.Errorf("failed to delete exception: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *ExceptionRepository) ListExceptions(ctx context.Context, tenantID, scheduleID, startDate, endDate string) ([]persistence.ScheduleException, error) {
	query := `SELECT ` + exceptionColumns + `
		FROM schedule_exceptions WHERE tenant_id = ? AND schedule_id = ?`
	args := []any{tenantID, scheduleID}
	if startDate != "" {
		query += ` AND occurrence_date >= ?`
		args = append(args, startDate)
	}
	if endDate != "" {
		query += ` AND occurrence_date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY occurrence_date`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", MapError(err))
	}
	defer rows.Close()

	var exceptions []persistence.ScheduleException
	for rows.Next() {
		exception, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exception)
	}
	return exceptions, rows.Err()
}

func scanException(row rowScanner) (persistence.ScheduleException, error) {
	var (
		exception                         persistence.ScheduleException
		overrideStart, overrideEnd        sql.NullString
		overrideCapacity                  sql.NullInt64
		overrideHosts, overrideLocationID sql.NullString
		createdAt, updatedAt              string
	)
	if err := row.Scan(&exception.TenantID, &exception.ScheduleID, &exception.OccurrenceDate,
		&exception.Type, &overrideStart, &overrideEnd, &overrideCapacity,
		&overrideHosts, &overrideLocationID, &createdAt, &updatedAt); err != nil {
		return persistence.ScheduleException{}, err
	}
	exception.OverrideStart = stringPtr(overrideStart)
	exception.OverrideEnd = stringPtr(overrideEnd)
	exception.OverrideCapacity = intPtr(overrideCapacity)
	exception.OverrideLocationID = stringPtr(overrideLocationID)
	if err := decodeJSON(overrideHosts, &exception.OverrideHosts); err != nil {
		return persistence.ScheduleException{}, err
	}
	var err error
	if exception.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.ScheduleException{}, err
	}
	if exception.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.ScheduleException{}, err
	}
	return exception, nil
}
