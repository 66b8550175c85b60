package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/studio-scheduler/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository on SQLite.
type ScheduleRepository struct {
	pool *ConnectionPool
}

func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

const scheduleColumns = `tenant_id, id, type, program_id, location_id, start_local, end_local,
	timezone, is_recurring, rrule, base_capacity, hosts, tags, extra, created_at, updated_at`

func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	hosts, tags, extra, err := encodeScheduleColumns(schedule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO schedules (` + scheduleColumns + `, primary_host_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.pool.DB().ExecContext(ctx, query,
		schedule.TenantID, schedule.ID, schedule.Type,
		nullString(schedule.ProgramID), nullString(schedule.LocationID),
		schedule.StartLocal, schedule.EndLocal, schedule.Timezone,
		schedule.IsRecurring, nullString(schedule.RRule), nullInt(schedule.BaseCapacity),
		hosts, tags, extra,
		formatTime(schedule.CreatedAt), formatTime(schedule.UpdatedAt),
		schedule.PrimaryHostID())
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", MapError(err))
	}
	return nil
}

func (r *ScheduleRepository) GetSchedule(ctx context.Context, tenantID, id string) (persistence.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE tenant_id = ? AND id = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, id)
	schedule, err := scanSchedule(row)
	if err != nil {
		return persistence.Schedule{}, MapError(err)
	}
	return schedule, nil
}

func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	hosts, tags, extra, err := encodeScheduleColumns(schedule)
	if err != nil {
		return err
	}

	query := `
		UPDATE schedules SET type = ?, program_id = ?, location_id = ?, start_local = ?,
			end_local = ?, timezone = ?, is_recurring = ?, rrule = ?, base_capacity = ?,
			primary_host_id = ?, hosts = ?, tags = ?, extra = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`
	result, err := r.pool.DB().ExecContext(ctx, query,
		schedule.Type, nullString(schedule.ProgramID), nullString(schedule.LocationID),
		schedule.StartLocal, schedule.EndLocal, schedule.Timezone,
		schedule.IsRecurring, nullString(schedule.RRule), nullInt(schedule.BaseCapacity),
		schedule.PrimaryHostID(), hosts, tags, extra, formatTime(schedule.UpdatedAt),
		schedule.TenantID, schedule.ID)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, tenantID, id string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM schedules WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *ScheduleRepository) ListSchedules(ctx context.Context, tenantID string, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE tenant_id = ?`
	args := []any{tenantID}

	if len(filter.ProgramIDs) > 0 {
		placeholders := strings.Repeat("?, ", len(filter.ProgramIDs))
		query += ` AND program_id IN (` + placeholders[:len(placeholders)-2] + `)`
		for _, id := range filter.ProgramIDs {
			args = append(args, id)
		}
	}
	if filter.HostID != "" {
		query += ` AND primary_host_id = ?`
		args = append(args, filter.HostID)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", MapError(err))
	}
	defer rows.Close()

	var schedules []persistence.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func encodeScheduleColumns(schedule persistence.Schedule) (hosts, tags, extra sql.NullString, err error) {
	if len(schedule.Hosts) > 0 {
		if hosts, err = encodeJSON(schedule.Hosts); err != nil {
			return
		}
	}
	if tags, err = encodeJSON(schedule.Tags); err != nil {
		return
	}
	extra, err = encodeJSON(schedule.Extra)
	return
}

func scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var (
		schedule                     persistence.Schedule
		programID, locationID, rrule sql.NullString
		baseCapacity                 sql.NullInt64
		hosts, tags, extra           sql.NullString
		createdAt, updatedAt         string
	)
	if err := row.Scan(&schedule.TenantID, &schedule.ID, &schedule.Type,
		&programID, &locationID, &schedule.StartLocal, &schedule.EndLocal,
		&schedule.Timezone, &schedule.IsRecurring, &rrule, &baseCapacity,
		&hosts, &tags, &extra, &createdAt, &updatedAt); err != nil {
		return persistence.Schedule{}, err
	}
	schedule.ProgramID = stringPtr(programID)
	schedule.LocationID = stringPtr(locationID)
	schedule.RRule = stringPtr(rrule)
	schedule.BaseCapacity = intPtr(baseCapacity)
	if err := decodeJSON(hosts, &schedule.Hosts); err != nil {
		return persistence.Schedule{}, err
	}
	if err := decodeJSON(tags, &schedule.Tags); err != nil {
		return persistence.Schedule{}, err
	}
	if err := decodeJSON(extra, &schedule.Extra); err != nil {
		return persistence.Schedule{}, err
	}
	var err error
	if schedule.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Schedule{}, err
	}
	return schedule, nil
}
