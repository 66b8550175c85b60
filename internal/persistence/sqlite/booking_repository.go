package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository on SQLite. The
// reserve and release paths run the booking write and the summary counter
// update inside a single transaction so the counter can never disagree with
// the booking rows.
type BookingRepository struct {
	pool *ConnectionPool
}

func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `tenant_id, session_id, id, subject_id, subject_type, status,
	source, notes, extra, created_at, cancelled_at`

func (r *BookingRepository) CreateBookingReserving(ctx context.Context, booking persistence.Booking, capacity *int, date string) error {
	extra, err := encodeJSON(booking.Extra)
	if err != nil {
		return err
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// The upsert increments booked_count only while it is under the
		// capacity bound; a NULL bound means unlimited. Zero rows affected
		// means the guard rejected the increment.
		reserve := `
			INSERT INTO session_summaries (tenant_id, session_id, date, capacity, booked_count, waitlist_count, updated_at)
			VALUES (?, ?, ?, ?, 1, 0, ?)
			ON CONFLICT (tenant_id, session_id) DO UPDATE SET
				booked_count = booked_count + 1,
				capacity = excluded.capacity,
				updated_at = excluded.updated_at
			WHERE excluded.capacity IS NULL OR booked_count < excluded.capacity`
		result, err := tx.ExecContext(ctx, reserve,
			booking.TenantID, booking.SessionID, date, nullInt(capacity),
			formatTime(booking.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to reserve capacity: %w", MapError(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrAtCapacity
		}
		if capacity != nil && *capacity <= 0 {
			// The insert branch cannot check the bound, so a zero-capacity
			// session is guarded here before the booking row lands.
			var booked int
			row := tx.QueryRowContext(ctx,
				`SELECT booked_count FROM session_summaries WHERE tenant_id = ? AND session_id = ?`,
				booking.TenantID, booking.SessionID)
			if err := row.Scan(&booked); err != nil {
				return MapError(err)
			}
			if booked > *capacity {
				return persistence.ErrAtCapacity
			}
		}

		insert := `
			INSERT INTO bookings (` + bookingColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert,
			booking.TenantID, booking.SessionID, booking.ID,
			booking.SubjectID, booking.SubjectType, booking.Status,
			booking.Source, booking.Notes, extra,
			formatTime(booking.CreatedAt), nullTime(booking.CancelledAt)); err != nil {
			return fmt.Errorf("failed to create booking: %w", MapError(err))
		}
		return nil
	})
}

func (r *BookingRepository) CancelBookingReleasing(ctx context.Context, tenantID, sessionID, bookingID string, cancelledAt time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		update := `
			UPDATE bookings SET status = 'CANCELLED', cancelled_at = ?
			WHERE tenant_id = ? AND session_id = ? AND id = ? AND status != 'CANCELLED'`
		result, err := tx.ExecContext(ctx, update,
			formatTime(cancelledAt), tenantID, sessionID, bookingID)
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", MapError(err))
		}
		if err := requireRowAffected(result, persistence.ErrNotFound); err != nil {
			return err
		}

		release := `
			UPDATE session_summaries SET booked_count = booked_count - 1, updated_at = ?
			WHERE tenant_id = ? AND session_id = ? AND booked_count > 0`
		result, err = tx.ExecContext(ctx, release, formatTime(cancelledAt), tenantID, sessionID)
		if err != nil {
			return fmt.Errorf("failed to release capacity: %w", MapError(err))
		}
		return requireRowAffected(result, persistence.ErrCounterUnderflow)
	})
}

func (r *BookingRepository) GetBooking(ctx context.Context, tenantID, bookingID string) (persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = ? AND id = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, MapError(err)
	}
	return booking, nil
}

func (r *BookingRepository) ListBookingsBySession(ctx context.Context, tenantID, sessionID string) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings WHERE tenant_id = ? AND session_id = ? ORDER BY created_at, id`
	rows, err := r.pool.DB().QueryContext(ctx, query, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", MapError(err))
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepository) ListBookingsBySubject(ctx context.Context, tenantID, subjectID string, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings WHERE tenant_id = ? AND subject_id = ?`
	args := []any{tenantID, subjectID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", MapError(err))
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepository) ListUnattendedBefore(ctx context.Context, cutoffDate string, limit int) ([]persistence.Booking, error) {
	// The session's local date is the suffix of its id after '#'.
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.status = 'CONFIRMED'
		  AND substr(b.session_id, instr(b.session_id, '#') + 1) < ?
		  AND NOT EXISTS (
			SELECT 1 FROM attendance_records a
			WHERE a.tenant_id = b.tenant_id
			  AND a.session_id = b.session_id
			  AND a.booking_id = b.id
		  )
		ORDER BY b.tenant_id, b.session_id, b.id
		LIMIT ?`
	rows, err := r.pool.DB().QueryContext(ctx, query, cutoffDate, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unattended bookings: %w", MapError(err))
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking            persistence.Booking
		extra, cancelledAt sql.NullString
		createdAt          string
	)
	if err := row.Scan(&booking.TenantID, &booking.SessionID, &booking.ID,
		&booking.SubjectID, &booking.SubjectType, &booking.Status,
		&booking.Source, &booking.Notes, &extra, &createdAt, &cancelledAt); err != nil {
		return persistence.Booking{}, err
	}
	if err := decodeJSON(extra, &booking.Extra); err != nil {
		return persistence.Booking{}, err
	}
	var err error
	if booking.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CancelledAt, err = timePtr(cancelledAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
