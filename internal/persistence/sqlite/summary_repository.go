package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/studio-scheduler/internal/persistence"
)

// SummaryRepository implements persistence.SummaryRepository on SQLite.
// Summaries are written by the booking transactions; this type only reads.
type SummaryRepository struct {
	pool *ConnectionPool
}

func NewSummaryRepository(pool *ConnectionPool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

const summaryColumns = `tenant_id, session_id, date, capacity, booked_count, waitlist_count, updated_at`

func (r *SummaryRepository) GetSummaries(ctx context.Context, tenantID string, sessionIDs []string) (map[string]persistence.SessionSummary, error) {
	summaries := make(map[string]persistence.SessionSummary, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return summaries, nil
	}

	placeholders := strings.Repeat("?, ", len(sessionIDs))
	query := `SELECT ` + summaryColumns + `
		FROM session_summaries WHERE tenant_id = ? AND session_id IN (` + placeholders[:len(placeholders)-2] + `)`
	args := make([]any, 0, len(sessionIDs)+1)
	args = append(args, tenantID)
	for _, id := range sessionIDs {
		args = append(args, id)
	}

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", MapError(err))
	}
	defer rows.Close()

	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries[summary.SessionID] = summary
	}
	return summaries, rows.Err()
}

func (r *SummaryRepository) GetSummary(ctx context.Context, tenantID, sessionID string) (persistence.SessionSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM session_summaries WHERE tenant_id = ? AND session_id = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, sessionID)
	summary, err := scanSummary(row)
	if err != nil {
		return persistence.SessionSummary{}, MapError(err)
	}
	return summary, nil
}

func scanSummary(row rowScanner) (persistence.SessionSummary, error) {
	var (
		summary   persistence.SessionSummary
		capacity  sql.NullInt64
		updatedAt string
	)
	if err := row.Scan(&summary.TenantID, &summary.SessionID, &summary.Date,
		&capacity, &summary.BookedCount, &summary.WaitlistCount, &updatedAt); err != nil {
		return persistence.SessionSummary{}, err
	}
	summary.Capacity = intPtr(capacity)
	var err error
	if summary.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.SessionSummary{}, err
	}
	return summary, nil
}
