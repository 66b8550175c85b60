package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/studio-scheduler/internal/persistence"
)

// ProgramRepository implements persistence.ProgramRepository on SQLite.
type ProgramRepository struct {
	pool *ConnectionPool
}

func NewProgramRepository(pool *ConnectionPool) *ProgramRepository {
	return &ProgramRepository{pool: pool}
}

func (r *ProgramRepository) CreateProgram(ctx context.Context, program persistence.Program) error {
	tags, err := encodeJSON(program.Tags)
	if err != nil {
		return err
	}
	extra, err := encodeJSON(program.Extra)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO programs (tenant_id, id, name, description, tags, extra, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.pool.DB().ExecContext(ctx, query,
		program.TenantID, program.ID, program.Name, program.Description,
		tags, extra, formatTime(program.CreatedAt), formatTime(program.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create program: %w", MapError(err))
	}
	return nil
}

func (r *ProgramRepository) GetProgram(ctx context.Context, tenantID, id string) (persistence.Program, error) {
	query := `
		SELECT tenant_id, id, name, description, tags, extra, created_at, updated_at
		FROM programs WHERE tenant_id = ? AND id = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, id)
	program, err := scanProgram(row)
	if err != nil {
		return persistence.Program{}, MapError(err)
	}
	return program, nil
}

func (r *ProgramRepository) UpdateProgram(ctx context.Context, program persistence.Program) error {
	tags, err := encodeJSON(program.Tags)
	if err != nil {
		return err
	}
	extra, err := encodeJSON(program.Extra)
	if err != nil {
		return err
	}

	query := `
		UPDATE programs SET name = ?, description = ?, tags = ?, extra = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`
	result, err := r.pool.DB().ExecContext(ctx, query,
		program.Name, program.Description, tags, extra, formatTime(program.UpdatedAt),
		program.TenantID, program.ID)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *ProgramRepository) DeleteProgram(ctx context.Context, tenantID, id string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM programs WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete program: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *ProgramRepository) ListPrograms(ctx context.Context, tenantID string) ([]persistence.Program, error) {
	query := `
		SELECT tenant_id, id, name, description, tags, extra, created_at, updated_at
		FROM programs WHERE tenant_id = ? ORDER BY name, id`
	rows, err := r.pool.DB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", MapError(err))
	}
	defer rows.Close()

	var programs []persistence.Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	return programs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (persistence.Program, error) {
	var (
		program              persistence.Program
		tags, extra          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&program.TenantID, &program.ID, &program.Name, &program.Description,
		&tags, &extra, &createdAt, &updatedAt); err != nil {
		return persistence.Program{}, err
	}
	if err := decodeJSON(tags, &program.Tags); err != nil {
		return persistence.Program{}, err
	}
	if err := decodeJSON(extra, &program.Extra); err != nil {
		return persistence.Program{}, err
	}
	var err error
	if program.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Program{}, err
	}
	if program.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Program{}, err
	}
	return program, nil
}

func requireRowAffected(result sql.Result, sentinel error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel
	}
	return nil
}
