package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/studio-scheduler/internal/persistence"
)

// LocationRepository implements persistence.LocationRepository on SQLite.
type LocationRepository struct {
	pool *ConnectionPool
}

func NewLocationRepository(pool *ConnectionPool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

func (r *LocationRepository) CreateLocation(ctx context.Context, location persistence.Location) error {
	extra, err := encodeJSON(location.Extra)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO locations (tenant_id, id, name, lat, lng, check_in_radius_m, extra, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.pool.DB().ExecContext(ctx, query,
		location.TenantID, location.ID, location.Name,
		nullFloat(location.Lat), nullFloat(location.Lng), location.CheckInRadiusMeters,
		extra, formatTime(location.CreatedAt), formatTime(location.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create location: %w", MapError(err))
	}
	return nil
}

func (r *LocationRepository) GetLocation(ctx context.Context, tenantID, id string) (persistence.Location, error) {
	query := `
		SELECT tenant_id, id, name, lat, lng, check_in_radius_m, extra, created_at, updated_at
		FROM locations WHERE tenant_id = ? AND id = ?`
	row := r.pool.DB().QueryRowContext(ctx, query, tenantID, id)
	location, err := scanLocation(row)
	if err != nil {
		return persistence.Location{}, MapError(err)
	}
	return location, nil
}

func (r *LocationRepository) UpdateLocation(ctx context.Context, location persistence.Location) error {
	extra, err := encodeJSON(location.Extra)
	if err != nil {
		return err
	}

	query := `
		UPDATE locations SET name = ?, lat = ?, lng = ?, check_in_radius_m = ?, extra = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`
	result, err := r.pool.DB().ExecContext(ctx, query,
		location.Name, nullFloat(location.Lat), nullFloat(location.Lng),
		location.CheckInRadiusMeters, extra, formatTime(location.UpdatedAt),
		location.TenantID, location.ID)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *LocationRepository) DeleteLocation(ctx context.Context, tenantID, id string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM locations WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", MapError(err))
	}
	return requireRowAffected(result, persistence.ErrNotFound)
}

func (r *LocationRepository) ListLocations(ctx context.Context, tenantID string) ([]persistence.Location, error) {
	query := `
		SELECT tenant_id, id, name, lat, lng, check_in_radius_m, extra, created_at, updated_at
		FROM locations WHERE tenant_id = ? ORDER BY name, id`
	rows, err := r.pool.DB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", MapError(err))
	}
	defer rows.Close()

	var locations []persistence.Location
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

func scanLocation(row rowScanner) (persistence.Location, error) {
	var (
		location             persistence.Location
		lat, lng             sql.NullFloat64
		extra                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&location.TenantID, &location.ID, &location.Name,
		&lat, &lng, &location.CheckInRadiusMeters, &extra, &createdAt, &updatedAt); err != nil {
		return persistence.Location{}, err
	}
	location.Lat = floatPtr(lat)
	location.Lng = floatPtr(lng)
	if err := decodeJSON(extra, &location.Extra); err != nil {
		return persistence.Location{}, err
	}
	var err error
	if location.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Location{}, err
	}
	if location.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Location{}, err
	}
	return location, nil
}
