package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/geo"
	"github.com/example/studio-scheduler/internal/persistence"
)

// LocationService orchestrates validation and persistence for locations.
type LocationService struct {
	locations     LocationStore
	defaultRadius float64
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewLocationService wires dependencies for location operations. defaultRadius
// <= 0 falls back to the check-in default.
func NewLocationService(locations LocationStore, defaultRadius float64, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LocationService {
	if defaultRadius <= 0 {
		defaultRadius = DefaultCheckInRadiusMeters
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LocationService{
		locations:     locations,
		defaultRadius: defaultRadius,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// CreateLocation validates the input before delegating to persistence.
func (s *LocationService) CreateLocation(ctx context.Context, principal Principal, input LocationInput) (persistence.Location, error) {
	if err := validateLocationInput(input); err != nil {
		return persistence.Location{}, err
	}

	now := s.now()
	location := persistence.Location{
		TenantID:            principal.TenantID,
		ID:                  s.idGenerator(),
		Name:                strings.TrimSpace(input.Name),
		Lat:                 input.Lat,
		Lng:                 input.Lng,
		CheckInRadiusMeters: s.resolveRadius(input.CheckInRadiusMeters),
		Extra:               input.Extra,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.locations.CreateLocation(ctx, location); err != nil {
		return persistence.Location{}, mapStoreError(err)
	}

	serviceLogger(ctx, s.logger, "location", "create_location", "tenant_id", principal.TenantID).
		InfoContext(ctx, "location created", "location_id", location.ID)
	return location, nil
}

// GetLocation loads one location.
func (s *LocationService) GetLocation(ctx context.Context, principal Principal, id string) (persistence.Location, error) {
	location, err := s.locations.GetLocation(ctx, principal.TenantID, id)
	if err != nil {
		return persistence.Location{}, mapStoreError(err)
	}
	return location, nil
}

// UpdateLocation applies caller changes to an existing location.
func (s *LocationService) UpdateLocation(ctx context.Context, principal Principal, id string, input LocationInput) (persistence.Location, error) {
	if err := validateLocationInput(input); err != nil {
		return persistence.Location{}, err
	}

	existing, err := s.locations.GetLocation(ctx, principal.TenantID, id)
	if err != nil {
		return persistence.Location{}, mapStoreError(err)
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Lat = input.Lat
	existing.Lng = input.Lng
	existing.CheckInRadiusMeters = s.resolveRadius(input.CheckInRadiusMeters)
	existing.Extra = input.Extra
	existing.UpdatedAt = s.now()

	if err := s.locations.UpdateLocation(ctx, existing); err != nil {
		return persistence.Location{}, mapStoreError(err)
	}
	return existing, nil
}

// DeleteLocation removes a location.
func (s *LocationService) DeleteLocation(ctx context.Context, principal Principal, id string) error {
	if err := s.locations.DeleteLocation(ctx, principal.TenantID, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// ListLocations enumerates the tenant's locations.
func (s *LocationService) ListLocations(ctx context.Context, principal Principal) ([]persistence.Location, error) {
	locations, err := s.locations.ListLocations(ctx, principal.TenantID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return locations, nil
}

func (s *LocationService) resolveRadius(radius *float64) float64 {
	if radius == nil || *radius <= 0 {
		return s.defaultRadius
	}
	return *radius
}

func validateLocationInput(input LocationInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if (input.Lat == nil) != (input.Lng == nil) {
		vErr.add("coordinates", "lat and lng must be provided together")
	}
	if input.Lat != nil && input.Lng != nil {
		if err := geo.ValidateCoordinates(*input.Lat, *input.Lng); err != nil {
			vErr.add("coordinates", "lat must be in [-90,90] and lng in [-180,180]")
		}
	}
	if input.CheckInRadiusMeters != nil && *input.CheckInRadiusMeters < 0 {
		vErr.add("checkInRadiusMeters", "radius must be positive")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
