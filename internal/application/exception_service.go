package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/timeutil"
)

// ExceptionService orchestrates validation and persistence for per-date
// schedule overrides.
type ExceptionService struct {
	exceptions ExceptionStore
	schedules  ScheduleStore
	now        func() time.Time
	logger     *slog.Logger
}

// NewExceptionService wires dependencies for exception operations.
func NewExceptionService(exceptions ExceptionStore, schedules ScheduleStore, now func() time.Time, logger *slog.Logger) *ExceptionService {
	if now == nil {
		now = time.Now
	}
	return &ExceptionService{
		exceptions: exceptions,
		schedules:  schedules,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

// CreateException records an override for one occurrence date. The parent
// schedule must exist.
func (s *ExceptionService) CreateException(ctx context.Context, principal Principal, input ExceptionInput) (persistence.ScheduleException, error) {
	if err := validateExceptionInput(input); err != nil {
		return persistence.ScheduleException{}, err
	}
	if _, err := s.schedules.GetSchedule(ctx, principal.TenantID, input.ScheduleID); err != nil {
		return persistence.ScheduleException{}, mapStoreError(err)
	}

	now := s.now()
	exception := persistence.ScheduleException{
		TenantID:           principal.TenantID,
		ScheduleID:         input.ScheduleID,
		OccurrenceDate:     input.OccurrenceDate,
		Type:               input.Type,
		OverrideStart:      input.OverrideStart,
		OverrideEnd:        input.OverrideEnd,
		OverrideCapacity:   input.OverrideCapacity,
		OverrideHosts:      input.OverrideHosts,
		OverrideLocationID: input.OverrideLocationID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.exceptions.CreateException(ctx, exception); err != nil {
		return persistence.ScheduleException{}, mapStoreError(err)
	}

	serviceLogger(ctx, s.logger, "exception", "create_exception", "tenant_id", principal.TenantID).
		InfoContext(ctx, "exception created",
			"schedule_id", exception.ScheduleID, "date", exception.OccurrenceDate, "type", exception.Type)
	return exception, nil
}

// GetException loads one exception.
func (s *ExceptionService) GetException(ctx context.Context, principal Principal, scheduleID, occurrenceDate string) (persistence.ScheduleException, error) {
	exception, err := s.exceptions.GetException(ctx, principal.TenantID, scheduleID, occurrenceDate)
	if err != nil {
		return persistence.ScheduleException{}, mapStoreError(err)
	}
	return exception, nil
}

// UpdateException replaces the override fields for one occurrence date.
func (s *ExceptionService) UpdateException(ctx context.Context, principal Principal, input ExceptionInput) (persistence.ScheduleException, error) {
	if err := validateExceptionInput(input); err != nil {
		return persistence.ScheduleException{}, err
	}

	existing, err := s.exceptions.GetException(ctx, principal.TenantID, input.ScheduleID, input.OccurrenceDate)
	if err != nil {
		return persistence.ScheduleException{}, mapStoreError(err)
	}

	existing.Type = input.Type
	existing.OverrideStart = input.OverrideStart
	existing.OverrideEnd = input.OverrideEnd
	existing.OverrideCapacity = input.OverrideCapacity
	existing.OverrideHosts = input.OverrideHosts
	existing.OverrideLocationID = input.OverrideLocationID
	existing.UpdatedAt = s.now()

	if err := s.exceptions.UpdateException(ctx, existing); err != nil {
		return persistence.ScheduleException{}, mapStoreError(err)
	}
	return existing, nil
}

// DeleteException removes an override, restoring the occurrence to the
// schedule's template.
func (s *ExceptionService) DeleteException(ctx context.Context, principal Principal, scheduleID, occurrenceDate string) error {
	if err := s.exceptions.DeleteException(ctx, principal.TenantID, scheduleID, occurrenceDate); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// ListExceptions enumerates a schedule's exceptions, optionally bounded by
// occurrence date.
func (s *ExceptionService) ListExceptions(ctx context.Context, principal Principal, scheduleID, startDate, endDate string) ([]persistence.ScheduleException, error) {
	if scheduleID == "" {
		vErr := &ValidationError{}
		vErr.add("scheduleId", "scheduleId is required")
		return nil, vErr
	}
	exceptions, err := s.exceptions.ListExceptions(ctx, principal.TenantID, scheduleID, startDate, endDate)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return exceptions, nil
}

func validateExceptionInput(input ExceptionInput) error {
	vErr := &ValidationError{}
	if input.ScheduleID == "" {
		vErr.add("scheduleId", "scheduleId is required")
	}
	if _, err := time.Parse(timeutil.LocalDateLayout, input.OccurrenceDate); err != nil {
		vErr.add("occurrenceDate", "must be YYYY-MM-DD")
	}
	switch input.Type {
	case "CANCELLED", "OVERRIDE":
	default:
		vErr.add("type", "type must be CANCELLED or OVERRIDE")
	}
	if input.OverrideCapacity != nil && *input.OverrideCapacity < 0 {
		vErr.add("overrideCapacity", "overrideCapacity must not be negative")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
