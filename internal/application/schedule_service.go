package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/recurrence"
	"github.com/example/studio-scheduler/internal/timeutil"
)

// ScheduleService orchestrates validation and persistence for schedule time
// patterns. Rule strings are validated here so a stored schedule always
// expands cleanly.
type ScheduleService struct {
	schedules   ScheduleStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules ScheduleStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		schedules:   schedules,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateSchedule validates the time pattern before delegating to persistence.
func (s *ScheduleService) CreateSchedule(ctx context.Context, principal Principal, input ScheduleInput) (persistence.Schedule, error) {
	if err := validateScheduleInput(input); err != nil {
		return persistence.Schedule{}, err
	}

	now := s.now()
	schedule := persistence.Schedule{
		TenantID:     principal.TenantID,
		ID:           s.idGenerator(),
		Type:         input.Type,
		ProgramID:    input.ProgramID,
		LocationID:   input.LocationID,
		StartLocal:   input.Start,
		EndLocal:     input.End,
		Timezone:     input.Timezone,
		IsRecurring:  input.IsRecurring,
		RRule:        input.RRule,
		BaseCapacity: input.BaseCapacity,
		Hosts:        input.Hosts,
		Tags:         input.Tags,
		Extra:        input.Extra,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.schedules.CreateSchedule(ctx, schedule); err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}

	serviceLogger(ctx, s.logger, "schedule", "create_schedule", "tenant_id", principal.TenantID).
		InfoContext(ctx, "schedule created", "schedule_id", schedule.ID, "type", schedule.Type)
	return schedule, nil
}

// GetSchedule loads one schedule.
func (s *ScheduleService) GetSchedule(ctx context.Context, principal Principal, id string) (persistence.Schedule, error) {
	schedule, err := s.schedules.GetSchedule(ctx, principal.TenantID, id)
	if err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}
	return schedule, nil
}

// UpdateSchedule applies caller changes to an existing schedule.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, principal Principal, id string, input ScheduleInput) (persistence.Schedule, error) {
	if err := validateScheduleInput(input); err != nil {
		return persistence.Schedule{}, err
	}

	existing, err := s.schedules.GetSchedule(ctx, principal.TenantID, id)
	if err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}

	existing.Type = input.Type
	existing.ProgramID = input.ProgramID
	existing.LocationID = input.LocationID
	existing.StartLocal = input.Start
	existing.EndLocal = input.End
	existing.Timezone = input.Timezone
	existing.IsRecurring = input.IsRecurring
	existing.RRule = input.RRule
	existing.BaseCapacity = input.BaseCapacity
	existing.Hosts = input.Hosts
	existing.Tags = input.Tags
	existing.Extra = input.Extra
	existing.UpdatedAt = s.now()

	if err := s.schedules.UpdateSchedule(ctx, existing); err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}
	return existing, nil
}

// DeleteSchedule removes a schedule. Existing bookings against its sessions
// are untouched; cascade is not modelled.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, principal Principal, id string) error {
	if err := s.schedules.DeleteSchedule(ctx, principal.TenantID, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// ListSchedules enumerates the tenant's schedules, optionally narrowed by
// program or primary host.
func (s *ScheduleService) ListSchedules(ctx context.Context, principal Principal, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	schedules, err := s.schedules.ListSchedules(ctx, principal.TenantID, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return schedules, nil
}

func validateScheduleInput(input ScheduleInput) error {
	vErr := &ValidationError{}

	switch input.Type {
	case "SESSION":
		if input.ProgramID == nil || *input.ProgramID == "" {
			vErr.add("programId", "programId is required for SESSION schedules")
		}
	case "BLOCK":
	default:
		vErr.add("type", "type must be SESSION or BLOCK")
	}

	zone, zoneErr := timeutil.LoadZone(input.Timezone)
	if zoneErr != nil {
		vErr.add("timezone", "must be a valid IANA timezone")
	}

	if strings.TrimSpace(input.Start) == "" {
		vErr.add("start", "start is required")
	}
	if strings.TrimSpace(input.End) == "" {
		vErr.add("end", "end is required")
	}
	if zoneErr == nil && input.Start != "" && input.End != "" {
		start, startErr := timeutil.ParseLocal(input.Start, zone)
		if startErr != nil {
			vErr.add("start", "must be a local datetime, YYYY-MM-DDTHH:MM:SS")
		}
		end, endErr := timeutil.ParseLocal(input.End, zone)
		if endErr != nil {
			vErr.add("end", "must be a local datetime, YYYY-MM-DDTHH:MM:SS")
		}
		if startErr == nil && endErr == nil && !start.Before(end) {
			vErr.add("time", "start must be before end")
		}
	}

	if input.IsRecurring {
		if input.RRule == nil || strings.TrimSpace(*input.RRule) == "" {
			vErr.add("rrule", "rrule is required for recurring schedules")
		} else if _, err := recurrence.ParseRule(*input.RRule); err != nil {
			vErr.add("rrule", err.Error())
		}
	}

	if input.BaseCapacity != nil && *input.BaseCapacity < 0 {
		vErr.add("baseCapacity", "baseCapacity must not be negative")
	}

	for _, host := range input.Hosts {
		if host.ID == "" || host.Type == "" {
			vErr.add("hosts", "every host needs an id and a type")
			break
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
