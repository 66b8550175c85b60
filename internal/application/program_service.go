package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// ProgramService orchestrates validation and persistence for the program catalog.
type ProgramService struct {
	programs    ProgramStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProgramService wires dependencies for program operations.
func NewProgramService(programs ProgramStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProgramService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProgramService{
		programs:    programs,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateProgram validates the input before delegating to persistence.
func (s *ProgramService) CreateProgram(ctx context.Context, principal Principal, input ProgramInput) (persistence.Program, error) {
	if err := validateProgramInput(input); err != nil {
		return persistence.Program{}, err
	}

	now := s.now()
	program := persistence.Program{
		TenantID:    principal.TenantID,
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Tags:        input.Tags,
		Extra:       input.Extra,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.programs.CreateProgram(ctx, program); err != nil {
		return persistence.Program{}, mapStoreError(err)
	}

	serviceLogger(ctx, s.logger, "program", "create_program", "tenant_id", principal.TenantID).
		InfoContext(ctx, "program created", "program_id", program.ID)
	return program, nil
}

// GetProgram loads one program.
func (s *ProgramService) GetProgram(ctx context.Context, principal Principal, id string) (persistence.Program, error) {
	program, err := s.programs.GetProgram(ctx, principal.TenantID, id)
	if err != nil {
		return persistence.Program{}, mapStoreError(err)
	}
	return program, nil
}

// UpdateProgram applies caller changes to an existing program.
func (s *ProgramService) UpdateProgram(ctx context.Context, principal Principal, id string, input ProgramInput) (persistence.Program, error) {
	if err := validateProgramInput(input); err != nil {
		return persistence.Program{}, err
	}

	existing, err := s.programs.GetProgram(ctx, principal.TenantID, id)
	if err != nil {
		return persistence.Program{}, mapStoreError(err)
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = input.Description
	existing.Tags = input.Tags
	existing.Extra = input.Extra
	existing.UpdatedAt = s.now()

	if err := s.programs.UpdateProgram(ctx, existing); err != nil {
		return persistence.Program{}, mapStoreError(err)
	}
	return existing, nil
}

// DeleteProgram removes a program. Schedules referencing it keep their
// dangling reference; cascade is not modelled.
func (s *ProgramService) DeleteProgram(ctx context.Context, principal Principal, id string) error {
	if err := s.programs.DeleteProgram(ctx, principal.TenantID, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// ListPrograms enumerates the tenant's programs.
func (s *ProgramService) ListPrograms(ctx context.Context, principal Principal) ([]persistence.Program, error) {
	programs, err := s.programs.ListPrograms(ctx, principal.TenantID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return programs, nil
}

func validateProgramInput(input ProgramInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
