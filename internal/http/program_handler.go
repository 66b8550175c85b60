package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/persistence"
)

var errMissingProgramID = errors.New("programId is required")

type programService interface {
	CreateProgram(ctx context.Context, principal application.Principal, input application.ProgramInput) (persistence.Program, error)
	GetProgram(ctx context.Context, principal application.Principal, id string) (persistence.Program, error)
	UpdateProgram(ctx context.Context, principal application.Principal, id string, input application.ProgramInput) (persistence.Program, error)
	DeleteProgram(ctx context.Context, principal application.Principal, id string) error
	ListPrograms(ctx context.Context, principal application.Principal) ([]persistence.Program, error)
}

type ProgramHandler struct {
	service   programService
	responder responder
}

func NewProgramHandler(service programService, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{service: service, responder: newResponder(logger)}
}

func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if id := strings.TrimSpace(r.URL.Query().Get("programId")); id != "" {
		program, err := h.service.GetProgram(r.Context(), principal, id)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, toProgramDTO(program))
		return
	}

	programs, err := h.service.ListPrograms(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProgramsResponse{Programs: toProgramDTOs(programs)})
}

func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	program, err := h.service.CreateProgram(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProgramDTO(program))
}

func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.ProgramID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingProgramID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	program, err := h.service.UpdateProgram(r.Context(), principal, strings.TrimSpace(req.ProgramID), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProgramDTO(program))
}

func (h *ProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("programId"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingProgramID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteProgram(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type programRequest struct {
	ProgramID   string            `json:"programId,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func (r programRequest) toInput() application.ProgramInput {
	return application.ProgramInput{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Tags:        append([]string(nil), r.Tags...),
		Extra:       r.Extra,
	}
}

type programDTO struct {
	ProgramID   string            `json:"programId"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

type listProgramsResponse struct {
	Programs []programDTO `json:"programs"`
}

func toProgramDTO(program persistence.Program) programDTO {
	return programDTO{
		ProgramID:   program.ID,
		Name:        program.Name,
		Description: program.Description,
		Tags:        append([]string(nil), program.Tags...),
		Extra:       program.Extra,
		CreatedAt:   formatTimestamp(program.CreatedAt),
		UpdatedAt:   formatTimestamp(program.UpdatedAt),
	}
}

func toProgramDTOs(programs []persistence.Program) []programDTO {
	if len(programs) == 0 {
		return nil
	}
	out := make([]programDTO, 0, len(programs))
	for _, program := range programs {
		out = append(out, toProgramDTO(program))
	}
	return out
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func timestampPtr(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return formatTimestamp(*ts)
}
