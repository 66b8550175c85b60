package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/persistence"
)

type exceptionService interface {
	CreateException(ctx context.Context, principal application.Principal, input application.ExceptionInput) (persistence.ScheduleException, error)
	GetException(ctx context.Context, principal application.Principal, scheduleID, occurrenceDate string) (persistence.ScheduleException, error)
	UpdateException(ctx context.Context, principal application.Principal, input application.ExceptionInput) (persistence.ScheduleException, error)
	DeleteException(ctx context.Context, principal application.Principal, scheduleID, occurrenceDate string) error
	ListExceptions(ctx context.Context, principal application.Principal, scheduleID, startDate, endDate string) ([]persistence.ScheduleException, error)
}

type ExceptionHandler struct {
	service   exceptionService
	responder responder
}

func NewExceptionHandler(service exceptionService, logger *slog.Logger) *ExceptionHandler {
	return &ExceptionHandler{service: service, responder: newResponder(logger)}
}

func (h *ExceptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	scheduleID := strings.TrimSpace(query.Get("scheduleId"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingScheduleID)
		return
	}

	if date := strings.TrimSpace(query.Get("occurrenceDate")); date != "" {
		exception, err := h.service.GetException(r.Context(), principal, scheduleID, date)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, toExceptionDTO(exception))
		return
	}

	exceptions, err := h.service.ListExceptions(r.Context(), principal, scheduleID,
		strings.TrimSpace(query.Get("startDate")), strings.TrimSpace(query.Get("endDate")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listExceptionsResponse{Exceptions: toExceptionDTOs(exceptions)})
}

func (h *ExceptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	exception, err := h.service.CreateException(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toExceptionDTO(exception))
}

func (h *ExceptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req exceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	exception, err := h.service.UpdateException(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toExceptionDTO(exception))
}

func (h *ExceptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	scheduleID := strings.TrimSpace(query.Get("scheduleId"))
	occurrenceDate := strings.TrimSpace(query.Get("occurrenceDate"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingScheduleID)
		return
	}
	if occurrenceDate == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingOccurrence)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteException(r.Context(), principal, scheduleID, occurrenceDate); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type exceptionRequest struct {
	ScheduleID         string    `json:"scheduleId"`
	OccurrenceDate     string    `json:"occurrenceDate"`
	Type               string    `json:"type"`
	OverrideStart      *string   `json:"overrideStart,omitempty"`
	OverrideEnd        *string   `json:"overrideEnd,omitempty"`
	OverrideCapacity   *int      `json:"overrideCapacity,omitempty"`
	OverrideHosts      []hostDTO `json:"overrideHosts,omitempty"`
	OverrideLocationID *string   `json:"overrideLocationId,omitempty"`
}

func (r exceptionRequest) toInput() application.ExceptionInput {
	return application.ExceptionInput{
		ScheduleID:         strings.TrimSpace(r.ScheduleID),
		OccurrenceDate:     strings.TrimSpace(r.OccurrenceDate),
		Type:               strings.TrimSpace(r.Type),
		OverrideStart:      r.OverrideStart,
		OverrideEnd:        r.OverrideEnd,
		OverrideCapacity:   r.OverrideCapacity,
		OverrideHosts:      toHosts(r.OverrideHosts),
		OverrideLocationID: r.OverrideLocationID,
	}
}

type exceptionDTO struct {
	ScheduleID         string    `json:"scheduleId"`
	OccurrenceDate     string    `json:"occurrenceDate"`
	Type               string    `json:"type"`
	OverrideStart      *string   `json:"overrideStart,omitempty"`
	OverrideEnd        *string   `json:"overrideEnd,omitempty"`
	OverrideCapacity   *int      `json:"overrideCapacity,omitempty"`
	OverrideHosts      []hostDTO `json:"overrideHosts,omitempty"`
	OverrideLocationID *string   `json:"overrideLocationId,omitempty"`
	CreatedAt          string    `json:"createdAt"`
	UpdatedAt          string    `json:"updatedAt"`
}

type listExceptionsResponse struct {
	Exceptions []exceptionDTO `json:"exceptions"`
}

func toExceptionDTO(exception persistence.ScheduleException) exceptionDTO {
	return exceptionDTO{
		ScheduleID:         exception.ScheduleID,
		OccurrenceDate:     exception.OccurrenceDate,
		Type:               exception.Type,
		OverrideStart:      exception.OverrideStart,
		OverrideEnd:        exception.OverrideEnd,
		OverrideCapacity:   exception.OverrideCapacity,
		OverrideHosts:      toHostDTOs(exception.OverrideHosts),
		OverrideLocationID: exception.OverrideLocationID,
		CreatedAt:          formatTimestamp(exception.CreatedAt),
		UpdatedAt:          formatTimestamp(exception.UpdatedAt),
	}
}

func toExceptionDTOs(exceptions []persistence.ScheduleException) []exceptionDTO {
	if len(exceptions) == 0 {
		return nil
	}
	out := make([]exceptionDTO, 0, len(exceptions))
	for _, exception := range exceptions {
		out = append(out, toExceptionDTO(exception))
	}
	return out
}
