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

type scheduleService interface {
	CreateSchedule(ctx context.Context, principal application.Principal, input application.ScheduleInput) (persistence.Schedule, error)
	GetSchedule(ctx context.Context, principal application.Principal, id string) (persistence.Schedule, error)
	UpdateSchedule(ctx context.Context, principal application.Principal, id string, input application.ScheduleInput) (persistence.Schedule, error)
	DeleteSchedule(ctx context.Context, principal application.Principal, id string) error
	ListSchedules(ctx context.Context, principal application.Principal, filter persistence.ScheduleFilter) ([]persistence.Schedule, error)
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, responder: newResponder(logger)}
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	if id := strings.TrimSpace(query.Get("scheduleId")); id != "" {
		schedule, err := h.service.GetSchedule(r.Context(), principal, id)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, toScheduleDTO(schedule))
		return
	}

	filter := persistence.ScheduleFilter{
		HostID: strings.TrimSpace(query.Get("hostId")),
	}
	if programID := strings.TrimSpace(query.Get("programId")); programID != "" {
		filter.ProgramIDs = parseCSV(programID)
	}

	schedules, err := h.service.ListSchedules(r.Context(), principal, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{Schedules: toScheduleDTOs(schedules)})
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	schedule, err := h.service.CreateSchedule(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toScheduleDTO(schedule))
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.ScheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	schedule, err := h.service.UpdateSchedule(r.Context(), principal, strings.TrimSpace(req.ScheduleID), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toScheduleDTO(schedule))
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("scheduleId"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingScheduleID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteSchedule(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type hostDTO struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
}

func toHosts(hosts []hostDTO) []persistence.Host {
	if len(hosts) == 0 {
		return nil
	}
	out := make([]persistence.Host, 0, len(hosts))
	for _, host := range hosts {
		out = append(out, persistence.Host{
			ID:   strings.TrimSpace(host.ID),
			Type: strings.TrimSpace(host.Type),
			Role: strings.TrimSpace(host.Role),
		})
	}
	return out
}

func toHostDTOs(hosts []persistence.Host) []hostDTO {
	if len(hosts) == 0 {
		return nil
	}
	out := make([]hostDTO, 0, len(hosts))
	for _, host := range hosts {
		out = append(out, hostDTO{ID: host.ID, Type: host.Type, Role: host.Role})
	}
	return out
}

type scheduleRequest struct {
	ScheduleID   string            `json:"scheduleId,omitempty"`
	Type         string            `json:"type"`
	ProgramID    *string           `json:"programId,omitempty"`
	LocationID   *string           `json:"locationId,omitempty"`
	Start        string            `json:"start"`
	End          string            `json:"end"`
	Timezone     string            `json:"timezone"`
	IsRecurring  bool              `json:"isRecurring"`
	RRule        *string           `json:"rrule,omitempty"`
	BaseCapacity *int              `json:"baseCapacity,omitempty"`
	Hosts        []hostDTO         `json:"hosts,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func (r scheduleRequest) toInput() application.ScheduleInput {
	return application.ScheduleInput{
		Type:         strings.TrimSpace(r.Type),
		ProgramID:    r.ProgramID,
		LocationID:   r.LocationID,
		Start:        strings.TrimSpace(r.Start),
		End:          strings.TrimSpace(r.End),
		Timezone:     strings.TrimSpace(r.Timezone),
		IsRecurring:  r.IsRecurring,
		RRule:        r.RRule,
		BaseCapacity: r.BaseCapacity,
		Hosts:        toHosts(r.Hosts),
		Tags:         append([]string(nil), r.Tags...),
		Extra:        r.Extra,
	}
}

type scheduleDTO struct {
	ScheduleID   string            `json:"scheduleId"`
	Type         string            `json:"type"`
	ProgramID    *string           `json:"programId,omitempty"`
	LocationID   *string           `json:"locationId,omitempty"`
	Start        string            `json:"start"`
	End          string            `json:"end"`
	Timezone     string            `json:"timezone"`
	IsRecurring  bool              `json:"isRecurring"`
	RRule        *string           `json:"rrule,omitempty"`
	BaseCapacity *int              `json:"baseCapacity,omitempty"`
	Hosts        []hostDTO         `json:"hosts,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
	CreatedAt    string            `json:"createdAt"`
	UpdatedAt    string            `json:"updatedAt"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
}

func toScheduleDTO(schedule persistence.Schedule) scheduleDTO {
	return scheduleDTO{
		ScheduleID:   schedule.ID,
		Type:         schedule.Type,
		ProgramID:    schedule.ProgramID,
		LocationID:   schedule.LocationID,
		Start:        schedule.StartLocal,
		End:          schedule.EndLocal,
		Timezone:     schedule.Timezone,
		IsRecurring:  schedule.IsRecurring,
		RRule:        schedule.RRule,
		BaseCapacity: schedule.BaseCapacity,
		Hosts:        toHostDTOs(schedule.Hosts),
		Tags:         append([]string(nil), schedule.Tags...),
		Extra:        schedule.Extra,
		CreatedAt:    formatTimestamp(schedule.CreatedAt),
		UpdatedAt:    formatTimestamp(schedule.UpdatedAt),
	}
}

func toScheduleDTOs(schedules []persistence.Schedule) []scheduleDTO {
	if len(schedules) == 0 {
		return nil
	}
	out := make([]scheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(schedule))
	}
	return out
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
