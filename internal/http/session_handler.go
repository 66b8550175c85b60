package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
)

type sessionService interface {
	QuerySessions(ctx context.Context, principal application.Principal, query application.SessionQuery) ([]application.Session, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	values := r.URL.Query()

	query := application.SessionQuery{
		SessionID:  strings.TrimSpace(values.Get("sessionId")),
		StartDate:  strings.TrimSpace(values.Get("startDate")),
		EndDate:    strings.TrimSpace(values.Get("endDate")),
		Type:       strings.TrimSpace(values.Get("type")),
		HostID:     strings.TrimSpace(values.Get("hostId")),
		LocationID: strings.TrimSpace(values.Get("locationId")),
		StartTime:  strings.TrimSpace(values.Get("startTime")),
		EndTime:    strings.TrimSpace(values.Get("endTime")),
	}
	if programIDs := strings.TrimSpace(values.Get("programId")); programIDs != "" {
		query.ProgramIDs = parseCSV(programIDs)
	}

	if query.SessionID == "" && (query.StartDate == "" || query.EndDate == "") {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingSessionRange)
		return
	}

	sessions, err := h.service.QuerySessions(r.Context(), principal, query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

type sessionDTO struct {
	SessionID     string    `json:"sessionId"`
	ScheduleID    string    `json:"scheduleId"`
	Date          string    `json:"date"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	Timezone      string    `json:"timezone"`
	Type          string    `json:"type"`
	ProgramID     *string   `json:"programId,omitempty"`
	LocationID    *string   `json:"locationId,omitempty"`
	Hosts         []hostDTO `json:"hosts,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Capacity      *int      `json:"capacity,omitempty"`
	BookedCount   int       `json:"bookedCount"`
	WaitlistCount int       `json:"waitlistCount"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

func toSessionDTO(session application.Session) sessionDTO {
	return sessionDTO{
		SessionID:     session.ID,
		ScheduleID:    session.ScheduleID,
		Date:          session.Date,
		Start:         formatTimestamp(session.Start),
		End:           formatTimestamp(session.End),
		Timezone:      session.Timezone,
		Type:          session.Type,
		ProgramID:     session.ProgramID,
		LocationID:    session.LocationID,
		Hosts:         toHostDTOs(session.Hosts),
		Tags:          append([]string(nil), session.Tags...),
		Capacity:      session.Capacity,
		BookedCount:   session.BookedCount,
		WaitlistCount: session.WaitlistCount,
	}
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}
