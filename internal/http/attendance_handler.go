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

type attendanceService interface {
	CheckIn(ctx context.Context, principal application.Principal, input application.CheckInInput) (application.CheckInResult, error)
	Override(ctx context.Context, principal application.Principal, input application.AttendanceOverrideInput) (persistence.AttendanceRecord, error)
	ListSessionAttendance(ctx context.Context, principal application.Principal, sessionID string) ([]persistence.AttendanceRecord, error)
	ListSubjectAttendance(ctx context.Context, principal application.Principal) ([]persistence.AttendanceRecord, error)
}

type AttendanceHandler struct {
	service   attendanceService
	responder responder
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: service, responder: newResponder(logger)}
}

func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var records []persistence.AttendanceRecord
	var err error
	if sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId")); sessionID != "" {
		records, err = h.service.ListSessionAttendance(r.Context(), principal, sessionID)
	} else {
		records, err = h.service.ListSubjectAttendance(r.Context(), principal)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttendanceResponse{Records: toAttendanceDTOs(records)})
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.CheckIn(r.Context(), principal, application.CheckInInput{
		BookingID: strings.TrimSpace(req.BookingID),
		Lat:       req.Lat,
		Lng:       req.Lng,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := checkInResponse{
		Record:         toAttendanceDTO(result.Record),
		DistanceMeters: result.DistanceMeters,
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, payload)
}

func (h *AttendanceHandler) Override(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	record, err := h.service.Override(r.Context(), principal, application.AttendanceOverrideInput{
		SessionID: strings.TrimSpace(req.SessionID),
		BookingID: strings.TrimSpace(req.BookingID),
		Status:    strings.TrimSpace(req.Status),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAttendanceDTO(record))
}

type checkInRequest struct {
	BookingID string   `json:"bookingId"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
}

type overrideRequest struct {
	SessionID string `json:"sessionId"`
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

type attendanceDTO struct {
	SessionID     string   `json:"sessionId"`
	BookingID     string   `json:"bookingId"`
	SubjectID     string   `json:"subjectId"`
	Status        string   `json:"status"`
	CheckInTime   string   `json:"checkInTime,omitempty"`
	CheckInMethod string   `json:"checkInMethod,omitempty"`
	CheckInLat    *float64 `json:"checkInLat,omitempty"`
	CheckInLng    *float64 `json:"checkInLng,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

type checkInResponse struct {
	Record         attendanceDTO `json:"record"`
	DistanceMeters *float64      `json:"distanceMeters,omitempty"`
}

type listAttendanceResponse struct {
	Records []attendanceDTO `json:"records"`
}

func toAttendanceDTO(record persistence.AttendanceRecord) attendanceDTO {
	return attendanceDTO{
		SessionID:     record.SessionID,
		BookingID:     record.BookingID,
		SubjectID:     record.SubjectID,
		Status:        record.Status,
		CheckInTime:   timestampPtr(record.CheckInTime),
		CheckInMethod: record.CheckInMethod,
		CheckInLat:    record.CheckInLat,
		CheckInLng:    record.CheckInLng,
		CreatedAt:     formatTimestamp(record.CreatedAt),
		UpdatedAt:     formatTimestamp(record.UpdatedAt),
	}
}

func toAttendanceDTOs(records []persistence.AttendanceRecord) []attendanceDTO {
	if len(records) == 0 {
		return nil
	}
	out := make([]attendanceDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toAttendanceDTO(record))
	}
	return out
}
