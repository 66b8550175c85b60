package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/persistence"
)

type bookingService interface {
	CreateBooking(ctx context.Context, principal application.Principal, input application.BookingInput) (persistence.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) (persistence.Booking, error)
	ListSessionBookings(ctx context.Context, principal application.Principal, sessionID string) ([]persistence.Booking, error)
	ListSubjectBookings(ctx context.Context, principal application.Principal, filter persistence.BookingFilter) ([]persistence.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, responder: newResponder(logger)}
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	if sessionID := strings.TrimSpace(query.Get("sessionId")); sessionID != "" {
		bookings, err := h.service.ListSessionBookings(r.Context(), principal, sessionID)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
		return
	}

	filter := persistence.BookingFilter{
		Status: strings.TrimSpace(query.Get("status")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	bookings, err := h.service.ListSubjectBookings(r.Context(), principal, filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, err := h.service.CreateBooking(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingDTO(booking))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := strings.TrimSpace(r.URL.Query().Get("bookingId"))
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, err := h.service.CancelBooking(r.Context(), principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

type bookingRequest struct {
	SessionID   string            `json:"sessionId"`
	SubjectID   string            `json:"subjectId,omitempty"`
	SubjectType string            `json:"subjectType,omitempty"`
	Source      string            `json:"source,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		SessionID:   strings.TrimSpace(r.SessionID),
		SubjectID:   strings.TrimSpace(r.SubjectID),
		SubjectType: strings.TrimSpace(r.SubjectType),
		Source:      strings.TrimSpace(r.Source),
		Notes:       r.Notes,
		Extra:       r.Extra,
	}
}

type bookingDTO struct {
	BookingID   string            `json:"bookingId"`
	SessionID   string            `json:"sessionId"`
	SubjectID   string            `json:"subjectId"`
	SubjectType string            `json:"subjectType"`
	Status      string            `json:"status"`
	Source      string            `json:"source,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	CreatedAt   string            `json:"createdAt"`
	CancelledAt string            `json:"cancelledAt,omitempty"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

func toBookingDTO(booking persistence.Booking) bookingDTO {
	return bookingDTO{
		BookingID:   booking.ID,
		SessionID:   booking.SessionID,
		SubjectID:   booking.SubjectID,
		SubjectType: booking.SubjectType,
		Status:      booking.Status,
		Source:      booking.Source,
		Notes:       booking.Notes,
		Extra:       booking.Extra,
		CreatedAt:   formatTimestamp(booking.CreatedAt),
		CancelledAt: timestampPtr(booking.CancelledAt),
	}
}

func toBookingDTOs(bookings []persistence.Booking) []bookingDTO {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}
