package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
)

var (
	errBadRequestBody      = errors.New("invalid request body")
	errMissingTenant       = errors.New("tenant could not be determined from the request")
	errMissingBookingID    = errors.New("bookingId is required")
	errMissingScheduleID   = errors.New("scheduleId is required")
	errMissingOccurrence   = errors.New("occurrenceDate is required")
	errMissingSessionRange = errors.New("either sessionId or startDate and endDate are required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

// handleServiceError translates the service error taxonomy into an HTTP
// status and an {"error": message} body.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrAtCapacity),
		errors.Is(err, application.ErrAlreadyBooked),
		errors.Is(err, application.ErrAlreadyCheckedIn),
		errors.Is(err, application.ErrAlreadyCancelled),
		errors.Is(err, application.ErrAlreadyExists),
		errors.Is(err, application.ErrStoreConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrTooEarly),
		errors.Is(err, application.ErrTooLate),
		errors.Is(err, application.ErrOutOfRange),
		errors.Is(err, application.ErrRangeTooLarge):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
				Error:  vErr.Error(),
				Fields: vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error",
			"error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
