package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/timeutil"
)

// Inbound and outbound detail-types.
const (
	DetailBookingRequested      = "scheduling.booking_requested"
	DetailBookingConfirmed      = "scheduling.booking_confirmed"
	DetailBookingFailed         = "scheduling.booking_failed"
	DetailConsultationRequested = "appointment.consultation_requested"
	DetailAppointmentScheduled  = "appointment.scheduled"
	DetailAppointmentFailed     = "appointment.failed"
)

// EventSource identifies this system on outbound envelopes.
const EventSource = "studio-scheduler"

// BookingCreator is the slice of the booking service the worker drives.
type BookingCreator interface {
	CreateBookingIdempotent(ctx context.Context, principal application.Principal, input application.BookingInput) (application.BookingResult, error)
}

// Worker consumes booking-request events, drives the booking engine, and
// emits exactly one result event per request. It never propagates errors to
// the transport; every failure becomes a _failed event.
type Worker struct {
	bookings  BookingCreator
	sessions  application.SessionResolver
	publisher Publisher
	logger    *slog.Logger
}

// NewWorker wires the event ingress.
func NewWorker(bookings BookingCreator, sessions application.SessionResolver, publisher Publisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		bookings:  bookings,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// Register subscribes the worker's handlers on the bus.
func (w *Worker) Register(bus *Bus) {
	bus.Subscribe(DetailBookingRequested, w.HandleBookingRequested)
	bus.Subscribe(DetailConsultationRequested, w.HandleConsultationRequested)
}

type schedulingData struct {
	SessionID string `json:"sessionId"`
}

type bookingRequestedDetail struct {
	TenantID       string            `json:"tenantId"`
	ChannelID      string            `json:"channelId"`
	SubjectID      string            `json:"subjectId"`
	GoalID         string            `json:"goalId,omitempty"`
	BookingType    string            `json:"bookingType,omitempty"`
	SchedulingData schedulingData    `json:"schedulingData"`
	ContactInfo    map[string]string `json:"contactInfo,omitempty"`
}

type consultationRequestedDetail struct {
	TenantID        string            `json:"tenantId"`
	ChannelID       string            `json:"channelId"`
	LeadID          string            `json:"leadId"`
	GoalID          string            `json:"goalId"`
	AppointmentType string            `json:"appointmentType"`
	SchedulingData  schedulingData    `json:"schedulingData"`
	ContactInfo     map[string]string `json:"contactInfo,omitempty"`
}

type sessionDetails struct {
	SessionID string `json:"sessionId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Timezone  string `json:"timezone"`
}

type resultDetail struct {
	TenantID       string          `json:"tenantId"`
	ChannelID      string          `json:"channelId,omitempty"`
	SubjectID      string          `json:"subjectId,omitempty"`
	BookingID      string          `json:"bookingId,omitempty"`
	GoalID         string          `json:"goalId,omitempty"`
	SessionDetails *sessionDetails `json:"sessionDetails,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// HandleBookingRequested processes one scheduling.booking_requested event.
func (w *Worker) HandleBookingRequested(ctx context.Context, envelope Envelope) error {
	var detail bookingRequestedDetail
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		w.emitFailure(ctx, DetailBookingFailed, resultDetail{Error: "malformed event detail"})
		return nil
	}

	result := resultDetail{
		TenantID:  detail.TenantID,
		ChannelID: detail.ChannelID,
		SubjectID: detail.SubjectID,
		GoalID:    detail.GoalID,
	}
	if msg := requireFields(map[string]string{
		"tenantId":                 detail.TenantID,
		"subjectId":                detail.SubjectID,
		"schedulingData.sessionId": detail.SchedulingData.SessionID,
	}); msg != "" {
		result.Error = msg
		w.emitFailure(ctx, DetailBookingFailed, result)
		return nil
	}

	w.process(ctx, bookingRequest{
		tenantID:    detail.TenantID,
		sessionID:   detail.SchedulingData.SessionID,
		subjectID:   detail.SubjectID,
		subjectType: "MEMBER",
		bookingType: detail.BookingType,
		successType: DetailBookingConfirmed,
		failureType: DetailBookingFailed,
	}, result)
	return nil
}

// HandleConsultationRequested processes one appointment.consultation_requested
// event. The lead stands in as the booking subject.
func (w *Worker) HandleConsultationRequested(ctx context.Context, envelope Envelope) error {
	var detail consultationRequestedDetail
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		w.emitFailure(ctx, DetailAppointmentFailed, resultDetail{Error: "malformed event detail"})
		return nil
	}

	result := resultDetail{
		TenantID:  detail.TenantID,
		ChannelID: detail.ChannelID,
		SubjectID: detail.LeadID,
		GoalID:    detail.GoalID,
	}
	if msg := requireFields(map[string]string{
		"tenantId":                 detail.TenantID,
		"leadId":                   detail.LeadID,
		"schedulingData.sessionId": detail.SchedulingData.SessionID,
	}); msg != "" {
		result.Error = msg
		w.emitFailure(ctx, DetailAppointmentFailed, result)
		return nil
	}

	w.process(ctx, bookingRequest{
		tenantID:    detail.TenantID,
		sessionID:   detail.SchedulingData.SessionID,
		subjectID:   detail.LeadID,
		subjectType: "LEAD",
		bookingType: detail.AppointmentType,
		successType: DetailAppointmentScheduled,
		failureType: DetailAppointmentFailed,
	}, result)
	return nil
}

type bookingRequest struct {
	tenantID    string
	sessionID   string
	subjectID   string
	subjectType string
	bookingType string
	successType string
	failureType string
}

func (w *Worker) process(ctx context.Context, request bookingRequest, result resultDetail) {
	principal := application.Principal{TenantID: request.tenantID, SubjectID: request.subjectID}
	input := application.BookingInput{
		SessionID:   request.sessionID,
		SubjectID:   request.subjectID,
		SubjectType: request.subjectType,
		Source:      "EVENT",
	}
	if request.bookingType != "" {
		input.Extra = map[string]string{"bookingType": request.bookingType}
	}

	created, err := w.bookings.CreateBookingIdempotent(ctx, principal, input)
	if err != nil {
		result.Error = err.Error()
		w.logger.WarnContext(ctx, "booking request failed",
			"tenant_id", request.tenantID, "session_id", request.sessionID,
			"error_kind", application.ErrorKind(err))
		w.emitFailure(ctx, request.failureType, result)
		return
	}

	result.BookingID = created.Booking.ID
	result.SessionDetails = w.describeSession(ctx, request.tenantID, request.sessionID)
	w.emit(ctx, request.successType, result)
}

// describeSession formats the session's local times for the result event.
// Failure here must not fail the booking; the block is simply omitted.
func (w *Worker) describeSession(ctx context.Context, tenantID, sessionID string) *sessionDetails {
	session, err := w.sessions.ResolveSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil
	}
	zone, err := timeutil.LoadZone(session.Timezone)
	if err != nil {
		return nil
	}
	return &sessionDetails{
		SessionID: session.ID,
		Date:      session.Date,
		StartTime: timeutil.FormatLocalTime(session.Start, zone, timeutil.LocalTimeLayout),
		EndTime:   timeutil.FormatLocalTime(session.End, zone, timeutil.LocalTimeLayout),
		Timezone:  session.Timezone,
	}
}

func (w *Worker) emitFailure(ctx context.Context, detailType string, result resultDetail) {
	w.emit(ctx, detailType, result)
}

func (w *Worker) emit(ctx context.Context, detailType string, result resultDetail) {
	envelope, err := NewEnvelope(EventSource, detailType, result)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to encode result event",
			"detail_type", detailType, "error", err)
		return
	}
	if err := w.publisher.Publish(ctx, envelope); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish result event",
			"detail_type", detailType, "error", err)
	}
}

func requireFields(fields map[string]string) string {
	for name, value := range fields {
		if value == "" {
			return "missing required field " + name
		}
	}
	return ""
}
