package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Envelope is the wire shape shared by inbound and outbound events.
type Envelope struct {
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// NewEnvelope marshals detail into an envelope.
func NewEnvelope(source, detailType string, detail any) (Envelope, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode event detail: %w", err)
	}
	return Envelope{Source: source, DetailType: detailType, Detail: raw}, nil
}

// Publisher emits events to the bus.
type Publisher interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// Handler consumes one event. A handler must absorb its own failures; a
// returned error is logged by the bus, not redelivered.
type Handler func(ctx context.Context, envelope Envelope) error

// Bus is an in-process event bus dispatching envelopes to handlers by
// detail-type. Delivery is synchronous and at-least-once from the caller's
// point of view; handlers are expected to be idempotent.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a detail-type.
func (b *Bus) Subscribe(detailType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[detailType] = append(b.handlers[detailType], handler)
}

// Publish dispatches the envelope to every handler subscribed to its
// detail-type. Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, envelope Envelope) error {
	b.mu.RLock()
	handlers := b.handlers[envelope.DetailType]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, envelope); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"detail_type", envelope.DetailType, "source", envelope.Source, "error", err)
		}
	}
	return nil
}
