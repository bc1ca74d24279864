// Package worker consumes domain events published on the message broker.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/messaging"
)

// HandlerFunc processes one decoded event. Payload is the raw JSON payload.
type HandlerFunc func(ctx context.Context, evt *model.Event, payload json.RawMessage) error

type EventWorker struct {
	broker   messaging.Broker
	channel  string
	handlers map[string]HandlerFunc
	consumed *prometheus.CounterVec
	logger   zerolog.Logger
}

// NewEventWorker registers its counter with reg when reg is not nil.
func NewEventWorker(broker messaging.Broker, channel, namespace string, reg prometheus.Registerer, logger zerolog.Logger) *EventWorker {
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_consumed_total",
		Help:      "Domain events consumed from the broker by type and result",
	}, []string{"type", "result"})
	if reg != nil {
		reg.MustRegister(consumed)
	}
	return &EventWorker{
		broker:   broker,
		channel:  channel,
		handlers: map[string]HandlerFunc{},
		consumed: consumed,
		logger:   logger,
	}
}

// Handle sets the handler for an event type. Events without a handler are
// logged and counted.
func (w *EventWorker) Handle(eventType string, fn HandlerFunc) {
	w.handlers[eventType] = fn
}

// Run consumes until ctx is done or the subscription closes.
func (w *EventWorker) Run(ctx context.Context) error {
	msgs, err := w.broker.Subscribe(ctx, w.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	w.logger.Info().Str("channel", w.channel).Msg("event worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.process(ctx, msg)
		}
	}
}

func (w *EventWorker) process(ctx context.Context, msg []byte) {
	var envelope struct {
		model.Event
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		w.consumed.WithLabelValues("unknown", "malformed").Inc()
		w.logger.Warn().Err(err).Msg("dropping malformed event")
		return
	}
	evt := envelope.Event
	evt.Payload = envelope.Payload

	log := w.logger.With().Str("event", evt.Type).Time("occurred_at", evt.OccurredAt).Logger()

	fn, ok := w.handlers[evt.Type]
	if !ok {
		w.consumed.WithLabelValues(evt.Type, "ignored").Inc()
		log.Debug().RawJSON("payload", envelope.Payload).Msg("event received")
		return
	}
	if err := fn(ctx, &evt, envelope.Payload); err != nil {
		w.consumed.WithLabelValues(evt.Type, "failed").Inc()
		log.Error().Err(err).Msg("event handler failed")
		return
	}
	w.consumed.WithLabelValues(evt.Type, "ok").Inc()
}

// LogMedicineCreated records each newly generated medicine record.
func LogMedicineCreated(logger zerolog.Logger) HandlerFunc {
	return func(_ context.Context, _ *model.Event, payload json.RawMessage) error {
		var p model.MedicineCreatedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
		logger.Info().Str("id", p.ID).Str("medicine", p.NormalizedName).Str("source", p.Source).Msg("medicine record created")
		return nil
	}
}

// LogUserRegistered records each new account.
func LogUserRegistered(logger zerolog.Logger) HandlerFunc {
	return func(_ context.Context, _ *model.Event, payload json.RawMessage) error {
		var p model.UserRegisteredPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
		logger.Info().Str("user_id", p.ID).Str("provider", p.Provider).Msg("user registered")
		return nil
	}
}
