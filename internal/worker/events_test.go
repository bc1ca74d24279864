package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/messaging"
	redisbroker "github.com/jwalitptl/medinfo-api/pkg/messaging/redis"
)

type chanBroker struct {
	ch chan []byte
}

func (b *chanBroker) Publish(context.Context, string, interface{}) error { return nil }

func (b *chanBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *chanBroker) Close() error { return nil }

func TestEventWorker_Process(t *testing.T) {
	b := &chanBroker{ch: make(chan []byte, 4)}
	w := NewEventWorker(b, "events", "test", prometheus.NewRegistry(), zerolog.Nop())

	var seen []string
	w.Handle(model.EventMedicineCreated, func(_ context.Context, evt *model.Event, payload json.RawMessage) error {
		var p model.MedicineCreatedPayload
		require.NoError(t, json.Unmarshal(payload, &p))
		seen = append(seen, p.NormalizedName)
		return nil
	})
	w.Handle(model.EventUserRegistered, func(context.Context, *model.Event, json.RawMessage) error {
		return stderrors.New("boom")
	})

	b.ch <- []byte(`{"type":"medicine.created","occurredAt":"2024-01-01T00:00:00Z","payload":{"id":"1","normalizedName":"paracetamol","source":"ai"}}`)
	b.ch <- []byte(`{"type":"user.registered","payload":{"id":"u1","provider":"local"}}`)
	b.ch <- []byte(`{"type":"other","payload":{}}`)
	b.ch <- []byte(`not json`)
	close(b.ch)

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, []string{"paracetamol"}, seen)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.consumed.WithLabelValues("medicine.created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.consumed.WithLabelValues("user.registered", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.consumed.WithLabelValues("other", "ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.consumed.WithLabelValues("unknown", "malformed")))
}

func TestEventWorker_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	broker := redisbroker.NewRedisBroker(client, zerolog.Nop())
	w := NewEventWorker(broker, "medinfo.events", "test", nil, zerolog.Nop())
	w.Handle(model.EventMedicineCreated, LogMedicineCreated(zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("medinfo.events")["medinfo.events"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	pub := messaging.NewEventPublisher(broker, "medinfo.events")
	require.NoError(t, pub.Publish(ctx, model.EventMedicineCreated, model.MedicineCreatedPayload{
		ID: "42", NormalizedName: "ibuprofen", Source: "ai",
	}))

	counter := w.consumed.WithLabelValues(model.EventMedicineCreated, "ok")
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(counter) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
