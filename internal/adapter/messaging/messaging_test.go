package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

type mockPublisher struct {
	mu      sync.Mutex
	events  []domain.Event
	fail    bool
	closed  bool
	release chan struct{}
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) EventDelivered(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

func (r *countingRecorder) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	pub := &mockPublisher{}
	rec := &countingRecorder{}
	d := NewDispatcher(pub, 100, 3, zap.NewNop(), rec)

	for i := 0; i < 50; i++ {
		require.True(t, d.Enqueue(domain.Event{ID: strconv.Itoa(i), Type: domain.EventOrderCreated}))
	}
	require.NoError(t, d.Close())

	assert.Len(t, pub.events, 50)
	assert.True(t, pub.closed)
	assert.Equal(t, 50, rec.count("published"))

	assert.False(t, d.Enqueue(domain.Event{ID: "late"}))
	assert.Equal(t, 1, rec.count("dropped"))
	assert.NoError(t, d.Close())
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	pub := &mockPublisher{release: make(chan struct{})}
	rec := &countingRecorder{}
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(pub, 1, 1, zap.New(core), rec)

	// worker takes the first and blocks, the second fills the queue
	require.True(t, d.Enqueue(domain.Event{ID: "1"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, d.Enqueue(domain.Event{ID: "2"}))

	assert.False(t, d.Enqueue(domain.Event{ID: "3"}))
	assert.Equal(t, 1, rec.count("dropped"))
	assert.Equal(t, 1, logs.FilterMessage("event dropped").Len())

	close(pub.release)
	require.NoError(t, d.Close())
	assert.Len(t, pub.events, 2)
}

func TestDispatcher_PublishFailureIsCounted(t *testing.T) {
	pub := &mockPublisher{fail: true}
	rec := &countingRecorder{}
	d := NewDispatcher(pub, 10, 1, zap.NewNop(), rec)

	d.Enqueue(domain.Event{ID: "1"})
	require.NoError(t, d.Close())

	assert.Equal(t, 1, rec.count("failed"))
	assert.Equal(t, 0, rec.count("published"))
}

type mockWriter struct {
	msgs []kafka.Message
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByItem(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{w: w}

	event := domain.Event{ID: "e1", Type: domain.EventOrderApproved, ItemID: "item-9", Quantity: 4, StockAfter: 6}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "item-9", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, string(domain.EventOrderApproved), string(w.msgs[0].Headers[0].Value))

	var got domain.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, 6, got.StockAfter)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), domain.Event{ID: "e1", Type: domain.EventReplenishmentPaid}))
	entries := logs.FilterMessage("ledger event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "replenishment.paid", entries[0].ContextMap()["type"])
}
