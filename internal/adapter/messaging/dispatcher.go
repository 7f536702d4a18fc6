package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

const publishTimeout = 5 * time.Second

type deliveryRecorder interface {
	EventDelivered(outcome string)
}

// Dispatcher hands ledger events to a publisher from a fixed pool of
// workers, so a slow broker never holds up a request.
type Dispatcher struct {
	queue     chan domain.Event
	publisher port.EventPublisher
	logger    *zap.Logger
	recorder  deliveryRecorder

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(publisher port.EventPublisher, queueSize, workers int, logger *zap.Logger, recorder deliveryRecorder) *Dispatcher {
	d := &Dispatcher{
		queue:     make(chan domain.Event, queueSize),
		publisher: publisher,
		logger:    logger,
		recorder:  recorder,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	return d
}

// Enqueue never blocks. It reports false when the event was dropped because
// the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(event domain.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		d.drop(event, "queue full")
		return false
	}
}

// Close stops accepting events, waits for the queue to drain and closes the
// publisher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return d.publisher.Close()
}

func (d *Dispatcher) workerLoop(id int) {
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.publisher.Publish(ctx, event)
		cancel()

		if err != nil {
			d.recorder.EventDelivered("failed")
			d.logger.Error("publish event failed",
				zap.Int("worker", id),
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
			continue
		}
		d.recorder.EventDelivered("published")
	}
}

func (d *Dispatcher) drop(event domain.Event, reason string) {
	d.recorder.EventDelivered("dropped")
	d.logger.Warn("event dropped",
		zap.String("reason", reason),
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
	)
}
