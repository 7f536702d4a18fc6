package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

var _ port.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.Event) error {
	p.logger.Info("ledger event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("aggregate_id", event.AggregateID),
		zap.String("item_id", event.ItemID),
		zap.Int("quantity", event.Quantity),
		zap.String("status", event.Status),
		zap.Int("stock_after", event.StockAfter),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
