package port

import (
	"context"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}
