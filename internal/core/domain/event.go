package domain

import "time"

type EventType string

const (
	EventOrderCreated           EventType = "order.created"
	EventOrderApproved          EventType = "order.approved"
	EventOrderRejected          EventType = "order.rejected"
	EventReplenishmentRequested EventType = "replenishment.requested"
	EventReplenishmentApproved  EventType = "replenishment.approved"
	EventReplenishmentPaid      EventType = "replenishment.paid"
)

// Event records one ledger transition for downstream consumers.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	ItemID      string    `json:"item_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	// StockAfter is the item quantity after the transition, zero when the
	// transition does not touch stock.
	StockAfter int       `json:"stock_after"`
	OccurredAt time.Time `json:"occurred_at"`
}
