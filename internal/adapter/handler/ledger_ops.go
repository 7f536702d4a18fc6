package handler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/metrics"
)

type EventSink interface {
	Enqueue(event domain.Event) bool
}

// Services is what both transports call into. The ledger calls go through
// the methods below so every transition is counted and announced the same
// way whichever transport carried it.
type Services struct {
	Ledger  *service.StockLedger
	Catalog *service.Catalog
	Auth    *service.Auth
	Payment *service.PaymentVerifier
	Events  EventSink
	Metrics *metrics.Metrics
}

func (s *Services) createOrder(ctx context.Context, itemID string, quantity int, employeeID string) (*domain.Order, error) {
	order, err := s.Ledger.CreateOrder(ctx, itemID, quantity, employeeID)
	s.Metrics.LedgerTransition("create_order", outcome(err))
	if err != nil {
		return nil, err
	}
	s.emit(orderEvent(domain.EventOrderCreated, *order, nil))
	return order, nil
}

func (s *Services) decideOrder(ctx context.Context, orderID string, decision domain.OrderStatus) (*service.OrderResult, error) {
	res, err := s.Ledger.ApproveOrder(ctx, orderID, decision)
	s.Metrics.LedgerTransition("approve_order", outcome(err))
	if err != nil {
		return nil, err
	}
	eventType := domain.EventOrderApproved
	if res.Order.Status == domain.OrderStatusRejected {
		eventType = domain.EventOrderRejected
	}
	s.emit(orderEvent(eventType, res.Order, res.Item))
	return res, nil
}

func (s *Services) createReplenishment(ctx context.Context, itemID string, quantity int, supplierID, requestedBy string) (*domain.Replenishment, error) {
	r, err := s.Ledger.CreateReplenishmentRequest(ctx, itemID, quantity, supplierID, requestedBy)
	s.Metrics.LedgerTransition("create_replenishment", outcome(err))
	if err != nil {
		return nil, err
	}
	s.emit(replenishmentEvent(domain.EventReplenishmentRequested, *r, nil))
	return r, nil
}

func (s *Services) approveReplenishment(ctx context.Context, requestID string) (*service.ReplenishmentResult, error) {
	res, err := s.Ledger.ApproveReplenishment(ctx, requestID)
	s.Metrics.LedgerTransition("approve_replenishment", outcome(err))
	if err != nil {
		return nil, err
	}
	s.emit(replenishmentEvent(domain.EventReplenishmentApproved, res.Replenishment, res.Item))
	return res, nil
}

func (s *Services) markPaid(ctx context.Context, requestID string) (*domain.Replenishment, error) {
	r, err := s.Ledger.MarkReplenishmentPaid(ctx, requestID)
	s.Metrics.LedgerTransition("mark_paid", outcome(err))
	if err != nil {
		return nil, err
	}
	s.emit(replenishmentEvent(domain.EventReplenishmentPaid, *r, nil))
	return r, nil
}

func (s *Services) verifyPayment(ctx context.Context, c service.PaymentConfirmation) (*domain.Replenishment, error) {
	r, err := s.Payment.Verify(ctx, c)
	s.Metrics.LedgerTransition("verify_payment", outcome(err))
	if err != nil {
		return nil, err
	}
	s.emit(replenishmentEvent(domain.EventReplenishmentPaid, *r, nil))
	return r, nil
}

func (s *Services) emit(event domain.Event) {
	if s.Events != nil {
		s.Events.Enqueue(event)
	}
}

func orderEvent(t domain.EventType, o domain.Order, item *domain.Item) domain.Event {
	e := domain.Event{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: o.ID,
		ItemID:      o.ItemID,
		Quantity:    o.Quantity,
		Status:      string(o.Status),
		OccurredAt:  time.Now().UTC(),
	}
	if item != nil {
		e.StockAfter = item.Quantity
	}
	return e
}

func replenishmentEvent(t domain.EventType, r domain.Replenishment, item *domain.Item) domain.Event {
	e := domain.Event{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: r.ID,
		ItemID:      r.ItemID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		OccurredAt:  time.Now().UTC(),
	}
	if item != nil {
		e.StockAfter = item.Quantity
	}
	return e
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	case errors.Is(err, service.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, service.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, service.ErrValidation):
		return "invalid"
	case errors.Is(err, service.ErrInvalidSignature), errors.Is(err, service.ErrDuplicatePayment):
		return "rejected"
	default:
		return "error"
	}
}
