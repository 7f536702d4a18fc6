package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

// OrderResult carries the order after a decision. Item is set only when the
// decision changed stock.
type OrderResult struct {
	Order domain.Order
	Item  *domain.Item
}

type ReplenishmentResult struct {
	Replenishment domain.Replenishment
	Item          *domain.Item
}

// StockLedger mediates every transition that reads or writes an item's
// quantity. Approvals for one item run under that item's lock, and the
// repository re-checks the stock condition inside the same transaction as
// the status write.
type StockLedger struct {
	repo   port.LedgerRepository
	locker port.ItemLocker
	now    func() time.Time
	newID  func() string
}

func NewStockLedger(repo port.LedgerRepository, locker port.ItemLocker) *StockLedger {
	return &StockLedger{
		repo:   repo,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (l *StockLedger) CreateOrder(ctx context.Context, itemID string, quantity int, employeeID string) (*domain.Order, error) {
	if itemID == "" {
		return nil, invalid("item is required")
	}
	if employeeID == "" {
		return nil, invalid("employee is required")
	}
	if quantity <= 0 {
		return nil, invalid("quantity must be > 0")
	}

	item, err := l.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, notFound("item", itemID)
	}

	employee, err := l.repo.GetUser(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if employee == nil {
		return nil, notFound("user", employeeID)
	}

	order := domain.Order{
		ID:         l.newID(),
		ItemID:     itemID,
		Quantity:   quantity,
		EmployeeID: employeeID,
		Status:     domain.OrderStatusPending,
		CreatedAt:  l.now(),
	}
	if err := l.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// ApproveOrder applies a manager's decision to a pending order. An approval
// that would overdraw the item fails with *InsufficientStockError and leaves
// the order pending.
func (l *StockLedger) ApproveOrder(ctx context.Context, orderID string, decision domain.OrderStatus) (*OrderResult, error) {
	if orderID == "" {
		return nil, invalid("order id is required")
	}
	if decision != domain.OrderStatusApproved && decision != domain.OrderStatusRejected {
		return nil, invalid("status must be %q or %q", domain.OrderStatusApproved, domain.OrderStatusRejected)
	}

	order, err := l.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, notFound("order", orderID)
	}
	if order.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is already %s", ErrInvalidState, order.ID, order.Status)
	}

	if decision == domain.OrderStatusRejected {
		if err := l.repo.RejectOrder(ctx, order.ID); err != nil {
			if errors.Is(err, port.ErrRecordNotFound) {
				return nil, notFound("order", order.ID)
			}
			return nil, translateOrderErr(err, *order, nil)
		}
		order.Status = domain.OrderStatusRejected
		return &OrderResult{Order: *order}, nil
	}

	unlock, err := l.locker.Lock(ctx, order.ItemID)
	if err != nil {
		return nil, fmt.Errorf("lock item %s: %w", order.ItemID, err)
	}
	defer unlock()

	item, err := l.repo.GetItem(ctx, order.ItemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, notFound("item", order.ItemID)
	}
	if item.Quantity < order.Quantity {
		return nil, &InsufficientStockError{ItemID: item.ID, Available: item.Quantity, Requested: order.Quantity}
	}

	updated, err := l.repo.ApproveOrder(ctx, *order)
	if errors.Is(err, port.ErrStockConflict) {
		// another writer got there first; report what is left now
		if current, getErr := l.repo.GetItem(ctx, order.ItemID); getErr == nil && current != nil {
			item = current
		}
	}
	if errors.Is(err, port.ErrRecordNotFound) {
		return nil, l.orderGone(ctx, *order)
	}
	if err != nil {
		return nil, translateOrderErr(err, *order, item)
	}

	order.Status = domain.OrderStatusApproved
	return &OrderResult{Order: *order, Item: updated}, nil
}

func (l *StockLedger) CreateReplenishmentRequest(ctx context.Context, itemID string, quantity int, supplierID, requestedBy string) (*domain.Replenishment, error) {
	if itemID == "" || supplierID == "" || requestedBy == "" {
		return nil, invalid("item, supplier and requester are required")
	}
	if quantity <= 0 {
		return nil, invalid("quantity must be > 0")
	}

	item, err := l.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, notFound("item", itemID)
	}

	supplier, err := l.repo.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	if supplier == nil {
		return nil, notFound("supplier", supplierID)
	}

	requester, err := l.repo.GetUser(ctx, requestedBy)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if requester == nil {
		return nil, notFound("user", requestedBy)
	}

	r := domain.Replenishment{
		ID:          l.newID(),
		ItemID:      itemID,
		Quantity:    quantity,
		SupplierID:  supplierID,
		RequestedBy: requestedBy,
		Status:      domain.ReplenishmentStatusPending,
		CreatedAt:   l.now(),
	}
	if err := l.repo.CreateReplenishment(ctx, r); err != nil {
		return nil, fmt.Errorf("create replenishment: %w", err)
	}
	return &r, nil
}

// ApproveReplenishment adds a pending request's quantity to its item.
func (l *StockLedger) ApproveReplenishment(ctx context.Context, requestID string) (*ReplenishmentResult, error) {
	if requestID == "" {
		return nil, invalid("replenishment id is required")
	}

	r, err := l.repo.GetReplenishment(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get replenishment: %w", err)
	}
	if r == nil {
		return nil, notFound("replenishment", requestID)
	}
	if r.Status != domain.ReplenishmentStatusPending {
		return nil, fmt.Errorf("%w: replenishment %s is already %s", ErrInvalidState, r.ID, r.Status)
	}

	unlock, err := l.locker.Lock(ctx, r.ItemID)
	if err != nil {
		return nil, fmt.Errorf("lock item %s: %w", r.ItemID, err)
	}
	defer unlock()

	item, err := l.repo.GetItem(ctx, r.ItemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, notFound("item", r.ItemID)
	}

	updated, err := l.repo.ApproveReplenishment(ctx, *r)
	switch {
	case err == nil:
	case errors.Is(err, port.ErrStatusConflict):
		return nil, fmt.Errorf("%w: replenishment %s is no longer pending", ErrInvalidState, r.ID)
	case errors.Is(err, port.ErrRecordNotFound):
		if current, getErr := l.repo.GetReplenishment(ctx, r.ID); getErr == nil && current == nil {
			return nil, notFound("replenishment", r.ID)
		}
		return nil, notFound("item", r.ItemID)
	default:
		return nil, fmt.Errorf("approve replenishment: %w", err)
	}

	r.Status = domain.ReplenishmentStatusApproved
	return &ReplenishmentResult{Replenishment: *r, Item: updated}, nil
}

// MarkReplenishmentPaid records a verified payment. It never touches stock,
// so it runs without the item lock.
func (l *StockLedger) MarkReplenishmentPaid(ctx context.Context, requestID string) (*domain.Replenishment, error) {
	if requestID == "" {
		return nil, invalid("replenishment id is required")
	}

	r, err := l.repo.GetReplenishment(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get replenishment: %w", err)
	}
	if r == nil {
		return nil, notFound("replenishment", requestID)
	}
	if r.Status == domain.ReplenishmentStatusPaid {
		return nil, fmt.Errorf("%w: replenishment %s is already paid", ErrInvalidState, r.ID)
	}

	err = l.repo.MarkReplenishmentPaid(ctx, r.ID, domain.ReplenishmentStatusPending, domain.ReplenishmentStatusApproved)
	switch {
	case err == nil:
	case errors.Is(err, port.ErrStatusConflict):
		return nil, fmt.Errorf("%w: replenishment %s is already paid", ErrInvalidState, r.ID)
	case errors.Is(err, port.ErrRecordNotFound):
		return nil, notFound("replenishment", r.ID)
	default:
		return nil, fmt.Errorf("mark replenishment paid: %w", err)
	}

	r.Status = domain.ReplenishmentStatusPaid
	return r, nil
}

func translateOrderErr(err error, order domain.Order, item *domain.Item) error {
	switch {
	case errors.Is(err, port.ErrStatusConflict):
		return fmt.Errorf("%w: order %s is no longer pending", ErrInvalidState, order.ID)
	case errors.Is(err, port.ErrStockConflict):
		available := 0
		if item != nil {
			available = item.Quantity
		}
		return &InsufficientStockError{ItemID: order.ItemID, Available: available, Requested: order.Quantity}
	default:
		return fmt.Errorf("update order: %w", err)
	}
}

// orderGone tells apart a deleted order from a deleted item after the store
// reported a missing record.
func (l *StockLedger) orderGone(ctx context.Context, order domain.Order) error {
	if current, err := l.repo.GetOrder(ctx, order.ID); err == nil && current == nil {
		return notFound("order", order.ID)
	}
	return notFound("item", order.ItemID)
}
