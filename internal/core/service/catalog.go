package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

type ItemInput struct {
	Name        string
	Description string
	Quantity    int
	Price       float64
	SupplierID  string
}

// ItemPatch updates only the fields that are set.
type ItemPatch struct {
	Name        *string
	Description *string
	Quantity    *int
	Price       *float64
	SupplierID  *string
}

type SupplierInput struct {
	Name    string
	Contact string
	Email   string
	Address string
}

// Catalog serves the plain record operations around the ledger: items,
// suppliers, order and replenishment listings, and dashboard counts.
type Catalog struct {
	repo   port.CatalogRepository
	locker port.ItemLocker
	now    func() time.Time
	newID  func() string
}

func NewCatalog(repo port.CatalogRepository, locker port.ItemLocker) *Catalog {
	return &Catalog{
		repo:   repo,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (c *Catalog) ListItems(ctx context.Context) ([]domain.Item, error) {
	items, err := c.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (c *Catalog) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := c.repo.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, notFound("item", id)
	}
	return item, nil
}

func (c *Catalog) CreateItem(ctx context.Context, in ItemInput) (*domain.Item, error) {
	now := c.now()
	item := domain.Item{
		ID:          c.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		Price:       in.Price,
		SupplierID:  in.SupplierID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.validateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := c.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

// UpdateItem holds the item lock so a manual stock correction cannot land in
// the middle of an approval on the same item.
func (c *Catalog) UpdateItem(ctx context.Context, id string, patch ItemPatch) (*domain.Item, error) {
	unlock, err := c.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock item %s: %w", id, err)
	}
	defer unlock()

	item, err := c.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.SupplierID != nil {
		item.SupplierID = *patch.SupplierID
	}
	item.UpdatedAt = c.now()

	if err := c.validateItem(ctx, *item); err != nil {
		return nil, err
	}
	if err := c.repo.UpdateItem(ctx, *item); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, notFound("item", id)
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	if err := c.repo.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return notFound("item", id)
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (c *Catalog) validateItem(ctx context.Context, item domain.Item) error {
	if item.Name == "" {
		return invalid("name is required")
	}
	if item.Quantity < 0 {
		return invalid("quantity must be >= 0")
	}
	if item.Price < 0 {
		return invalid("price must be >= 0")
	}
	if item.SupplierID == "" {
		return nil
	}
	supplier, err := c.repo.GetSupplier(ctx, item.SupplierID)
	if err != nil {
		return fmt.Errorf("get supplier: %w", err)
	}
	if supplier == nil {
		return notFound("supplier", item.SupplierID)
	}
	return nil
}

func (c *Catalog) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers, err := c.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}

func (c *Catalog) CreateSupplier(ctx context.Context, in SupplierInput) (*domain.Supplier, error) {
	if err := validateSupplier(in); err != nil {
		return nil, err
	}
	now := c.now()
	s := domain.Supplier{
		ID:        c.newID(),
		Name:      strings.TrimSpace(in.Name),
		Contact:   strings.TrimSpace(in.Contact),
		Email:     strings.TrimSpace(in.Email),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.repo.CreateSupplier(ctx, s); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return &s, nil
}

func (c *Catalog) UpdateSupplier(ctx context.Context, id string, in SupplierInput) (*domain.Supplier, error) {
	if err := validateSupplier(in); err != nil {
		return nil, err
	}
	s, err := c.repo.GetSupplier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	if s == nil {
		return nil, notFound("supplier", id)
	}
	s.Name = strings.TrimSpace(in.Name)
	s.Contact = strings.TrimSpace(in.Contact)
	s.Email = strings.TrimSpace(in.Email)
	s.Address = strings.TrimSpace(in.Address)
	s.UpdatedAt = c.now()

	if err := c.repo.UpdateSupplier(ctx, *s); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, notFound("supplier", id)
		}
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	return s, nil
}

func (c *Catalog) DeleteSupplier(ctx context.Context, id string) error {
	if err := c.repo.DeleteSupplier(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return notFound("supplier", id)
		}
		return fmt.Errorf("delete supplier: %w", err)
	}
	return nil
}

func validateSupplier(in SupplierInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Contact) == "" ||
		strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Address) == "" {
		return invalid("name, contact, email and address are required")
	}
	return nil
}

func (c *Catalog) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := c.repo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// DeleteOrder removes the record only; stock taken by an approved order is
// not given back.
func (c *Catalog) DeleteOrder(ctx context.Context, id string) error {
	if err := c.repo.DeleteOrder(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return notFound("order", id)
		}
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (c *Catalog) ListReplenishments(ctx context.Context) ([]domain.Replenishment, error) {
	list, err := c.repo.ListReplenishments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list replenishments: %w", err)
	}
	return list, nil
}

func (c *Catalog) Metrics(ctx context.Context) (domain.Metrics, error) {
	m, err := c.repo.CountRecords(ctx)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("count records: %w", err)
	}
	return m, nil
}
