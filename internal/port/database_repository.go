package port

import (
	"context"
	"errors"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	// ErrStatusConflict is returned when a conditional status update matched
	// no row because the record left the expected status.
	ErrStatusConflict = errors.New("status conflict")
	// ErrStockConflict is returned when a conditional decrement matched no row
	// because the item holds less than the requested quantity.
	ErrStockConflict = errors.New("stock conflict")
)

// Get* methods return (nil, nil) when the record does not exist.

// LedgerRepository is the storage surface the stock ledger needs. The
// Approve* and Reject* methods must commit the status write and the quantity
// write as one unit.
type LedgerRepository interface {
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error

	// RejectOrder moves a pending order to rejected, ErrStatusConflict otherwise.
	// ErrRecordNotFound means the order is gone
	RejectOrder(ctx context.Context, orderID string) error

	// ApproveOrder moves the order from pending to approved and takes its
	// quantity out of the item's stock, returning the item after the write.
	// ErrRecordNotFound means the item or the order is gone
	ApproveOrder(ctx context.Context, order domain.Order) (*domain.Item, error)

	GetReplenishment(ctx context.Context, id string) (*domain.Replenishment, error)
	CreateReplenishment(ctx context.Context, r domain.Replenishment) error

	// ApproveReplenishment moves the request from Pending to Approved and adds
	// its quantity to the item's stock, returning the item after the write.
	// ErrRecordNotFound means the item or the request is gone
	ApproveReplenishment(ctx context.Context, r domain.Replenishment) (*domain.Item, error)

	// MarkReplenishmentPaid sets Paid if the current status is one of from
	MarkReplenishmentPaid(ctx context.Context, id string, from ...domain.ReplenishmentStatus) error
}

type CatalogRepository interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) error
	UpdateItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, s domain.Supplier) error
	UpdateSupplier(ctx context.Context, s domain.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error

	ListOrders(ctx context.Context) ([]domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListReplenishments(ctx context.Context) ([]domain.Replenishment, error)

	CountRecords(ctx context.Context) (domain.Metrics, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser returns ErrDuplicateKey when the email is taken
	CreateUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// DatabaseRepository is implemented by every storage adapter.
type DatabaseRepository interface {
	LedgerRepository
	CatalogRepository
	UserRepository
}
