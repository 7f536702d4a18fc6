package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusRejected OrderStatus = "rejected"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected:
		return true
	}
	return false
}

// Order is an employee's request to draw stock of one item. Stock is only
// taken when the order is approved.
type Order struct {
	ID         string      `json:"id"`
	ItemID     string      `json:"item_id"`
	Quantity   int         `json:"quantity"`
	EmployeeID string      `json:"employee_id"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}
