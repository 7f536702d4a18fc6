package domain

import "time"

// ReplenishmentStatus values are capitalized, unlike OrderStatus. Clients
// depend on both spellings so the two domains are kept apart.
type ReplenishmentStatus string

const (
	ReplenishmentStatusPending  ReplenishmentStatus = "Pending"
	ReplenishmentStatusApproved ReplenishmentStatus = "Approved"
	ReplenishmentStatusPaid     ReplenishmentStatus = "Paid"
)

// Replenishment is a manager's request to add stock of one item from a
// supplier.
type Replenishment struct {
	ID          string              `json:"id"`
	ItemID      string              `json:"item_id"`
	Quantity    int                 `json:"quantity"`
	SupplierID  string              `json:"supplier_id"`
	RequestedBy string              `json:"requested_by"`
	Status      ReplenishmentStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}
