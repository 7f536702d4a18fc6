package domain

import "time"

// Item is a catalog entry whose Quantity is the on-hand stock.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	SupplierID  string    `json:"supplier_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metrics holds the dashboard record counts.
type Metrics struct {
	InventoryCount int `json:"inventory_count"`
	SupplierCount  int `json:"supplier_count"`
	OrderCount     int `json:"order_count"`
}
