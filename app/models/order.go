package models

import "time"

// OrderStatus is the purchase order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusRejected OrderStatus = "rejected"
)

// Order is an inbound purchase order for a single product. Stock is
// untouched until the order is approved.
type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"order_number"`
	ProductID   string      `json:"product_id"`
	Quantity    int         `json:"quantity"`
	Note        string      `json:"note"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty"`
}
