package models

import "time"

// MovementType is the direction of a stock ledger entry.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Product is a sellable item. CurrentStock is the cached balance of the
// product's movement ledger; every mutator keeps the two reconciled.
type Product struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	HPP          float64   `json:"hpp"`
	Price        float64   `json:"price"`
	CurrentStock int       `json:"current_stock"`
	Unit         string    `json:"unit"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Category is keyed by name. Products reference categories by name only,
// so deleting a category never touches products.
type Category struct {
	Name string `json:"name"`
}

// StockMovement is one append-only ledger entry. Movements are never
// edited or removed individually; reversals append a compensating entry.
// The originating ids tie a movement to the order or sale that produced
// it so reversals do not depend on note text.
type StockMovement struct {
	ID                 string       `json:"id"`
	ProductID          string       `json:"product_id"`
	Type               MovementType `json:"type"`
	Quantity           int          `json:"quantity"`
	Date               time.Time    `json:"date"`
	Note               string       `json:"note"`
	OriginatingOrderID string       `json:"originating_order_id,omitempty"`
	OriginatingSaleID  string       `json:"originating_sale_id,omitempty"`
}
