package models

import "time"

// SaleStatus reflects both payment and stock state: paid and unpaid sales
// have had their stock decremented, indent sales have not.
type SaleStatus string

const (
	SaleStatusPaid   SaleStatus = "paid"
	SaleStatusUnpaid SaleStatus = "unpaid"
	SaleStatusIndent SaleStatus = "indent"
)

// PaymentMethod for a sale. The unpaid method records a debt.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentUnpaid   PaymentMethod = "unpaid"
)

// SaleItem is one line of a sale, frozen at creation time. PriceAtSale is
// the product price when the sale was made; later price edits do not
// change historical sales.
type SaleItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"price_at_sale"`
	Total       float64 `json:"total"`
	IsIndent    bool    `json:"is_indent,omitempty"`
}

// Sale is a multi-item transaction.
type Sale struct {
	ID            string        `json:"id"`
	SaleNumber    string        `json:"sale_number"`
	CustomerName  string        `json:"customer_name"`
	SaleDate      time.Time     `json:"sale_date"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        SaleStatus    `json:"status"`
	Items         []SaleItem    `json:"items"`
	TotalAmount   float64       `json:"total_amount"`
	CreatedAt     time.Time     `json:"created_at"`
}

// StockApplied reports whether this sale's stock decrements have been
// performed. Indent sales defer them until payment confirmation.
func (s *Sale) StockApplied() bool {
	return s.Status == SaleStatusPaid || s.Status == SaleStatusUnpaid
}
