package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"MinimartApp/app/models"
)

// SalesService manages sales transactions. Stock decrements follow the
// status rules: paid and unpaid sales decrement immediately, indent sales
// defer every decrement until payment confirmation.
type SalesService struct {
	*BaseService
}

// NewSalesService creates a new sales service.
func NewSalesService(base *BaseService) *SalesService {
	return &SalesService{BaseService: base}
}

// SaleItemInput is one line of a new sale. IsIndent marks an item the
// caller accepted despite insufficient stock.
type SaleItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	IsIndent  bool   `json:"is_indent"`
}

// SaleInput carries the sale form fields.
type SaleInput struct {
	CustomerName  string               `json:"customer_name" validate:"required"`
	SaleDate      time.Time            `json:"sale_date"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=cash transfer unpaid"`
	Items         []SaleItemInput      `json:"items" validate:"required,min=1,dive"`
}

// CreateSale records a sale. Any indent item makes the whole sale indent
// with no stock decrement; otherwise every non-indent item must fit in
// current stock and the decrements happen immediately, for unpaid sales
// too.
func (s *SalesService) CreateSale(input SaleInput) (*models.Sale, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	anyIndent := false
	var shortfalls []models.StockShortfall
	items := make([]models.SaleItem, 0, len(input.Items))
	required := map[string]int{}

	for _, it := range input.Items {
		product := s.state.FindProduct(it.ProductID)
		if product == nil {
			return nil, &models.NotFoundError{Entity: "product", ID: it.ProductID}
		}
		if it.IsIndent {
			anyIndent = true
		} else {
			required[product.ID] += it.Quantity
			if required[product.ID] > product.CurrentStock {
				shortfalls = append(shortfalls, models.StockShortfall{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   required[product.ID],
					Available:   product.CurrentStock,
				})
			}
		}
		items = append(items, models.SaleItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    it.Quantity,
			PriceAtSale: product.Price,
			Total:       product.Price * float64(it.Quantity),
			IsIndent:    it.IsIndent,
		})
	}
	if !anyIndent && len(shortfalls) > 0 {
		return nil, &models.InsufficientStockError{Shortfalls: shortfalls}
	}

	status := models.SaleStatusPaid
	switch {
	case anyIndent:
		status = models.SaleStatusIndent
	case input.PaymentMethod == models.PaymentUnpaid:
		status = models.SaleStatusUnpaid
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = now
	}

	total := 0.0
	for _, item := range items {
		total += item.Total
	}

	sale := models.Sale{
		ID:            uuid.NewString(),
		SaleNumber:    generateSaleNumber(now),
		CustomerName:  input.CustomerName,
		SaleDate:      saleDate,
		PaymentMethod: input.PaymentMethod,
		Status:        status,
		Items:         items,
		TotalAmount:   total,
		CreatedAt:     now,
	}
	s.state.Sales = append(s.state.Sales, sale)
	s.gateway.Create(models.CollectionSales, sale)

	if sale.StockApplied() {
		s.applyStockDecrements(&sale, now)
	}
	s.saveLocalData()

	s.log.WithFields(map[string]interface{}{
		"sale":   sale.SaleNumber,
		"status": sale.Status,
	}).Info("sale recorded")

	result := sale
	return &result, nil
}

// applyStockDecrements decrements stock and appends an out movement per
// item. The caller holds the lock and has validated sufficiency.
func (s *SalesService) applyStockDecrements(sale *models.Sale, date time.Time) {
	for _, item := range sale.Items {
		product := s.state.FindProduct(item.ProductID)
		if product == nil {
			continue
		}
		product.CurrentStock -= item.Quantity
		product.UpdatedAt = date

		movement := models.StockMovement{
			ID:                uuid.NewString(),
			ProductID:         product.ID,
			Type:              models.MovementOut,
			Quantity:          item.Quantity,
			Date:              date,
			Note:              "sale - " + sale.SaleNumber,
			OriginatingSaleID: sale.ID,
		}
		s.state.StockMovements = append(s.state.StockMovements, movement)

		s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
			"current_stock": product.CurrentStock,
			"updated_at":    product.UpdatedAt,
		})
		s.gateway.Create(models.CollectionStockMovements, movement)
	}
}

// ConfirmIndentPayment settles a sale. For an indent sale every item is
// re-validated against current stock (quantities aggregated per product)
// and the deferred decrements are applied all or nothing; any shortfall
// fails the confirmation and the sale stays indent. An unpaid sale just
// flips to paid, its stock was already decremented.
func (s *SalesService) ConfirmIndentPayment(saleID string) error {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	sale := s.state.FindSale(saleID)
	if sale == nil {
		return &models.NotFoundError{Entity: "sale", ID: saleID}
	}

	switch sale.Status {
	case models.SaleStatusUnpaid:
		sale.Status = models.SaleStatusPaid
		s.saveLocalData()
		s.gateway.Update(models.CollectionSales, sale.ID, map[string]interface{}{
			"status": sale.Status,
		})
		return nil
	case models.SaleStatusIndent:
		// fall through to re-validation
	default:
		return &models.InvalidStateError{
			Entity:   "sale",
			ID:       saleID,
			State:    string(sale.Status),
			Expected: string(models.SaleStatusIndent),
		}
	}

	required := map[string]int{}
	for _, item := range sale.Items {
		required[item.ProductID] += item.Quantity
	}

	var shortfalls []models.StockShortfall
	for productID, quantity := range required {
		product := s.state.FindProduct(productID)
		if product == nil {
			return &models.NotFoundError{Entity: "product", ID: productID}
		}
		if product.CurrentStock < quantity {
			shortfalls = append(shortfalls, models.StockShortfall{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   quantity,
				Available:   product.CurrentStock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &models.InsufficientStockError{Shortfalls: shortfalls}
	}

	now := time.Now().UTC()
	sale.Status = models.SaleStatusPaid
	s.applyStockDecrements(sale, now)
	s.saveLocalData()
	s.gateway.Update(models.CollectionSales, sale.ID, map[string]interface{}{
		"status": sale.Status,
	})
	return nil
}

// DeleteSale removes a sale, reversing its stock effect with compensating
// in movements when stock had been decremented. Indent sales never
// decremented, so nothing is reversed. Unknown ids are a no-op.
func (s *SalesService) DeleteSale(saleID string) error {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	sale := s.state.FindSale(saleID)
	if sale == nil {
		return nil
	}

	if sale.StockApplied() {
		now := time.Now().UTC()
		for _, item := range sale.Items {
			product := s.state.FindProduct(item.ProductID)
			if product == nil {
				continue
			}
			product.CurrentStock += item.Quantity
			product.UpdatedAt = now

			movement := models.StockMovement{
				ID:                uuid.NewString(),
				ProductID:         product.ID,
				Type:              models.MovementIn,
				Quantity:          item.Quantity,
				Date:              now,
				Note:              "sale deleted - " + sale.SaleNumber,
				OriginatingSaleID: sale.ID,
			}
			s.state.StockMovements = append(s.state.StockMovements, movement)

			s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
				"current_stock": product.CurrentStock,
				"updated_at":    product.UpdatedAt,
			})
			s.gateway.Create(models.CollectionStockMovements, movement)
		}
	}

	s.state.RemoveSale(saleID)
	s.saveLocalData()
	s.gateway.Delete(models.CollectionSales, saleID)
	return nil
}

// GetSales returns a copy of all sales.
func (s *SalesService) GetSales() []models.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := make([]models.Sale, len(s.state.Sales))
	copy(sales, s.state.Sales)
	return sales
}

// SalesBetween returns the sales whose date falls inside [from, to],
// inclusive. Zero bounds are open.
func (s *SalesService) SalesBetween(from, to time.Time) []models.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Sale
	for _, sale := range s.state.Sales {
		if !from.IsZero() && sale.SaleDate.Before(from) {
			continue
		}
		if !to.IsZero() && sale.SaleDate.After(to) {
			continue
		}
		out = append(out, sale)
	}
	return out
}

// SalesSummary aggregates a set of sales for reporting.
type SalesSummary struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
	UnpaidCount int     `json:"unpaid_count"`
	IndentCount int     `json:"indent_count"`
}

// Summarize computes totals over the given sales.
func Summarize(sales []models.Sale) SalesSummary {
	summary := SalesSummary{}
	for _, sale := range sales {
		summary.Count++
		summary.TotalAmount += sale.TotalAmount
		switch sale.Status {
		case models.SaleStatusUnpaid:
			summary.UnpaidCount++
		case models.SaleStatusIndent:
			summary.IndentCount++
		}
	}
	return summary
}

// generateSaleNumber builds a display-only sale number from the last six
// digits of the creation timestamp.
func generateSaleNumber(now time.Time) string {
	return fmt.Sprintf("SALE-%06d", now.UnixMilli()%1000000)
}
