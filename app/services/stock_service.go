package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"MinimartApp/app/models"
)

// StockService records direct stock movements and serves the per-product
// stock card.
type StockService struct {
	*BaseService
}

// NewStockService creates a new stock service.
func NewStockService(base *BaseService) *StockService {
	return &StockService{BaseService: base}
}

// RecordStockIn increases a product's stock and appends the backing
// ledger entry.
func (s *StockService) RecordStockIn(productID string, quantity int, date time.Time, note string) (*models.StockMovement, error) {
	if quantity <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	product := s.state.FindProduct(productID)
	if product == nil {
		return nil, &models.NotFoundError{Entity: "product", ID: productID}
	}

	now := time.Now().UTC()
	if date.IsZero() {
		date = now
	}
	if note == "" {
		note = "stock in"
	}

	product.CurrentStock += quantity
	product.UpdatedAt = now

	movement := models.StockMovement{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Type:      models.MovementIn,
		Quantity:  quantity,
		Date:      date,
		Note:      note,
	}
	s.state.StockMovements = append(s.state.StockMovements, movement)
	s.saveLocalData()

	s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
		"current_stock": product.CurrentStock,
		"updated_at":    product.UpdatedAt,
	})
	s.gateway.Create(models.CollectionStockMovements, movement)

	return &movement, nil
}

// RecordStockOut decreases a product's stock. Unlike sales there is no
// indent path here: insufficient stock always rejects the movement.
func (s *StockService) RecordStockOut(productID string, quantity int, date time.Time, note string) (*models.StockMovement, error) {
	if quantity <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	product := s.state.FindProduct(productID)
	if product == nil {
		return nil, &models.NotFoundError{Entity: "product", ID: productID}
	}
	if product.CurrentStock < quantity {
		return nil, &models.InsufficientStockError{Shortfalls: []models.StockShortfall{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.CurrentStock,
		}}}
	}

	now := time.Now().UTC()
	if date.IsZero() {
		date = now
	}
	if note == "" {
		note = "stock out"
	}

	product.CurrentStock -= quantity
	product.UpdatedAt = now

	movement := models.StockMovement{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Type:      models.MovementOut,
		Quantity:  quantity,
		Date:      date,
		Note:      note,
	}
	s.state.StockMovements = append(s.state.StockMovements, movement)
	s.saveLocalData()

	s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
		"current_stock": product.CurrentStock,
		"updated_at":    product.UpdatedAt,
	})
	s.gateway.Create(models.CollectionStockMovements, movement)

	return &movement, nil
}

// StockCardEntry pairs a movement with the running balance after it.
type StockCardEntry struct {
	Movement models.StockMovement `json:"movement"`
	Balance  int                  `json:"balance"`
}

// StockCard returns a product's movements oldest first, each with the
// running balance after the movement applied.
func (s *StockService) StockCard(productID string) ([]StockCardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.FindProduct(productID) == nil {
		return nil, &models.NotFoundError{Entity: "product", ID: productID}
	}

	movements := s.state.MovementsFor(productID)
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Date.Before(movements[j].Date)
	})

	entries := make([]StockCardEntry, 0, len(movements))
	balance := 0
	for _, m := range movements {
		switch m.Type {
		case models.MovementIn:
			balance += m.Quantity
		case models.MovementOut:
			balance -= m.Quantity
		}
		entries = append(entries, StockCardEntry{Movement: m, Balance: balance})
	}
	return entries, nil
}

// GetMovements returns a copy of the full movement ledger.
func (s *StockService) GetMovements() []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()

	movements := make([]models.StockMovement, len(s.state.StockMovements))
	copy(movements, s.state.StockMovements)
	return movements
}
