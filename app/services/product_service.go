package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"MinimartApp/app/models"
)

// ProductService manages the product catalog and keeps the stock ledger
// reconciled with manual stock edits.
type ProductService struct {
	*BaseService
}

// NewProductService creates a new product service.
func NewProductService(base *BaseService) *ProductService {
	return &ProductService{BaseService: base}
}

// ProductInput carries the product form fields.
type ProductInput struct {
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category"`
	HPP          float64 `json:"hpp" validate:"gte=0"`
	Price        float64 `json:"price" validate:"gte=0"`
	CurrentStock int     `json:"current_stock" validate:"gte=0"`
	Unit         string  `json:"unit"`
	Description  string  `json:"description"`
}

// CreateProduct adds a product and, when initial stock is positive, the
// ledger entry backing it.
func (s *ProductService) CreateProduct(input ProductInput) (*models.Product, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.FindProductByCode(input.Code) != nil {
		return nil, &models.ValidationError{
			Field:   "code",
			Message: fmt.Sprintf("product code %q already exists", input.Code),
		}
	}

	now := time.Now().UTC()
	product := models.Product{
		ID:           uuid.NewString(),
		Code:         input.Code,
		Name:         input.Name,
		Category:     input.Category,
		HPP:          input.HPP,
		Price:        input.Price,
		CurrentStock: input.CurrentStock,
		Unit:         input.Unit,
		Description:  input.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.state.Products = append(s.state.Products, product)
	s.gateway.Create(models.CollectionProducts, product)

	if product.CurrentStock > 0 {
		movement := models.StockMovement{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Type:      models.MovementIn,
			Quantity:  product.CurrentStock,
			Date:      now,
			Note:      "initial stock",
		}
		s.state.StockMovements = append(s.state.StockMovements, movement)
		s.gateway.Create(models.CollectionStockMovements, movement)
	}

	s.saveLocalData()
	s.log.WithField("product", product.Code).Info("product created")
	return &product, nil
}

// UpdateProduct applies the form fields to an existing product. A changed
// stock value emits a delta movement so manual edits stay reconciled with
// the ledger.
func (s *ProductService) UpdateProduct(id string, input ProductInput) (*models.Product, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	product := s.state.FindProduct(id)
	if product == nil {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if other := s.state.FindProductByCode(input.Code); other != nil && other.ID != id {
		return nil, &models.ValidationError{
			Field:   "code",
			Message: fmt.Sprintf("product code %q already exists", input.Code),
		}
	}

	now := time.Now().UTC()
	previousStock := product.CurrentStock

	product.Code = input.Code
	product.Name = input.Name
	product.Category = input.Category
	product.HPP = input.HPP
	product.Price = input.Price
	product.CurrentStock = input.CurrentStock
	product.Unit = input.Unit
	product.Description = input.Description
	product.UpdatedAt = now

	if delta := product.CurrentStock - previousStock; delta != 0 {
		movementType := models.MovementIn
		quantity := delta
		if delta < 0 {
			movementType = models.MovementOut
			quantity = -delta
		}
		movement := models.StockMovement{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Type:      movementType,
			Quantity:  quantity,
			Date:      now,
			Note:      "manual stock adjustment",
		}
		s.state.StockMovements = append(s.state.StockMovements, movement)
		s.gateway.Create(models.CollectionStockMovements, movement)
	}

	s.saveLocalData()
	s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
		"code":          product.Code,
		"name":          product.Name,
		"category":      product.Category,
		"hpp":           product.HPP,
		"price":         product.Price,
		"current_stock": product.CurrentStock,
		"unit":          product.Unit,
		"description":   product.Description,
		"updated_at":    product.UpdatedAt,
	})

	result := *product
	return &result, nil
}

// DeleteProduct removes a product and its entire movement ledger. Unknown
// ids are a no-op, so a local delete racing a remote cascade or a
// duplicate feed delivery cannot fail.
func (s *ProductService) DeleteProduct(id string) error {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.FindProduct(id) == nil {
		return nil
	}

	s.state.RemoveProduct(id)
	s.state.RemoveMovementsForProduct(id)
	s.saveLocalData()

	// movement rows cascade remotely with the product
	s.gateway.Delete(models.CollectionProducts, id)

	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

// GetProduct returns a copy of the product with the given id.
func (s *ProductService) GetProduct(id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := s.state.FindProduct(id)
	if product == nil {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	result := *product
	return &result, nil
}

// GetProducts returns a copy of the product catalog.
func (s *ProductService) GetProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]models.Product, len(s.state.Products))
	copy(products, s.state.Products)
	return products
}
