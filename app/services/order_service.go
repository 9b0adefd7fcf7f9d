package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"MinimartApp/app/models"
)

// OrderService manages the purchase order lifecycle. Approval is the only
// transition that touches stock.
type OrderService struct {
	*BaseService
}

// NewOrderService creates a new order service.
func NewOrderService(base *BaseService) *OrderService {
	return &OrderService{BaseService: base}
}

// CreateOrder registers a pending purchase order. Stock is untouched
// until the order is approved.
func (s *OrderService) CreateOrder(productID string, quantity int, note string) (*models.Order, error) {
	if quantity <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.FindProduct(productID) == nil {
		return nil, &models.NotFoundError{Entity: "product", ID: productID}
	}

	now := time.Now().UTC()
	order := models.Order{
		ID:          uuid.NewString(),
		OrderNumber: generateOrderNumber(now),
		ProductID:   productID,
		Quantity:    quantity,
		Note:        note,
		Status:      models.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.state.Orders = append(s.state.Orders, order)
	s.saveLocalData()
	s.gateway.Create(models.CollectionOrders, order)

	s.log.WithField("order", order.OrderNumber).Info("order created")
	return &order, nil
}

// ApproveOrder moves a pending order to approved, restocking the product
// and appending the backing ledger entry.
func (s *OrderService) ApproveOrder(orderID string) (*models.Order, error) {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.state.FindOrder(orderID)
	if order == nil {
		return nil, &models.NotFoundError{Entity: "order", ID: orderID}
	}
	if order.Status != models.OrderStatusPending {
		return nil, &models.InvalidStateError{
			Entity:   "order",
			ID:       orderID,
			State:    string(order.Status),
			Expected: string(models.OrderStatusPending),
		}
	}

	product := s.state.FindProduct(order.ProductID)
	if product == nil {
		// product deleted while the order was pending
		return nil, &models.NotFoundError{Entity: "product", ID: order.ProductID}
	}

	now := time.Now().UTC()
	order.Status = models.OrderStatusApproved
	order.UpdatedAt = now
	order.ApprovedAt = &now

	product.CurrentStock += order.Quantity
	product.UpdatedAt = now

	movement := models.StockMovement{
		ID:                 uuid.NewString(),
		ProductID:          product.ID,
		Type:               models.MovementIn,
		Quantity:           order.Quantity,
		Date:               now,
		Note:               "order approved - " + order.OrderNumber,
		OriginatingOrderID: order.ID,
	}
	s.state.StockMovements = append(s.state.StockMovements, movement)
	s.saveLocalData()

	s.gateway.Update(models.CollectionOrders, order.ID, map[string]interface{}{
		"status":      order.Status,
		"updated_at":  order.UpdatedAt,
		"approved_at": order.ApprovedAt,
	})
	s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
		"current_stock": product.CurrentStock,
		"updated_at":    product.UpdatedAt,
	})
	s.gateway.Create(models.CollectionStockMovements, movement)

	result := *order
	return &result, nil
}

// RejectOrder is a terminal transition with no stock effect.
func (s *OrderService) RejectOrder(orderID string) (*models.Order, error) {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.state.FindOrder(orderID)
	if order == nil {
		return nil, &models.NotFoundError{Entity: "order", ID: orderID}
	}
	if order.Status != models.OrderStatusPending {
		return nil, &models.InvalidStateError{
			Entity:   "order",
			ID:       orderID,
			State:    string(order.Status),
			Expected: string(models.OrderStatusPending),
		}
	}

	order.Status = models.OrderStatusRejected
	order.UpdatedAt = time.Now().UTC()
	s.saveLocalData()
	s.gateway.Update(models.CollectionOrders, order.ID, map[string]interface{}{
		"status":     order.Status,
		"updated_at": order.UpdatedAt,
	})

	result := *order
	return &result, nil
}

// DeleteOrder removes an order. Deleting an approved order reverses its
// stock increment with a compensating out movement; the original entry
// stays in the ledger. The reversal is rejected if the stock has already
// been consumed. Unknown ids are a no-op.
func (s *OrderService) DeleteOrder(orderID string) error {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.state.FindOrder(orderID)
	if order == nil {
		return nil
	}

	if order.Status == models.OrderStatusApproved {
		product := s.state.FindProduct(order.ProductID)
		if product != nil {
			if product.CurrentStock < order.Quantity {
				return &models.InsufficientStockError{Shortfalls: []models.StockShortfall{{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   order.Quantity,
					Available:   product.CurrentStock,
				}}}
			}

			now := time.Now().UTC()
			product.CurrentStock -= order.Quantity
			product.UpdatedAt = now

			movement := models.StockMovement{
				ID:                 uuid.NewString(),
				ProductID:          product.ID,
				Type:               models.MovementOut,
				Quantity:           order.Quantity,
				Date:               now,
				Note:               "order deleted - " + order.OrderNumber,
				OriginatingOrderID: order.ID,
			}
			s.state.StockMovements = append(s.state.StockMovements, movement)

			s.gateway.Update(models.CollectionProducts, product.ID, map[string]interface{}{
				"current_stock": product.CurrentStock,
				"updated_at":    product.UpdatedAt,
			})
			s.gateway.Create(models.CollectionStockMovements, movement)
		}
	}

	s.state.RemoveOrder(orderID)
	s.saveLocalData()
	s.gateway.Delete(models.CollectionOrders, orderID)
	return nil
}

// GetOrders returns a copy of all orders.
func (s *OrderService) GetOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]models.Order, len(s.state.Orders))
	copy(orders, s.state.Orders)
	return orders
}

// generateOrderNumber builds a display-only order number from the last
// six digits of the creation timestamp.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%06d", now.UnixMilli()%1000000)
}
