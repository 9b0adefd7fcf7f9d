package services

import (
	"MinimartApp/app/models"
)

// DashboardService computes aggregates over the live collections. Nothing
// is cached: a dashboard read after any accepted change always reflects
// it.
type DashboardService struct {
	*BaseService
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(base *BaseService) *DashboardService {
	return &DashboardService{BaseService: base}
}

// DashboardSummary is the aggregate snapshot behind the main view.
type DashboardSummary struct {
	TotalProducts    int              `json:"total_products"`
	TotalStockUnits  int              `json:"total_stock_units"`
	StockValue       float64          `json:"stock_value"`
	PotentialRevenue float64          `json:"potential_revenue"`
	LowStockProducts []models.Product `json:"low_stock_products"`
	PendingOrders    int              `json:"pending_orders"`
	TotalSales       int              `json:"total_sales"`
	TotalSalesAmount float64          `json:"total_sales_amount"`
}

// Summary recomputes every aggregate from current state.
func (s *DashboardService) Summary() DashboardSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := DashboardSummary{
		TotalProducts:    len(s.state.Products),
		LowStockProducts: []models.Product{},
	}

	limit := s.state.Settings.MinStockLimit
	for _, product := range s.state.Products {
		summary.TotalStockUnits += product.CurrentStock
		summary.StockValue += float64(product.CurrentStock) * product.HPP
		summary.PotentialRevenue += float64(product.CurrentStock) * product.Price
		if product.CurrentStock <= limit {
			summary.LowStockProducts = append(summary.LowStockProducts, product)
		}
	}

	for _, order := range s.state.Orders {
		if order.Status == models.OrderStatusPending {
			summary.PendingOrders++
		}
	}

	for _, sale := range s.state.Sales {
		summary.TotalSales++
		summary.TotalSalesAmount += sale.TotalAmount
	}

	return summary
}
