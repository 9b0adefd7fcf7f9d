package models

// AppState holds the six synchronized collections. A single owner passes
// it to the services; every mutation runs under the shared coordinator
// lock, never through package globals.
type AppState struct {
	Products       []Product
	Categories     []Category
	StockMovements []StockMovement
	Orders         []Order
	Sales          []Sale
	Settings       Settings
}

// NewAppState returns an empty state with typed defaults applied.
func NewAppState() *AppState {
	return &AppState{
		Products:       []Product{},
		Categories:     []Category{},
		StockMovements: []StockMovement{},
		Orders:         []Order{},
		Sales:          []Sale{},
		Settings:       DefaultSettings(),
	}
}

// FindProduct returns a pointer into the products slice, or nil.
func (s *AppState) FindProduct(id string) *Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i]
		}
	}
	return nil
}

// FindProductByCode matches on the user-facing product code.
func (s *AppState) FindProductByCode(code string) *Product {
	for i := range s.Products {
		if s.Products[i].Code == code {
			return &s.Products[i]
		}
	}
	return nil
}

// FindOrder returns a pointer into the orders slice, or nil.
func (s *AppState) FindOrder(id string) *Order {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return &s.Orders[i]
		}
	}
	return nil
}

// FindSale returns a pointer into the sales slice, or nil.
func (s *AppState) FindSale(id string) *Sale {
	for i := range s.Sales {
		if s.Sales[i].ID == id {
			return &s.Sales[i]
		}
	}
	return nil
}

// HasCategory reports whether a category with the given name exists.
func (s *AppState) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// MovementsFor returns the ledger entries of one product, in insertion
// order.
func (s *AppState) MovementsFor(productID string) []StockMovement {
	var out []StockMovement
	for _, m := range s.StockMovements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// LedgerBalance reconstructs a product's stock from its movements. After
// any completed mutator sequence this equals the product's CurrentStock,
// except where a bulk import overwrote the stock field directly.
func (s *AppState) LedgerBalance(productID string) int {
	balance := 0
	for _, m := range s.StockMovements {
		if m.ProductID != productID {
			continue
		}
		switch m.Type {
		case MovementIn:
			balance += m.Quantity
		case MovementOut:
			balance -= m.Quantity
		}
	}
	return balance
}

// RemoveProduct deletes a product by id and reports whether it existed.
func (s *AppState) RemoveProduct(id string) bool {
	for i := range s.Products {
		if s.Products[i].ID == id {
			s.Products = append(s.Products[:i], s.Products[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveMovementsForProduct drops a deleted product's entire ledger.
func (s *AppState) RemoveMovementsForProduct(productID string) {
	kept := s.StockMovements[:0]
	for _, m := range s.StockMovements {
		if m.ProductID != productID {
			kept = append(kept, m)
		}
	}
	s.StockMovements = kept
}

// RemoveOrder deletes an order by id and reports whether it existed.
func (s *AppState) RemoveOrder(id string) bool {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			s.Orders = append(s.Orders[:i], s.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveSale deletes a sale by id and reports whether it existed.
func (s *AppState) RemoveSale(id string) bool {
	for i := range s.Sales {
		if s.Sales[i].ID == id {
			s.Sales = append(s.Sales[:i], s.Sales[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveCategory deletes a category by name and reports whether it
// existed.
func (s *AppState) RemoveCategory(name string) bool {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			s.Categories = append(s.Categories[:i], s.Categories[i+1:]...)
			return true
		}
	}
	return false
}
