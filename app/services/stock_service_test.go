package services

import (
	"errors"
	"testing"
	"time"

	"MinimartApp/app/models"
)

func TestRecordStockInAndOut(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	stock := NewStockService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	if _, err := stock.RecordStockIn(product.ID, 5, time.Time{}, "restock"); err != nil {
		t.Fatalf("RecordStockIn: %v", err)
	}
	if _, err := stock.RecordStockOut(product.ID, 3, time.Time{}, ""); err != nil {
		t.Fatalf("RecordStockOut: %v", err)
	}

	got := env.base.state.FindProduct(product.ID)
	if got.CurrentStock != 12 {
		t.Fatalf("expected stock 12, got %d", got.CurrentStock)
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestRecordStockOutRejectsInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	stock := NewStockService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 2)

	_, err := stock.RecordStockOut(product.ID, 5, time.Time{}, "")
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Shortfalls) != 1 || stockErr.Shortfalls[0].Available != 2 {
		t.Fatalf("unexpected shortfalls: %+v", stockErr.Shortfalls)
	}

	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 2 {
		t.Fatalf("rejected movement must not change stock, got %d", got)
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestRecordStockRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	stock := NewStockService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 2)

	for _, quantity := range []int{0, -3} {
		if _, err := stock.RecordStockIn(product.ID, quantity, time.Time{}, ""); err == nil {
			t.Fatalf("quantity %d must be rejected", quantity)
		}
	}
}

func TestStockCardRunningBalance(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	stock := NewStockService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	// later than the initial-stock movement's creation time
	base := time.Now().UTC()
	if _, err := stock.RecordStockIn(product.ID, 5, base.Add(time.Hour), ""); err != nil {
		t.Fatalf("RecordStockIn: %v", err)
	}
	if _, err := stock.RecordStockOut(product.ID, 4, base.Add(2*time.Hour), ""); err != nil {
		t.Fatalf("RecordStockOut: %v", err)
	}

	entries, err := stock.StockCard(product.ID)
	if err != nil {
		t.Fatalf("StockCard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	balances := []int{entries[0].Balance, entries[1].Balance, entries[2].Balance}
	want := []int{10, 15, 11}
	for i := range want {
		if balances[i] != want[i] {
			t.Fatalf("running balances %v, want %v", balances, want)
		}
	}
}

func TestStockCardUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	stock := NewStockService(env.base)

	_, err := stock.StockCard("missing")
	var nferr *models.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
