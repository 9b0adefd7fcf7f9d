package services

import (
	"errors"
	"testing"
	"time"

	"MinimartApp/app/models"
)

func TestCreateSalePaidDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != models.SaleStatusPaid {
		t.Fatalf("expected paid, got %s", sale.Status)
	}
	if sale.TotalAmount != 6000 {
		t.Fatalf("expected total 6000, got %v", sale.TotalAmount)
	}
	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 6 {
		t.Fatalf("expected stock 6, got %d", got)
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestCreateSaleUnpaidStillDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentUnpaid,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != models.SaleStatusUnpaid {
		t.Fatalf("expected unpaid, got %s", sale.Status)
	}
	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 6 {
		t.Fatalf("unpaid sale must decrement stock, got %d", got)
	}
}

func TestCreateSaleIndentDefersDecrements(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	inStock := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)
	outOfStock := mustCreateProduct(t, products, "PRD-002", "Teh", 1)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items: []SaleItemInput{
			{ProductID: inStock.ID, Quantity: 4},
			{ProductID: outOfStock.ID, Quantity: 5, IsIndent: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != models.SaleStatusIndent {
		t.Fatalf("expected indent, got %s", sale.Status)
	}
	if got := env.base.state.FindProduct(inStock.ID).CurrentStock; got != 10 {
		t.Fatalf("indent sale must not decrement any stock, got %d", got)
	}
	if got := len(env.base.state.MovementsFor(inStock.ID)); got != 1 {
		t.Fatalf("indent sale must not emit movements, got %d", got)
	}
}

func TestCreateSaleRejectsInsufficientStockListingAllShortfalls(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	first := mustCreateProduct(t, products, "PRD-001", "Kopi", 2)
	second := mustCreateProduct(t, products, "PRD-002", "Teh", 1)

	_, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items: []SaleItemInput{
			{ProductID: first.ID, Quantity: 5},
			{ProductID: second.ID, Quantity: 3},
		},
	})
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Shortfalls) != 2 {
		t.Fatalf("expected 2 shortfalls, got %+v", stockErr.Shortfalls)
	}
	if len(env.base.state.Sales) != 0 {
		t.Fatal("rejected sale must not be recorded")
	}
}

func TestCreateSaleAggregatesRepeatedProduct(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 5)

	_, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items: []SaleItemInput{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, Quantity: 3},
		},
	})
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("combined demand above stock must fail, got %v", err)
	}
}

func TestConfirmIndentPaymentAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	stock := NewStockService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 1)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 5, IsIndent: true}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	err = sales.ConfirmIndentPayment(sale.ID)
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if env.base.state.FindSale(sale.ID).Status != models.SaleStatusIndent {
		t.Fatal("failed confirmation must leave the sale indent")
	}

	if _, err := stock.RecordStockIn(product.ID, 10, time.Time{}, "restock"); err != nil {
		t.Fatalf("RecordStockIn: %v", err)
	}
	if err := sales.ConfirmIndentPayment(sale.ID); err != nil {
		t.Fatalf("ConfirmIndentPayment after restock: %v", err)
	}

	if env.base.state.FindSale(sale.ID).Status != models.SaleStatusPaid {
		t.Fatal("confirmed sale must be paid")
	}
	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 6 {
		t.Fatalf("expected stock 6 after deferred decrement, got %d", got)
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestConfirmUnpaidSaleOnlyFlipsStatus(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentUnpaid,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if err := sales.ConfirmIndentPayment(sale.ID); err != nil {
		t.Fatalf("ConfirmIndentPayment: %v", err)
	}
	if env.base.state.FindSale(sale.ID).Status != models.SaleStatusPaid {
		t.Fatal("unpaid sale must settle to paid")
	}
	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 6 {
		t.Fatalf("settling a debt must not decrement stock again, got %d", got)
	}
}

func TestDeleteSaleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	movementsBefore := len(env.base.state.MovementsFor(product.ID))

	if err := sales.DeleteSale(sale.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}

	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}
	movements := env.base.state.MovementsFor(product.ID)
	if len(movements) != movementsBefore+1 {
		t.Fatalf("reversal must append a compensating movement, got %d", len(movements))
	}
	last := movements[len(movements)-1]
	if last.Type != models.MovementIn || last.Quantity != 4 || last.OriginatingSaleID != sale.ID {
		t.Fatalf("unexpected compensating movement: %+v", last)
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestDeleteIndentSaleHasNoStockEffect(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 10)

	sale, err := sales.CreateSale(SaleInput{
		CustomerName:  "Budi",
		PaymentMethod: models.PaymentCash,
		Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 4, IsIndent: true}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if err := sales.DeleteSale(sale.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if got := env.base.state.FindProduct(product.ID).CurrentStock; got != 10 {
		t.Fatalf("indent delete must not touch stock, got %d", got)
	}
	if got := len(env.base.state.MovementsFor(product.ID)); got != 1 {
		t.Fatalf("indent delete must not emit movements, got %d", got)
	}
}

func TestSalesBetweenAndSummarize(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductService(env.base)
	sales := NewSalesService(env.base)
	product := mustCreateProduct(t, products, "PRD-001", "Kopi", 100)

	dates := []time.Time{
		time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if _, err := sales.CreateSale(SaleInput{
			CustomerName:  "Budi",
			SaleDate:      d,
			PaymentMethod: models.PaymentCash,
			Items:         []SaleItemInput{{ProductID: product.ID, Quantity: 2}},
		}); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}

	filtered := sales.SalesBetween(
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 sale in range, got %d", len(filtered))
	}

	summary := Summarize(sales.GetSales())
	if summary.Count != 3 || summary.TotalAmount != 9000 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
