package services

import (
	"errors"
	"testing"

	"MinimartApp/app/models"
)

func TestCreateProductEmitsInitialMovement(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)

	product := mustCreateProduct(t, svc, "PRD-001", "Kopi", 10)

	movements := env.base.state.MovementsFor(product.ID)
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if movements[0].Type != models.MovementIn || movements[0].Quantity != 10 {
		t.Fatalf("unexpected initial movement: %+v", movements[0])
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestCreateProductZeroStockNoMovement(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)

	product := mustCreateProduct(t, svc, "PRD-001", "Kopi", 0)

	if got := len(env.base.state.MovementsFor(product.ID)); got != 0 {
		t.Fatalf("expected no movements, got %d", got)
	}
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)

	mustCreateProduct(t, svc, "PRD-001", "Kopi", 5)
	_, err := svc.CreateProduct(ProductInput{Code: "PRD-001", Name: "Teh"})

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateProductRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)

	_, err := svc.CreateProduct(ProductInput{Name: "No Code"})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(env.base.state.Products) != 0 {
		t.Fatal("rejected input must not mutate state")
	}
}

func TestUpdateProductStockChangeEmitsDeltaMovement(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)
	product := mustCreateProduct(t, svc, "PRD-001", "Kopi", 10)

	updated, err := svc.UpdateProduct(product.ID, ProductInput{
		Code: "PRD-001", Name: "Kopi", CurrentStock: 7, Price: 1500, HPP: 1000,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.CurrentStock != 7 {
		t.Fatalf("expected stock 7, got %d", updated.CurrentStock)
	}

	movements := env.base.state.MovementsFor(product.ID)
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	last := movements[1]
	if last.Type != models.MovementOut || last.Quantity != 3 {
		t.Fatalf("expected out movement of 3, got %+v", last)
	}
	checkLedgerBalance(t, env, product.ID)
}

func TestUpdateProductUnchangedStockNoMovement(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)
	product := mustCreateProduct(t, svc, "PRD-001", "Kopi", 10)

	if _, err := svc.UpdateProduct(product.ID, ProductInput{
		Code: "PRD-001", Name: "Kopi Arabika", CurrentStock: 10, Price: 2000, HPP: 1000,
	}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	if got := len(env.base.state.MovementsFor(product.ID)); got != 1 {
		t.Fatalf("expected only the initial movement, got %d", got)
	}
}

func TestUpdateProductUnknownID(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)

	_, err := svc.UpdateProduct("missing", ProductInput{Code: "X", Name: "X"})
	var nferr *models.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteProductIsIdempotentAndCascades(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.base)
	product := mustCreateProduct(t, svc, "PRD-001", "Kopi", 10)

	if err := svc.DeleteProduct(product.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if err := svc.DeleteProduct(product.ID); err != nil {
		t.Fatalf("second DeleteProduct must be a no-op, got %v", err)
	}

	if len(env.base.state.Products) != 0 {
		t.Fatal("product not removed")
	}
	if len(env.base.state.StockMovements) != 0 {
		t.Fatal("movements not cascaded")
	}
}
