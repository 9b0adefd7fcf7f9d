package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"MinimartApp/app/models"
)

// BackupService produces and restores full JSON snapshots of the
// dataset.
type BackupService struct {
	*BaseService
}

// NewBackupService creates a new backup service.
func NewBackupService(base *BaseService) *BackupService {
	return &BackupService{BaseService: base}
}

// CreateBackup snapshots every collection.
func (s *BackupService) CreateBackup() models.BackupFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := models.BackupFile{
		Products:       append([]models.Product{}, s.state.Products...),
		Categories:     append([]models.Category{}, s.state.Categories...),
		StockMovements: append([]models.StockMovement{}, s.state.StockMovements...),
		Orders:         append([]models.Order{}, s.state.Orders...),
		Sales:          append([]models.Sale{}, s.state.Sales...),
		Settings:       s.state.Settings,
		Timestamp:      time.Now().UTC(),
	}
	return snapshot
}

// WriteBackup writes the snapshot as indented JSON to path.
func (s *BackupService) WriteBackup(path string) error {
	snapshot := s.CreateBackup()
	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	s.log.WithField("path", path).Info("backup written")
	return nil
}

// Restore wholesale-replaces every collection from a snapshot. Any
// missing top-level key fails the restore before state is touched, so a
// truncated file can never wipe collections it does not carry. The
// snapshot is then pushed to the remote ledger through the gateway;
// remote failures queue like any other write.
func (s *BackupService) Restore(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &models.ValidationError{Message: "invalid backup file: " + err.Error()}
	}
	for _, key := range models.BackupKeys {
		if _, ok := raw[key]; !ok {
			return &models.ValidationError{Field: key, Message: "missing required backup key"}
		}
	}

	var snapshot models.BackupFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return &models.ValidationError{Message: "invalid backup contents: " + err.Error()}
	}

	s.mu.Lock()
	s.state.Products = orEmptyProducts(snapshot.Products)
	s.state.Categories = orEmptyCategories(snapshot.Categories)
	s.state.StockMovements = orEmptyMovements(snapshot.StockMovements)
	s.state.Orders = orEmptyOrders(snapshot.Orders)
	s.state.Sales = orEmptySales(snapshot.Sales)
	s.state.Settings = snapshot.Settings

	// make sure every category referenced by a product exists
	for _, product := range s.state.Products {
		if product.Category != "" && !s.state.HasCategory(product.Category) {
			s.state.Categories = append(s.state.Categories, models.Category{Name: product.Category})
		}
	}

	s.saveLocalData()
	push := restoredSnapshot{
		products:   recordsOf(s.state.Products),
		categories: recordsOf(s.state.Categories),
		movements:  recordsOf(s.state.StockMovements),
		orders:     recordsOf(s.state.Orders),
		sales:      recordsOf(s.state.Sales),
		settings:   mustJSON(s.state.Settings),
	}
	s.mu.Unlock()

	s.pushSnapshot(push)
	s.log.Info("backup restored")
	s.notifyRefresh("")
	return nil
}

// RestoreFile reads and restores a backup file.
func (s *BackupService) RestoreFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}
	return s.Restore(data)
}

// restoredSnapshot is the remote push payload captured under the lock.
type restoredSnapshot struct {
	products   []map[string]interface{}
	categories []map[string]interface{}
	movements  []map[string]interface{}
	orders     []map[string]interface{}
	sales      []map[string]interface{}
	settings   string
}

// pushSnapshot replaces every remote collection with the restored state.
// Runs outside the coordinator lock; the remote reads and writes go
// through the gateway so failures queue.
func (s *BackupService) pushSnapshot(push restoredSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.gateway.ReplaceCollection(ctx, models.CollectionProducts, push.products)
	s.gateway.ReplaceCollection(ctx, models.CollectionCategories, push.categories)
	s.gateway.ReplaceCollection(ctx, models.CollectionStockMovements, push.movements)
	s.gateway.ReplaceCollection(ctx, models.CollectionOrders, push.orders)
	s.gateway.ReplaceCollection(ctx, models.CollectionSales, push.sales)
	s.gateway.Upsert(models.CollectionSettings, map[string]interface{}{
		"id":   1,
		"data": push.settings,
	})
	s.gateway.Flush()
}

func recordsOf(v interface{}) []map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

func orEmptyProducts(v []models.Product) []models.Product {
	if v == nil {
		return []models.Product{}
	}
	return v
}

func orEmptyCategories(v []models.Category) []models.Category {
	if v == nil {
		return []models.Category{}
	}
	return v
}

func orEmptyMovements(v []models.StockMovement) []models.StockMovement {
	if v == nil {
		return []models.StockMovement{}
	}
	return v
}

func orEmptyOrders(v []models.Order) []models.Order {
	if v == nil {
		return []models.Order{}
	}
	return v
}

func orEmptySales(v []models.Sale) []models.Sale {
	if v == nil {
		return []models.Sale{}
	}
	return v
}
