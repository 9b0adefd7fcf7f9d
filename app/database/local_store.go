package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"MinimartApp/app/models"
)

// LocalStore persists the synchronized collections and the durable sync
// queue in a local SQLite database, so optimistic state and pending
// remote writes survive restarts.
type LocalStore struct {
	db *gorm.DB
}

// localRecord is one collection snapshot, JSON-serialized under its
// collection key.
type localRecord struct {
	Key       string `gorm:"primaryKey"`
	Data      string `gorm:"type:text"`
	UpdatedAt time.Time
}

// OpenLocalStore opens (or creates) the local database at path.
func OpenLocalStore(path string) (*LocalStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create local data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	if err := db.AutoMigrate(&localRecord{}, &models.SyncQueueEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	return &LocalStore{db: db}, nil
}

// Get reads the collection stored under key into out. A missing key or a
// value that fails to parse returns false and leaves the caller's typed
// default in place.
func (l *LocalStore) Get(key string, out interface{}) bool {
	var rec localRecord
	if err := l.db.First(&rec, "key = ?", key).Error; err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(rec.Data), out); err != nil {
		return false
	}
	return true
}

// Put serializes v and stores it under key, replacing any previous value.
func (l *LocalStore) Put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	rec := localRecord{Key: key, Data: string(data)}
	if err := l.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// LoadState reads every collection, falling back to typed defaults for
// anything absent or unparseable.
func (l *LocalStore) LoadState() *models.AppState {
	state := models.NewAppState()
	l.Get(models.CollectionProducts, &state.Products)
	l.Get(models.CollectionCategories, &state.Categories)
	l.Get(models.CollectionStockMovements, &state.StockMovements)
	l.Get(models.CollectionOrders, &state.Orders)
	l.Get(models.CollectionSales, &state.Sales)

	var settings models.Settings
	if l.Get(models.CollectionSettings, &settings) {
		state.Settings = settings
	}
	if len(state.Categories) == 0 {
		state.Categories = models.DefaultCategories()
	}
	return state
}

// SaveState persists every collection. The first failure is returned but
// remaining collections are still attempted.
func (l *LocalStore) SaveState(state *models.AppState) error {
	var firstErr error
	save := func(key string, v interface{}) {
		if err := l.Put(key, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	save(models.CollectionProducts, state.Products)
	save(models.CollectionCategories, state.Categories)
	save(models.CollectionStockMovements, state.StockMovements)
	save(models.CollectionOrders, state.Orders)
	save(models.CollectionSales, state.Sales)
	save(models.CollectionSettings, state.Settings)
	return firstErr
}

// AppendQueue adds one entry at the tail of the sync queue.
func (l *LocalStore) AppendQueue(entry *models.SyncQueueEntry) error {
	if err := l.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to queue remote write: %w", err)
	}
	return nil
}

// LoadQueue returns all pending entries in enqueue order.
func (l *LocalStore) LoadQueue() ([]models.SyncQueueEntry, error) {
	var entries []models.SyncQueueEntry
	if err := l.db.Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load sync queue: %w", err)
	}
	return entries, nil
}

// QueueLength returns the number of pending entries.
func (l *LocalStore) QueueLength() (int, error) {
	var count int64
	if err := l.db.Model(&models.SyncQueueEntry{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sync queue: %w", err)
	}
	return int(count), nil
}

// RemoveQueueEntries deletes the given entries by id. Entries appended
// while a drain pass was in flight are untouched, as are entries whose
// replay failed.
func (l *LocalStore) RemoveQueueEntries(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := l.db.Delete(&models.SyncQueueEntry{}, ids).Error; err != nil {
		return fmt.Errorf("failed to remove replayed queue entries: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (l *LocalStore) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
