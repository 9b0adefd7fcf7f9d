package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"MinimartApp/app/models"
)

// openLedgerDB backs the ledger with SQLite so the schemaless map writes
// can run against real tables. The conflict clause syntax is shared with
// PostgreSQL.
func openLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open ledger db: %v", err)
	}
	for _, stmt := range []string{
		"CREATE TABLE products (id TEXT PRIMARY KEY, name TEXT, current_stock INTEGER)",
		"CREATE TABLE categories (name TEXT PRIMARY KEY)",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func TestUpsertOnConflictUpdatesExistingRow(t *testing.T) {
	db := openLedgerDB(t)

	record := map[string]interface{}{"id": "p1", "name": "Kopi", "current_stock": 5}
	if err := db.Table(models.CollectionProducts).
		Clauses(upsertOnConflict(models.CollectionProducts, record)).
		Create(record).Error; err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	record = map[string]interface{}{"id": "p1", "name": "Kopi Premium", "current_stock": 8}
	if err := db.Table(models.CollectionProducts).
		Clauses(upsertOnConflict(models.CollectionProducts, record)).
		Create(record).Error; err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var rows []map[string]interface{}
	if err := db.Table(models.CollectionProducts).Find(&rows).Error; err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("upsert must not duplicate, got %d rows", len(rows))
	}
	if rows[0]["name"] != "Kopi Premium" {
		t.Fatalf("conflicting row not updated: %+v", rows[0])
	}
}

func TestUpsertOnConflictKeysCategoriesByName(t *testing.T) {
	db := openLedgerDB(t)

	record := map[string]interface{}{"name": "Minuman"}
	for i := 0; i < 2; i++ {
		if err := db.Table(models.CollectionCategories).
			Clauses(upsertOnConflict(models.CollectionCategories, record)).
			Create(record).Error; err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Table(models.CollectionCategories).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("name conflict must collapse to one row, got %d", count)
	}
}

func TestDeleteSQLUsesCollectionKeyColumn(t *testing.T) {
	db := openLedgerDB(t)

	if err := db.Exec("INSERT INTO categories (name) VALUES (?)", "Minuman").Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Exec(deleteSQL(models.CollectionCategories), "Minuman").Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := db.Table(models.CollectionCategories).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("category row not deleted by name")
	}

	if err := db.Exec("INSERT INTO products (id, name) VALUES (?, ?)", "p1", "Kopi").Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Exec(deleteSQL(models.CollectionProducts), "p1").Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.Table(models.CollectionProducts).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("product row not deleted by id")
	}
}

func TestWrapRemoteErrClassifiesPermissionDenied(t *testing.T) {
	denied := wrapRemoteErr("UPSERT", models.CollectionProducts, &pgconn.PgError{Code: pgPermissionDenied})
	if !IsAuthorizationError(denied) {
		t.Fatalf("42501 must classify as authorization denial, got %v", denied)
	}

	transient := wrapRemoteErr("UPSERT", models.CollectionProducts, errors.New("connection reset"))
	if IsAuthorizationError(transient) {
		t.Fatal("plain failure must not classify as authorization denial")
	}
	var werr *models.RemoteWriteError
	if !errors.As(transient, &werr) {
		t.Fatalf("expected RemoteWriteError, got %v", transient)
	}
}
