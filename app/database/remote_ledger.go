package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"MinimartApp/app/config"
	"MinimartApp/app/models"
)

// pgPermissionDenied is the PostgreSQL error code for a row-level or
// table-level permission failure. It is classified as fatal rather than
// transient: retrying cannot fix a policy problem.
const pgPermissionDenied = "42501"

// RemoteLedger is the shared record store behind the sync engine. All
// operations address records by collection name; Upsert exists so queue
// replay stays idempotent when a drain crashes mid-pass.
type RemoteLedger interface {
	Insert(ctx context.Context, collection string, record map[string]interface{}) error
	Upsert(ctx context.Context, collection string, record map[string]interface{}) error
	Update(ctx context.Context, collection string, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection string, id string) error
	SelectAll(ctx context.Context, collection string) ([]map[string]interface{}, error)
	Ping(ctx context.Context) error
}

// PostgresLedger implements RemoteLedger on a shared PostgreSQL database.
type PostgresLedger struct {
	db *gorm.DB
}

func buildDSN(cfg *config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)
}

// ConnectPostgres opens the remote ledger connection. The connection is
// lazy: an unreachable server does not fail here, the sync worker's Ping
// probe decides online state.
func ConnectPostgres(cfg *config.DatabaseConfig) (*PostgresLedger, error) {
	db, err := gorm.Open(postgres.Open(buildDSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open remote ledger connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &PostgresLedger{db: db}, nil
}

func (p *PostgresLedger) Insert(ctx context.Context, collection string, record map[string]interface{}) error {
	err := p.db.WithContext(ctx).Table(collection).Create(record).Error
	return wrapRemoteErr("INSERT", collection, err)
}

func (p *PostgresLedger) Upsert(ctx context.Context, collection string, record map[string]interface{}) error {
	err := p.db.WithContext(ctx).Table(collection).
		Clauses(upsertOnConflict(collection, record)).
		Create(record).Error
	return wrapRemoteErr("UPSERT", collection, err)
}

// upsertOnConflict builds the conflict clause for a schemaless map
// create. OnConflict{UpdateAll} needs a model schema gorm does not have
// on a bare Table(), so the key column and assignments are spelled out.
func upsertOnConflict(collection string, record map[string]interface{}) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: models.KeyColumn(collection)}},
		DoUpdates: clause.Assignments(record),
	}
}

func (p *PostgresLedger) Update(ctx context.Context, collection string, id string, fields map[string]interface{}) error {
	err := p.db.WithContext(ctx).Table(collection).Where("id = ?", id).Updates(fields).Error
	return wrapRemoteErr("UPDATE", collection, err)
}

func (p *PostgresLedger) Delete(ctx context.Context, collection string, id string) error {
	err := p.db.WithContext(ctx).Exec(deleteSQL(collection), id).Error
	return wrapRemoteErr("DELETE", collection, err)
}

// deleteSQL deletes by the collection's key column, not a hardcoded id:
// category rows carry only a name.
func deleteSQL(collection string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", collection, models.KeyColumn(collection))
}

func (p *PostgresLedger) SelectAll(ctx context.Context, collection string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := p.db.WithContext(ctx).Table(collection).Find(&rows).Error
	if err != nil {
		return nil, wrapRemoteErr("SELECT", collection, err)
	}
	return rows, nil
}

// Ping probes remote connectivity.
func (p *PostgresLedger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// wrapRemoteErr classifies a remote failure as an authorization denial or
// a transient write error.
func wrapRemoteErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgPermissionDenied {
		return &models.RemoteAuthorizationError{Collections: []string{collection}, Err: err}
	}
	return &models.RemoteWriteError{Op: op, Collection: collection, Err: err}
}

// IsAuthorizationError reports whether err is a permission denial rather
// than a transient failure.
func IsAuthorizationError(err error) bool {
	var authErr *models.RemoteAuthorizationError
	return errors.As(err, &authErr)
}
