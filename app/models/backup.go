package models

import "time"

// BackupKeys are the top-level fields a backup file must contain. Restore
// hard-fails if any is missing, so a truncated or foreign JSON file can
// never wipe collections it does not carry.
var BackupKeys = []string{
	"products",
	"categories",
	"stockMovements",
	"orders",
	"sales",
	"settings",
}

// BackupFile is the on-disk JSON snapshot of the full dataset.
type BackupFile struct {
	Products       []Product       `json:"products"`
	Categories     []Category      `json:"categories"`
	StockMovements []StockMovement `json:"stockMovements"`
	Orders         []Order         `json:"orders"`
	Sales          []Sale          `json:"sales"`
	Settings       Settings        `json:"settings"`
	Timestamp      time.Time       `json:"timestamp"`
}
