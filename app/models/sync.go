package models

import (
	"encoding/json"
	"time"
)

// Collection names, shared between the local store keys and the remote
// ledger table names.
const (
	CollectionProducts       = "products"
	CollectionCategories     = "categories"
	CollectionStockMovements = "stock_movements"
	CollectionOrders         = "orders"
	CollectionSales          = "sales"
	CollectionSettings       = "settings"
)

// Collections lists every synchronized collection in refresh order.
var Collections = []string{
	CollectionProducts,
	CollectionCategories,
	CollectionStockMovements,
	CollectionOrders,
	CollectionSales,
	CollectionSettings,
}

// KeyColumn returns the identifying column of a collection's remote
// table. Categories are keyed by name, everything else by id.
func KeyColumn(collection string) string {
	if collection == CollectionCategories {
		return "name"
	}
	return "id"
}

// SyncOp is the kind of a queued remote write.
type SyncOp string

const (
	SyncOpCreate SyncOp = "CREATE"
	SyncOpUpdate SyncOp = "UPDATE"
	SyncOpDelete SyncOp = "DELETE"
)

// SyncQueueEntry is one remote write awaiting replay. The auto-increment
// ID preserves enqueue order across restarts; drains replay entries in
// ascending ID order. Payload holds the full record JSON for CREATE and
// the changed-fields JSON for UPDATE; DELETE carries only RecordID.
type SyncQueueEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Op         SyncOp    `json:"op"`
	Collection string    `json:"collection"`
	RecordID   string    `json:"record_id"`
	Payload    string    `gorm:"type:text" json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChangeEventType tags a change-feed notification.
type ChangeEventType string

const (
	ChangeInsert ChangeEventType = "INSERT"
	ChangeUpdate ChangeEventType = "UPDATE"
	ChangeDelete ChangeEventType = "DELETE"
)

// ChangeEvent is one push notification from the remote ledger's change
// feed. DELETE events carry the removed row in OldRecord.
type ChangeEvent struct {
	Collection string          `json:"collection"`
	Type       ChangeEventType `json:"event_type"`
	Record     json.RawMessage `json:"record"`
	OldRecord  json.RawMessage `json:"old_record,omitempty"`
}
