package services

import (
	"encoding/json"

	"MinimartApp/app/models"
)

// ChangeFeedService merges externally sourced change events into the
// local collections. It backs the websocket listener; the local mutators
// never go through here, so a record inserted locally and echoed back by
// the feed is simply ignored as a duplicate.
type ChangeFeedService struct {
	*BaseService
}

// NewChangeFeedService creates a new change feed service.
func NewChangeFeedService(base *BaseService) *ChangeFeedService {
	return &ChangeFeedService{BaseService: base}
}

// HandleChange applies one INSERT/UPDATE/DELETE notification. Inserts are
// idempotent against duplicate delivery. An UPDATE for an unknown id is
// dropped: an event delivered before its INSERT is tolerated as a lost
// update, not an error.
func (s *ChangeFeedService) HandleChange(event models.ChangeEvent) {
	s.mu.Lock()

	changed := false
	switch event.Collection {
	case models.CollectionProducts:
		changed = applyChange(&s.state.Products, event, func(p models.Product) string { return p.ID })
	case models.CollectionCategories:
		changed = applyChange(&s.state.Categories, event, func(c models.Category) string { return c.Name })
	case models.CollectionStockMovements:
		changed = applyChange(&s.state.StockMovements, event, func(m models.StockMovement) string { return m.ID })
	case models.CollectionOrders:
		changed = applyChange(&s.state.Orders, event, func(o models.Order) string { return o.ID })
	case models.CollectionSales:
		changed = applyChange(&s.state.Sales, event, func(sl models.Sale) string { return sl.ID })
	case models.CollectionSettings:
		changed = s.applySettingsChange(event)
	default:
		s.log.WithField("collection", event.Collection).Warn("change event for unknown collection dropped")
	}

	if changed {
		s.saveLocalData()
	}
	s.mu.Unlock()

	if changed {
		s.notifyRefresh(event.Collection)
	}
}

// applySettingsChange unpacks a settings row event. Caller holds the
// lock.
func (s *ChangeFeedService) applySettingsChange(event models.ChangeEvent) bool {
	if event.Type == models.ChangeDelete {
		return false
	}
	var row struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(event.Record, &row); err != nil || len(row.Data) == 0 {
		return false
	}
	data := row.Data
	// the data column may arrive double-encoded
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		data = []byte(asString)
	}
	var settings models.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return false
	}
	s.state.Settings = settings
	return true
}

// applyChange merges one event into a collection and reports whether
// anything changed.
func applyChange[T any](items *[]T, event models.ChangeEvent, id func(T) string) bool {
	switch event.Type {
	case models.ChangeInsert:
		var record T
		if err := json.Unmarshal(event.Record, &record); err != nil {
			return false
		}
		for _, existing := range *items {
			if id(existing) == id(record) {
				return false
			}
		}
		*items = append(*items, record)
		return true

	case models.ChangeUpdate:
		var record T
		if err := json.Unmarshal(event.Record, &record); err != nil {
			return false
		}
		for i, existing := range *items {
			if id(existing) == id(record) {
				(*items)[i] = record
				return true
			}
		}
		return false

	case models.ChangeDelete:
		source := event.OldRecord
		if len(source) == 0 {
			source = event.Record
		}
		var record T
		if err := json.Unmarshal(source, &record); err != nil {
			return false
		}
		for i, existing := range *items {
			if id(existing) == id(record) {
				*items = append((*items)[:i], (*items)[i+1:]...)
				return true
			}
		}
		return false
	}
	return false
}
