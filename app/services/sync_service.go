package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"MinimartApp/app/config"
	"MinimartApp/app/database"
	"MinimartApp/app/models"
)

const remoteWriteTimeout = 15 * time.Second

// SyncGateway wraps the remote ledger with the optimistic write contract:
// a write is attempted when online and queued durably on any failure or
// while offline. The caller's local mutation is never rolled back, so
// gateway methods return nothing.
//
// Writes are staged, not performed, at call time: mutators stage while
// holding the coordinator lock and call Flush after releasing it, so a
// hanging remote connection never stalls other mutators or the feed.
// Submission order under the lock fixes the perform order.
type SyncGateway struct {
	ledger  database.RemoteLedger
	store   *database.LocalStore
	monitor *ConnectivityMonitor
	log     *logrus.Logger

	stageMu sync.Mutex
	staged  []stagedWrite
	flushMu sync.Mutex
}

// stagedWrite is one remote write captured with its payload frozen at
// stage time.
type stagedWrite struct {
	op         models.SyncOp
	upsert     bool
	collection string
	recordID   string
	payload    string
}

// NewSyncGateway wires the gateway. ledger may be backed by any
// RemoteLedger implementation.
func NewSyncGateway(ledger database.RemoteLedger, store *database.LocalStore, monitor *ConnectivityMonitor) *SyncGateway {
	return &SyncGateway{
		ledger:  ledger,
		store:   store,
		monitor: monitor,
		log:     config.GetLogger(),
	}
}

// Create stages a new-record push.
func (g *SyncGateway) Create(collection string, record interface{}) {
	g.stage(stagedWrite{op: models.SyncOpCreate, collection: collection, payload: mustJSON(record)})
}

// Upsert stages a push of a record that may already exist remotely
// (settings singleton, restore pushes). Queued as CREATE since replay
// upserts.
func (g *SyncGateway) Upsert(collection string, record interface{}) {
	g.stage(stagedWrite{op: models.SyncOpCreate, upsert: true, collection: collection, payload: mustJSON(record)})
}

// Update stages a changed-fields push for an existing record.
func (g *SyncGateway) Update(collection, id string, fields map[string]interface{}) {
	g.stage(stagedWrite{op: models.SyncOpUpdate, collection: collection, recordID: id, payload: mustJSON(fields)})
}

// Delete stages a record deletion, keyed by the collection's key column.
func (g *SyncGateway) Delete(collection, id string) {
	g.stage(stagedWrite{op: models.SyncOpDelete, collection: collection, recordID: id})
}

func (g *SyncGateway) stage(w stagedWrite) {
	g.stageMu.Lock()
	g.staged = append(g.staged, w)
	g.stageMu.Unlock()
}

// Flush performs staged writes in submission order: against the remote
// ledger when online, enqueued durably on failure or while offline.
// Mutators defer Flush before taking the coordinator lock, so it runs
// once the lock is released.
func (g *SyncGateway) Flush() {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()
	for {
		g.stageMu.Lock()
		batch := g.staged
		g.staged = nil
		g.stageMu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, w := range batch {
			g.perform(w)
		}
	}
}

func (g *SyncGateway) perform(w stagedWrite) {
	if !g.monitor.IsOnline() {
		g.enqueue(w.op, w.collection, w.recordID, w.payload)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()

	var err error
	switch {
	case w.op == models.SyncOpCreate && w.upsert:
		err = g.ledger.Upsert(ctx, w.collection, decodeFields(w.payload))
	case w.op == models.SyncOpCreate:
		err = g.ledger.Insert(ctx, w.collection, decodeFields(w.payload))
	case w.op == models.SyncOpUpdate:
		err = g.ledger.Update(ctx, w.collection, w.recordID, decodeFields(w.payload))
	default:
		err = g.ledger.Delete(ctx, w.collection, w.recordID)
	}
	if err != nil {
		g.logWriteFailure(w.collection, err)
		g.enqueue(w.op, w.collection, w.recordID, w.payload)
	}
}

func (g *SyncGateway) enqueue(op models.SyncOp, collection, id, payload string) {
	entry := &models.SyncQueueEntry{
		Op:         op,
		Collection: collection,
		RecordID:   id,
		Payload:    payload,
	}
	if err := g.store.AppendQueue(entry); err != nil {
		g.log.WithError(err).WithFields(logrus.Fields{
			"op":         op,
			"collection": collection,
		}).Error("failed to queue remote write, change will not reach the remote ledger")
	}
}

func (g *SyncGateway) logWriteFailure(collection string, err error) {
	entry := g.log.WithError(err).WithField("collection", collection)
	if database.IsAuthorizationError(err) {
		entry.Error("remote ledger denied the write, check access policies")
		return
	}
	entry.Warn("remote write failed, queued for replay")
}

// QueueLength returns the number of pending queued writes.
func (g *SyncGateway) QueueLength() (int, error) {
	return g.store.QueueLength()
}

// Drain replays queued writes in enqueue order, then removes only the
// entries this pass replayed. Failed entries and anything a mutator
// enqueued while the pass was in flight keep their ids and order. An
// authorization denial stops the pass immediately and is returned;
// everything not yet replayed stays queued.
func (g *SyncGateway) Drain(ctx context.Context) (remaining int, err error) {
	entries, err := g.store.LoadQueue()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	g.log.WithField("pending", len(entries)).Info("draining sync queue")

	var replayed []uint
	var authErr error
	for _, entry := range entries {
		replayErr := g.replay(ctx, entry)
		if replayErr == nil {
			replayed = append(replayed, entry.ID)
			continue
		}
		if database.IsAuthorizationError(replayErr) {
			authErr = replayErr
			break
		}
		g.log.WithError(replayErr).WithFields(logrus.Fields{
			"op":         entry.Op,
			"collection": entry.Collection,
		}).Warn("replay failed, keeping entry queued")
	}

	if rmErr := g.store.RemoveQueueEntries(replayed); rmErr != nil {
		return len(entries), rmErr
	}
	remaining, lenErr := g.store.QueueLength()
	if lenErr != nil {
		return 0, lenErr
	}
	return remaining, authErr
}

// replay re-issues one queued write. CREATE replays as an upsert so a
// crash between a successful insert and the queue removal cannot produce
// duplicates on the next pass.
func (g *SyncGateway) replay(ctx context.Context, entry models.SyncQueueEntry) error {
	switch entry.Op {
	case models.SyncOpCreate:
		return g.ledger.Upsert(ctx, entry.Collection, decodeFields(entry.Payload))
	case models.SyncOpUpdate:
		return g.ledger.Update(ctx, entry.Collection, entry.RecordID, decodeFields(entry.Payload))
	case models.SyncOpDelete:
		return g.ledger.Delete(ctx, entry.Collection, entry.RecordID)
	default:
		return fmt.Errorf("unknown sync op %q", entry.Op)
	}
}

// ReplaceCollection stages a full snapshot push of one collection:
// remote rows absent from the snapshot are deleted, every snapshot
// record is upserted. Failures degrade to the queue like any other
// write. Records are keyed by the collection's key column.
func (g *SyncGateway) ReplaceCollection(ctx context.Context, collection string, records []map[string]interface{}) {
	keyField := models.KeyColumn(collection)
	keep := make(map[string]bool, len(records))
	for _, record := range records {
		if id, ok := record[keyField].(string); ok {
			keep[id] = true
		}
	}

	if g.monitor.IsOnline() {
		rows, err := g.ledger.SelectAll(ctx, collection)
		if err != nil {
			g.log.WithError(err).WithField("collection", collection).
				Warn("could not list remote rows, stale rows may remain")
		} else {
			for _, row := range rows {
				id := stringField(row, keyField)
				if id != "" && !keep[id] {
					g.Delete(collection, id)
				}
			}
		}
	}

	for _, record := range records {
		g.Upsert(collection, record)
	}
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeFields(payload string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

func stringField(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// SyncService coordinates queue draining with full refreshes from the
// remote ledger.
type SyncService struct {
	*BaseService
	fatal error
}

// NewSyncService wires the sync coordinator.
func NewSyncService(base *BaseService) *SyncService {
	return &SyncService{BaseService: base}
}

// FatalError returns the authorization error that blocked syncing, if
// any. Once set, the worker stops touching the remote until restart.
func (s *SyncService) FatalError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

func (s *SyncService) setFatal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fatal = err
}

// QueueLength returns the number of pending queued writes.
func (s *SyncService) QueueLength() (int, error) {
	return s.gateway.QueueLength()
}

// DrainAndRefresh runs one drain pass and, only when the queue fully
// drained, pulls every collection from the remote ledger. A non-empty
// queue skips the refresh: refreshing while local writes are still
// pending would clobber unsynced state with stale remote data.
func (s *SyncService) DrainAndRefresh(ctx context.Context) error {
	remaining, err := s.gateway.Drain(ctx)
	if err != nil {
		if database.IsAuthorizationError(err) {
			s.setFatal(err)
		}
		return err
	}
	if remaining > 0 {
		s.log.WithField("pending", remaining).Warn("sync queue not fully drained, skipping refresh")
		return nil
	}
	return s.RefreshAll(ctx)
}

// RefreshAll replaces every local collection with the remote contents.
// All collections are fetched before anything is applied, and a
// permission denial on any of them aborts the whole refresh: a partial
// refresh would mix fresh and stale collections and silently hide the
// policy problem.
func (s *SyncService) RefreshAll(ctx context.Context) error {
	pulled := make(map[string][]map[string]interface{}, len(models.Collections))
	var denied []string
	var firstAuthErr error

	for _, collection := range models.Collections {
		rows, err := s.gateway.ledger.SelectAll(ctx, collection)
		if err != nil {
			if database.IsAuthorizationError(err) {
				denied = append(denied, collection)
				if firstAuthErr == nil {
					firstAuthErr = err
				}
				continue
			}
			return fmt.Errorf("refresh of %s failed: %w", collection, err)
		}
		pulled[collection] = rows
	}

	if len(denied) > 0 {
		authErr := &models.RemoteAuthorizationError{Collections: denied, Err: firstAuthErr}
		s.setFatal(authErr)
		return authErr
	}

	s.mu.Lock()
	decodeRows(pulled[models.CollectionProducts], &s.state.Products)
	decodeRows(pulled[models.CollectionCategories], &s.state.Categories)
	decodeRows(pulled[models.CollectionStockMovements], &s.state.StockMovements)
	decodeRows(pulled[models.CollectionOrders], &s.state.Orders)
	decodeRows(pulled[models.CollectionSales], &s.state.Sales)
	if settings, ok := decodeSettingsRow(pulled[models.CollectionSettings]); ok {
		s.state.Settings = settings
	}
	s.saveLocalData()
	s.mu.Unlock()

	s.log.Info("local data refreshed from remote ledger")
	s.notifyRefresh("")
	return nil
}

// decodeRows converts raw remote rows into a typed slice via a JSON
// round trip. An empty result still resets the target slice.
func decodeRows(rows []map[string]interface{}, out interface{}) {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, out)
}

// decodeSettingsRow unpacks the settings singleton row {id: 1, data}.
// The data column arrives as a JSON string or an already-decoded map
// depending on the driver.
func decodeSettingsRow(rows []map[string]interface{}) (models.Settings, bool) {
	var settings models.Settings
	if len(rows) == 0 {
		return settings, false
	}
	raw, ok := rows[0]["data"]
	if !ok {
		return settings, false
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return settings, false
		}
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return settings, false
	}
	return settings, true
}
