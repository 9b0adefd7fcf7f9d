package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"MinimartApp/app/database"
	"MinimartApp/app/models"
)

// fakeLedger is an in-memory RemoteLedger with scriptable failures.
// writeErrs is consumed one entry per write call (nil means success);
// selectErrs fails SelectAll for specific collections; onWrite, when
// set, runs at the start of every write call.
type fakeLedger struct {
	mu         sync.Mutex
	records    map[string]map[string]map[string]interface{}
	writeErrs  []error
	selectErrs map[string]error
	pingErr    error
	writeLog   []string
	onWrite    func(op, collection string)
}

func (f *fakeLedger) fireWrite(op, collection string) {
	if f.onWrite != nil {
		f.onWrite(op, collection)
	}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		records:    map[string]map[string]map[string]interface{}{},
		selectErrs: map[string]error{},
	}
}

func (f *fakeLedger) scriptWrites(errs ...error) {
	f.mu.Lock()
	f.writeErrs = errs
	f.mu.Unlock()
}

func (f *fakeLedger) nextWriteErr() error {
	if len(f.writeErrs) == 0 {
		return nil
	}
	err := f.writeErrs[0]
	f.writeErrs = f.writeErrs[1:]
	return err
}

func (f *fakeLedger) table(collection string) map[string]map[string]interface{} {
	if f.records[collection] == nil {
		f.records[collection] = map[string]map[string]interface{}{}
	}
	return f.records[collection]
}

func recordKey(record map[string]interface{}) string {
	if id, ok := record["id"].(string); ok && id != "" {
		return id
	}
	if name, ok := record["name"].(string); ok && name != "" {
		return name
	}
	return fmt.Sprint(record["id"])
}

func (f *fakeLedger) Insert(_ context.Context, collection string, record map[string]interface{}) error {
	f.fireWrite("INSERT", collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextWriteErr(); err != nil {
		return err
	}
	f.writeLog = append(f.writeLog, "INSERT "+collection)
	f.table(collection)[recordKey(record)] = record
	return nil
}

func (f *fakeLedger) Upsert(_ context.Context, collection string, record map[string]interface{}) error {
	f.fireWrite("UPSERT", collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextWriteErr(); err != nil {
		return err
	}
	f.writeLog = append(f.writeLog, "UPSERT "+collection)
	f.table(collection)[recordKey(record)] = record
	return nil
}

func (f *fakeLedger) Update(_ context.Context, collection, id string, fields map[string]interface{}) error {
	f.fireWrite("UPDATE", collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextWriteErr(); err != nil {
		return err
	}
	f.writeLog = append(f.writeLog, "UPDATE "+collection)
	if existing, ok := f.table(collection)[id]; ok {
		for k, v := range fields {
			existing[k] = v
		}
	}
	return nil
}

func (f *fakeLedger) Delete(_ context.Context, collection, id string) error {
	f.fireWrite("DELETE", collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextWriteErr(); err != nil {
		return err
	}
	f.writeLog = append(f.writeLog, "DELETE "+collection)
	delete(f.table(collection), id)
	return nil
}

func (f *fakeLedger) SelectAll(_ context.Context, collection string) ([]map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.selectErrs[collection]; err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, 0, len(f.records[collection]))
	for _, record := range f.records[collection] {
		rows = append(rows, record)
	}
	return rows, nil
}

func (f *fakeLedger) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

type testEnv struct {
	base    *BaseService
	ledger  *fakeLedger
	store   *database.LocalStore
	monitor *ConnectivityMonitor
	gateway *SyncGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := database.OpenLocalStore(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("OpenLocalStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ledger := newFakeLedger()
	monitor := NewConnectivityMonitor()
	monitor.SetOnline(true)
	gateway := NewSyncGateway(ledger, store, monitor)
	base := NewBaseService(models.NewAppState(), store, gateway)

	return &testEnv{
		base:    base,
		ledger:  ledger,
		store:   store,
		monitor: monitor,
		gateway: gateway,
	}
}

func mustCreateProduct(t *testing.T, svc *ProductService, code, name string, stock int) models.Product {
	t.Helper()
	product, err := svc.CreateProduct(ProductInput{
		Code:         code,
		Name:         name,
		Category:     "Makanan",
		HPP:          1000,
		Price:        1500,
		CurrentStock: stock,
		Unit:         "pcs",
	})
	if err != nil {
		t.Fatalf("CreateProduct %s: %v", code, err)
	}
	return *product
}

// checkLedgerBalance asserts that a product's cached stock matches the
// balance reconstructed from its movements.
func checkLedgerBalance(t *testing.T, env *testEnv, productID string) {
	t.Helper()
	product := env.base.state.FindProduct(productID)
	if product == nil {
		t.Fatalf("product %s not found", productID)
	}
	balance := env.base.state.LedgerBalance(productID)
	if product.CurrentStock != balance {
		t.Fatalf("stock %d does not match ledger balance %d", product.CurrentStock, balance)
	}
}
