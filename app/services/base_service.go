package services

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"MinimartApp/app/config"
	"MinimartApp/app/database"
	"MinimartApp/app/models"
)

// BaseService carries the shared context every domain service needs: the
// in-memory collections, the local store, the remote gateway and the
// coordinator lock. All services embed the same instance, so every
// mutation across callers, the sync worker and the change feed runs
// serialized under one lock.
type BaseService struct {
	mu       *sync.Mutex
	state    *models.AppState
	store    *database.LocalStore
	gateway  *SyncGateway
	log      *logrus.Logger
	validate *validator.Validate

	refreshHooks []func(collection string)
}

// NewBaseService wires the shared service context.
func NewBaseService(state *models.AppState, store *database.LocalStore, gateway *SyncGateway) *BaseService {
	return &BaseService{
		mu:       &sync.Mutex{},
		state:    state,
		store:    store,
		gateway:  gateway,
		log:      config.GetLogger(),
		validate: validator.New(),
	}
}

// RegisterRefreshHook adds a callback invoked (outside the lock) after a
// collection changed from an external source: a change feed event or a
// full refresh. Register hooks during startup, before any goroutine runs.
func (b *BaseService) RegisterRefreshHook(fn func(collection string)) {
	b.refreshHooks = append(b.refreshHooks, fn)
}

func (b *BaseService) notifyRefresh(collection string) {
	for _, fn := range b.refreshHooks {
		fn(collection)
	}
}

// flushRemote performs the remote writes staged during a mutation.
// Mutators defer it before taking the coordinator lock, so the network
// work runs after the lock is released.
func (b *BaseService) flushRemote() {
	b.gateway.Flush()
}

// saveLocalData persists every collection to the local store. Persist
// failures are logged, never propagated: local state stays authoritative
// and the next successful save catches up.
func (b *BaseService) saveLocalData() {
	if err := b.store.SaveState(b.state); err != nil {
		b.log.WithError(err).Error("failed to persist local data")
	}
}

// validateInput runs struct validation and converts the first failure
// into a ValidationError.
func (b *BaseService) validateInput(v interface{}) error {
	if err := b.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return &models.ValidationError{Field: f.Field(), Message: "failed " + f.Tag() + " check"}
		}
		return &models.ValidationError{Message: err.Error()}
	}
	return nil
}

// recordAsMap converts a typed record into the field map the remote
// ledger takes.
func recordAsMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
