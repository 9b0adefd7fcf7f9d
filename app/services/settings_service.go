package services

import (
	"MinimartApp/app/models"
)

// SettingsService manages the singleton store settings.
type SettingsService struct {
	*BaseService
}

// NewSettingsService creates a new settings service.
func NewSettingsService(base *BaseService) *SettingsService {
	return &SettingsService{BaseService: base}
}

// GetSettings returns a copy of the current settings.
func (s *SettingsService) GetSettings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// SaveSettings replaces the settings and upserts the remote singleton
// row {id: 1, data}.
func (s *SettingsService) SaveSettings(settings models.Settings) error {
	if settings.MinStockLimit < 0 {
		return &models.ValidationError{Field: "minStockLimit", Message: "must not be negative"}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Settings = settings
	s.saveLocalData()
	s.gateway.Upsert(models.CollectionSettings, map[string]interface{}{
		"id":   1,
		"data": mustJSON(settings),
	})
	return nil
}
