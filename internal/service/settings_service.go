package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"sam-chat-be/internal/constant"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/repository/contract"
)

type ISettingsService interface {
	Load(ctx context.Context)
	Get() entity.Settings
	Update(ctx context.Context, settings entity.Settings) (entity.Settings, error)
}

type settingsService struct {
	mu       sync.RWMutex
	settings entity.Settings
	store    contract.KeyValueRepository
	logger   logger.ILogger
}

func NewSettingsService(store contract.KeyValueRepository, log logger.ILogger) ISettingsService {
	return &settingsService{
		settings: entity.DefaultSettings(),
		store:    store,
		logger:   log,
	}
}

// Load reads the persisted settings; a missing or corrupt blob leaves the defaults.
func (s *settingsService) Load(ctx context.Context) {
	raw, found, err := s.store.Get(ctx, constant.StoreKeySettings)
	if err != nil {
		s.logger.Warn("SETTINGS", "Failed to read settings", map[string]interface{}{"error": err.Error()})
		return
	}
	if !found {
		return
	}

	loaded := entity.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil || validateSettings(loaded) != nil {
		s.logger.Warn("SETTINGS", "Discarding corrupt settings", map[string]interface{}{"raw": raw})
		return
	}

	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()
}

func (s *settingsService) Get() entity.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *settingsService) Update(ctx context.Context, settings entity.Settings) (entity.Settings, error) {
	if err := validateSettings(settings); err != nil {
		return s.Get(), err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	data, err := json.Marshal(settings)
	if err != nil {
		return settings, err
	}
	if err := s.store.Set(ctx, constant.StoreKeySettings, string(data)); err != nil {
		s.logger.Warn("SETTINGS", "Failed to persist settings", map[string]interface{}{"error": err.Error()})
	}
	return settings, nil
}

func validateSettings(settings entity.Settings) error {
	if !settings.Theme.Valid() {
		return fmt.Errorf("%w: theme %q", ErrInvalidSettings, settings.Theme)
	}
	if !settings.Personality.Valid() {
		return fmt.Errorf("%w: personality %q", ErrInvalidSettings, settings.Personality)
	}
	return nil
}
