package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kursadbilgin/fitting-request/internal/settings"
	"go.uber.org/zap"
)

// SettingsService persists admin settings as one JSON option.
type SettingsService struct {
	options    OptionStore
	validator  SettingsValidator
	adminEmail string
	logger     *zap.Logger
}

func NewSettingsService(options OptionStore, settingsValidator SettingsValidator, adminEmail string, logger *zap.Logger) (*SettingsService, error) {
	if options == nil {
		return nil, fmt.Errorf("option store is required")
	}
	if settingsValidator == nil {
		return nil, fmt.Errorf("settings validator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		options:    options,
		validator:  settingsValidator,
		adminEmail: adminEmail,
		logger:     logger,
	}, nil
}

// Get returns the stored settings over the defaults. A missing or unreadable
// option yields the defaults.
func (s *SettingsService) Get(ctx context.Context) settings.Settings {
	current := settings.Defaults(s.adminEmail)

	raw, ok, err := s.options.Get(ctx, settings.OptionName)
	if err != nil {
		s.logger.Error("failed to read settings", zap.Error(err))
		return current
	}
	if !ok || raw == "" {
		return current
	}
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		s.logger.Error("stored settings are corrupt, using defaults", zap.Error(err))
		return settings.Defaults(s.adminEmail)
	}
	return current
}

func (s *SettingsService) Update(ctx context.Context, overrides settings.Overrides) (settings.Settings, error) {
	if err := requireCapability(ctx, CapabilityManageOptions); err != nil {
		return settings.Settings{}, err
	}

	res := s.validator.ValidateSettings(ctx, overrides)
	if !res.IsValid {
		return settings.Settings{}, &ValidationError{Fields: res.Errors}
	}

	merged := s.Get(ctx).Merge(res.Data)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.options.Set(ctx, settings.OptionName, string(encoded)); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return merged, nil
}
