package service

import (
	"context"
	"testing"

	"sam-chat-be/internal/constant"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		stored   string
		expected entity.Settings
	}{
		{
			name:     "missing uses defaults",
			expected: entity.DefaultSettings(),
		},
		{
			name:     "corrupt uses defaults",
			stored:   "{{",
			expected: entity.DefaultSettings(),
		},
		{
			name:     "unknown personality uses defaults",
			stored:   `{"theme":"light","personality":"grumpy"}`,
			expected: entity.DefaultSettings(),
		},
		{
			name:     "valid settings are loaded",
			stored:   `{"theme":"light","personality":"directo","profession":"médico"}`,
			expected: entity.Settings{Theme: entity.ThemeLight, Personality: entity.PersonalityDirecto, Profession: "médico"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewKeyValueRepository()
			if tt.stored != "" {
				require.NoError(t, store.Set(ctx, constant.StoreKeySettings, tt.stored))
			}
			s := NewSettingsService(store, logger.NewNopLogger())
			s.Load(ctx)
			assert.Equal(t, tt.expected, s.Get())
		})
	}
}

func TestSettingsService_Update(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueRepository()
	s := NewSettingsService(store, logger.NewNopLogger())

	_, err := s.Update(ctx, entity.Settings{Theme: "blue", Personality: entity.PersonalityDefault})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, entity.DefaultSettings(), s.Get())

	want := entity.Settings{Theme: entity.ThemeLight, Personality: entity.PersonalityAmable, Profession: "docente"}
	got, err := s.Update(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	reloaded := NewSettingsService(store, logger.NewNopLogger())
	reloaded.Load(ctx)
	assert.Equal(t, want, reloaded.Get())
}
