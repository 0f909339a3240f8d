package service

import (
	"context"
	"fmt"

	"media_syndicator/internal/domain"
)

// Defaults are the settings used when a key has never been written.
type Defaults struct {
	IntervalMinutes int
	ItemsPerCycle   int
}

func loadSettings(ctx context.Context, store SettingsStore, defaults Defaults) (domain.Settings, error) {
	settings := domain.Settings{
		IntervalMinutes: defaults.IntervalMinutes,
		ItemsPerCycle:   defaults.ItemsPerCycle,
	}

	interval, ok, err := store.GetInt(ctx, domain.SettingInterval)
	if err != nil {
		return settings, fmt.Errorf("get %s: %w", domain.SettingInterval, err)
	}
	if ok {
		settings.IntervalMinutes = interval
	}

	items, ok, err := store.GetInt(ctx, domain.SettingItemsPerCycle)
	if err != nil {
		return settings, fmt.Errorf("get %s: %w", domain.SettingItemsPerCycle, err)
	}
	if ok {
		settings.ItemsPerCycle = items
	}

	return settings, nil
}
