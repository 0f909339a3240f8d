package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"media_syndicator/internal/config"
	"media_syndicator/internal/domain"
)

// Admin implements the administrative operations on mappings and settings.
type Admin struct {
	source   Source
	sink     Sink
	mappings MappingStore
	settings SettingsStore
	logger   *slog.Logger
	defaults Defaults
}

func NewAdmin(
	source Source,
	sink Sink,
	mappings MappingStore,
	settings SettingsStore,
	logger *slog.Logger,
	cfg config.CycleConfig,
) *Admin {
	return &Admin{
		source:   source,
		sink:     sink,
		mappings: mappings,
		settings: settings,
		logger:   logger.With("component", "admin"),
		defaults: defaultsFrom(cfg),
	}
}

// SetMapping points a source at a destination, replacing any previous
// destination. The source must exist and be flagged adult.
func (a *Admin) SetMapping(ctx context.Context, sourceID, destinationID string) (domain.Mapping, error) {
	sourceID = domain.NormalizeSourceID(sourceID)
	if sourceID == "" {
		return domain.Mapping{}, fmt.Errorf("%w: source is required", domain.ErrInvalidArgument)
	}
	if destinationID == "" {
		return domain.Mapping{}, fmt.Errorf("%w: destination is required", domain.ErrInvalidArgument)
	}

	adult, err := a.source.IsAdultFlagged(ctx, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return domain.Mapping{}, fmt.Errorf("r/%s: %w", sourceID, err)
		}
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return domain.Mapping{}, fmt.Errorf("check r/%s: %w", sourceID, err)
	}
	if !adult {
		return domain.Mapping{}, fmt.Errorf("r/%s is not flagged adult: %w", sourceID, domain.ErrSourceNotEligible)
	}

	m := domain.Mapping{SourceID: sourceID, DestinationID: destinationID}
	if err := a.mappings.Upsert(ctx, m); err != nil {
		return domain.Mapping{}, fmt.Errorf("upsert mapping: %w", err)
	}

	a.logger.Info("mapping set", "source", sourceID, "destination", destinationID)
	return m, nil
}

// RemoveMapping reports whether a mapping existed.
func (a *Admin) RemoveMapping(ctx context.Context, sourceID string) (bool, error) {
	sourceID = domain.NormalizeSourceID(sourceID)
	if sourceID == "" {
		return false, fmt.Errorf("%w: source is required", domain.ErrInvalidArgument)
	}

	existed, err := a.mappings.Delete(ctx, sourceID)
	if err != nil {
		return false, fmt.Errorf("delete mapping: %w", err)
	}
	if existed {
		a.logger.Info("mapping removed", "source", sourceID)
	}
	return existed, nil
}

func (a *Admin) ListMappings(ctx context.Context) ([]domain.MappingView, error) {
	mappings, err := a.mappings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	views := make([]domain.MappingView, 0, len(mappings))
	for _, m := range mappings {
		view := domain.MappingView{Mapping: m, Reference: fmt.Sprintf("(ID: %s)", m.DestinationID)}
		if dest, err := a.sink.Resolve(ctx, m.DestinationID); err == nil && dest.Reference != "" {
			view.Reference = dest.Reference
		}
		views = append(views, view)
	}
	return views, nil
}

func (a *Admin) SetInterval(ctx context.Context, minutes int) error {
	if minutes < domain.MinIntervalMinutes {
		return fmt.Errorf("%w: interval must be at least %d minute, got %d",
			domain.ErrInvalidArgument, domain.MinIntervalMinutes, minutes)
	}
	if err := a.settings.PutInt(ctx, domain.SettingInterval, minutes); err != nil {
		return fmt.Errorf("put %s: %w", domain.SettingInterval, err)
	}
	a.logger.Info("fetch interval set", "minutes", minutes)
	return nil
}

func (a *Admin) SetItemsPerCycle(ctx context.Context, count int) error {
	if count < domain.MinItemsPerCycle || count > domain.MaxItemsPerCycle {
		return fmt.Errorf("%w: count must be between %d and %d, got %d",
			domain.ErrInvalidArgument, domain.MinItemsPerCycle, domain.MaxItemsPerCycle, count)
	}
	if err := a.settings.PutInt(ctx, domain.SettingItemsPerCycle, count); err != nil {
		return fmt.Errorf("put %s: %w", domain.SettingItemsPerCycle, err)
	}
	a.logger.Info("posts per interval set", "count", count)
	return nil
}

// Settings returns the current settings with defaults applied.
func (a *Admin) Settings(ctx context.Context) (domain.Settings, error) {
	return loadSettings(ctx, a.settings, a.defaults)
}
