package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"media_syndicator/internal/config"
	"media_syndicator/internal/domain"
)

type Syndicator struct {
	source     Source
	sink       Sink
	mappings   MappingStore
	settings   SettingsStore
	ledger     Ledger
	classifier Classifier
	logger     *slog.Logger
	config     config.CycleConfig
	shuffle    func(n int, swap func(i, j int))
}

func NewSyndicator(
	source Source,
	sink Sink,
	mappings MappingStore,
	settings SettingsStore,
	ledger Ledger,
	classifier Classifier,
	logger *slog.Logger,
	cfg config.CycleConfig,
) *Syndicator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Syndicator{
		source:     source,
		sink:       sink,
		mappings:   mappings,
		settings:   settings,
		ledger:     ledger,
		classifier: classifier,
		logger:     logger.With("component", "syndicator"),
		config:     cfg,
		shuffle:    rand.Shuffle,
	}
}

// Tick runs the cycle when the tick falls on the configured interval and is
// a no-op otherwise.
//
// cycle.timeout bounds only the settings and mapping reads. Each mapping runs
// under its own cycle.mapping_timeout derived from ctx, so mappings late in
// the list get the same budget as the first ones.
func (s *Syndicator) Tick(ctx context.Context, tick int64) (*domain.CycleStats, error) {
	setupCtx, cancel := s.setupContext(ctx)
	defer cancel()

	settings, err := loadSettings(setupCtx, s.settings, s.defaults())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if !settings.Due(tick) {
		s.logger.Debug("tick gated", "tick", tick, "interval", settings.IntervalMinutes)
		return &domain.CycleStats{Tick: tick, Gated: true}, nil
	}

	mappings, err := s.mappings.List(setupCtx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	return s.runCycle(ctx, tick, settings, mappings), nil
}

func (s *Syndicator) setupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Syndicator) runCycle(ctx context.Context, tick int64, settings domain.Settings, mappings []domain.Mapping) *domain.CycleStats {
	startTime := time.Now()
	stats := &domain.CycleStats{
		CycleID: uuid.NewString(),
		Tick:    tick,
	}
	logger := s.logger.With("cycle_id", stats.CycleID, "tick", tick)

	logger.Info("starting cycle",
		"mappings", len(mappings),
		"interval", settings.IntervalMinutes,
		"items_per_cycle", settings.ItemsPerCycle,
	)

	stats.Mappings = make([]domain.MappingStats, len(mappings))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, m := range mappings {
		g.Go(func() error {
			stats.Mappings[i] = s.processMapping(ctx, logger, m, settings.ItemsPerCycle)
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(startTime)

	logger.Info("cycle completed",
		"sent", stats.Sent(),
		"duration", stats.Duration,
	)

	return stats
}

func (s *Syndicator) processMapping(ctx context.Context, logger *slog.Logger, m domain.Mapping, limit int) domain.MappingStats {
	stats := domain.MappingStats{SourceID: m.SourceID, DestinationID: m.DestinationID}
	logger = logger.With("source", m.SourceID, "destination", m.DestinationID)

	if s.config.MappingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MappingTimeout)
		defer cancel()
	}

	dest, err := s.sink.Resolve(ctx, m.DestinationID)
	if err != nil {
		logger.Warn("destination unresolvable, skipping mapping", "error", err)
		stats.Err = err
		return stats
	}

	items, err := s.fetchCandidates(ctx, m.SourceID, s.config.FetchLimit)
	if err != nil {
		logger.Error("fetch failed, skipping mapping", "error", err)
		stats.Err = err
		return stats
	}
	stats.Fetched = len(items)

	s.shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	delivered, err := s.ledger.Delivered(ctx, ids)
	if err != nil {
		logger.Error("ledger lookup failed, skipping mapping", "error", err)
		stats.Err = err
		return stats
	}
	if delivered == nil {
		delivered = make(map[string]struct{})
	}

	for _, item := range items {
		if stats.Sent >= limit {
			break
		}

		if _, ok := delivered[item.ID]; ok {
			stats.Duplicates++
			continue
		}

		media := s.classifier.Classify(item)
		if !media.Eligible() {
			stats.Ineligible++
			continue
		}

		if err := s.sink.Send(ctx, dest, domain.NewMessage(item, media)); err != nil {
			logger.Error("failed to send item", "item_id", item.ID, "error", err)
			stats.Failed++
			continue
		}

		if err := s.ledger.MarkDelivered(ctx, item.ID); err != nil {
			logger.Error("item sent but not recorded", "item_id", item.ID, "error", err)
		}
		delivered[item.ID] = struct{}{}
		stats.Sent++

		logger.Info("posted media", "item_id", item.ID, "kind", media.Kind.String())
	}

	logger.Debug("mapping processed",
		"fetched", stats.Fetched,
		"duplicates", stats.Duplicates,
		"ineligible", stats.Ineligible,
		"sent", stats.Sent,
		"failed", stats.Failed,
	)

	return stats
}

// ForceSend delivers the newest eligible item of a source right away. It
// neither consults nor updates the ledger.
func (s *Syndicator) ForceSend(ctx context.Context, sourceID, destinationID string) (*domain.Delivery, error) {
	sourceID = domain.NormalizeSourceID(sourceID)
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source is required", domain.ErrInvalidArgument)
	}

	dest, err := s.sink.Resolve(ctx, destinationID)
	if err != nil {
		return nil, err
	}

	items, err := s.fetchCandidates(ctx, sourceID, s.config.ForceSendLimit)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		media := s.classifier.Classify(item)
		if !media.Eligible() {
			continue
		}

		if err := s.sink.Send(ctx, dest, domain.NewMessage(item, media)); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDispatch, err)
		}

		s.logger.Info("force sent media",
			"source", sourceID,
			"destination", dest.ID,
			"item_id", item.ID,
		)

		return &domain.Delivery{Item: item, Media: media, Destination: dest}, nil
	}

	return nil, fmt.Errorf("r/%s: %w", sourceID, domain.ErrNoEligibleMedia)
}

// fetchCandidates returns the adult-flagged items among the most recent
// limit items of a source, in source order.
func (s *Syndicator) fetchCandidates(ctx context.Context, sourceID string, limit int) ([]domain.ContentItem, error) {
	items, err := s.source.FetchRecent(ctx, sourceID, limit)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceNotFound) && !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("fetch r/%s: %w", sourceID, err)
	}

	candidates := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if item.Adult {
			candidates = append(candidates, item)
		}
	}
	return candidates, nil
}

func (s *Syndicator) defaults() Defaults {
	return defaultsFrom(s.config)
}

func defaultsFrom(cfg config.CycleConfig) Defaults {
	d := Defaults{
		IntervalMinutes: cfg.DefaultIntervalMinutes,
		ItemsPerCycle:   cfg.DefaultItemsPerCycle,
	}
	if d.IntervalMinutes == 0 {
		d.IntervalMinutes = domain.DefaultIntervalMinutes
	}
	if d.ItemsPerCycle == 0 {
		d.ItemsPerCycle = domain.DefaultItemsPerCycle
	}
	return d
}

