package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"media_syndicator/internal/domain"
)

// Ticker is invoked once per tick with a counter that starts at 0.
type Ticker interface {
	Tick(ctx context.Context, tick int64) (*domain.CycleStats, error)
}

type Scheduler struct {
	ticker Ticker
	every  time.Duration
	logger *slog.Logger

	next atomic.Int64
}

func NewScheduler(ticker Ticker, every time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		ticker: ticker,
		every:  every,
		logger: logger.With("component", "scheduler"),
	}
}

// Start fires tick 0 immediately, then one tick per period until ctx is done.
// A tick that is still running delays the next one instead of overlapping it.
// Ticks get ctx itself; the ticker applies its own per-mapping deadlines.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "every", s.every)

	s.fire(ctx)

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.DelayIfStillRunning(cronLogger),
		),
	)
	c.Schedule(cron.Every(s.every), cron.FuncJob(func() {
		s.fire(ctx)
	}))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	tick := s.next.Add(1) - 1

	stats, err := s.ticker.Tick(ctx, tick)
	if err != nil {
		s.logger.Error("tick failed", "tick", tick, "error", err)
		return
	}

	if stats != nil && !stats.Gated {
		s.logger.Info("cycle finished",
			"tick", tick,
			"cycle_id", stats.CycleID,
			"mappings", len(stats.Mappings),
			"sent", stats.Sent(),
			"duration", stats.Duration,
		)
	}
}
