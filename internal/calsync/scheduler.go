package calsync

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Scheduler runs incremental syncs periodically.
type Scheduler struct {
	syncer *Syncer
	opts   SyncOptions
	logger *logging.Logger

	tick <-chan time.Time
	stop func()
}

type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int

	// Tick overrides the interval ticker, mostly for tests.
	Tick <-chan time.Time
	Stop func()
}

func NewScheduler(syncer *Syncer, cfg SchedulerConfig, logger *logging.Logger) (*Scheduler, error) {
	if syncer == nil {
		return nil, errors.New("calsync: scheduler requires syncer")
	}
	if logger == nil {
		logger = logging.Default()
	}
	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}
	return &Scheduler{
		syncer: syncer,
		opts:   SyncOptions{BatchSize: cfg.BatchSize, SyncType: SyncAll},
		logger: logger,
		tick:   tick,
		stop:   stop,
	}, nil
}

// Start syncs once immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	defer func() {
		if s.stop != nil {
			s.stop()
		}
	}()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tick:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.syncer.SyncBookings(ctx, s.opts)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		s.logger.Info("calendar sync skipped, another run holds the lock")
	case errors.Is(err, ErrNotConfigured):
		s.logger.Debug("calendar sync skipped, integration not configured")
	case ctx.Err() != nil:
	default:
		s.logger.Error("scheduled calendar sync failed", "error", err)
	}
}
