package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/syncer"
)

const (
	// DefaultSyncDelay is the wait before the first scheduled check.
	DefaultSyncDelay = time.Minute

	// DefaultSyncInterval is the period of scheduled checks.
	DefaultSyncInterval = 12 * time.Hour
)

// Syncer is the part of the sync service the scheduler drives.
type Syncer interface {
	ShouldAutoSync(ctx context.Context) (bool, error)
	PerformSync(ctx context.Context) (syncer.Result, error)
}

// SyncScheduler runs sync cycles on a fixed schedule and on demand.
// Scheduled runs only sync when ShouldAutoSync holds; manual triggers
// always sync.
type SyncScheduler struct {
	syncer        Syncer
	logger        logger.Logger
	delay         time.Duration
	interval      time.Duration
	stop          *stopper
	manualTrigger chan struct{}
}

// NewSyncScheduler creates a new sync scheduler. Zero durations fall back to
// DefaultSyncDelay and DefaultSyncInterval.
func NewSyncScheduler(
	s Syncer,
	log logger.Logger,
	delay time.Duration,
	interval time.Duration,
	manualTrigger chan struct{},
) *SyncScheduler {
	if delay <= 0 {
		delay = DefaultSyncDelay
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if manualTrigger == nil {
		manualTrigger = make(chan struct{}, 1)
	}

	return &SyncScheduler{
		syncer:        s,
		logger:        log,
		delay:         delay,
		interval:      interval,
		stop:          newStopper(),
		manualTrigger: manualTrigger,
	}
}

// Start begins the schedule. The first check happens after the delay.
func (ss *SyncScheduler) Start(ctx context.Context) error {
	ss.logger.Info("sync scheduler started",
		logger.Duration("delay", ss.delay),
		logger.Duration("interval", ss.interval))

	go func() {
		timer := time.NewTimer(ss.delay)
		defer timer.Stop()

		var ticker *time.Ticker
		var tick <-chan time.Time
		defer func() {
			if ticker != nil {
				ticker.Stop()
			}
		}()

		for {
			select {
			case <-timer.C:
				ss.RunScheduled(ctx)
				ticker = time.NewTicker(ss.interval)
				tick = ticker.C
			case <-tick:
				ss.RunScheduled(ctx)
			case <-ss.manualTrigger:
				ss.logger.Info("manual sync triggered")
				ss.run(ctx)
			case <-ss.stop.ch:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (ss *SyncScheduler) Stop() { ss.stop.stop() }

// Trigger enqueues a sync without waiting for it. It reports false when a
// trigger is already pending.
func (ss *SyncScheduler) Trigger() bool {
	select {
	case ss.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunScheduled syncs when an automatic cycle is due.
func (ss *SyncScheduler) RunScheduled(ctx context.Context) {
	due, err := ss.syncer.ShouldAutoSync(ctx)
	if err != nil {
		ss.logger.Error("failed to evaluate auto-sync", logger.Error(err))
		return
	}
	if !due {
		ss.logger.Debug("auto-sync not due")
		return
	}
	ss.run(ctx)
}

func (ss *SyncScheduler) run(ctx context.Context) {
	if _, err := ss.syncer.PerformSync(ctx); err != nil {
		ss.logger.Error("scheduled sync failed", logger.Error(err))
	}
}
