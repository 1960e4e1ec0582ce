package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

// DefaultGCInterval is how often expired tombstones are purged between syncs.
const DefaultGCInterval = 24 * time.Hour

// Purger drops expired tombstones from the local collection.
type Purger interface {
	PurgeTombstones(ctx context.Context) (int, error)
}

// GarbageCollector purges expired deletion tombstones so devices that never
// sync still keep the tombstone set bounded.
type GarbageCollector struct {
	purger   Purger
	logger   logger.Logger
	interval time.Duration
	stop     *stopper
}

func NewGarbageCollector(purger Purger, log logger.Logger, interval time.Duration) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &GarbageCollector{
		purger:   purger,
		logger:   log,
		interval: interval,
		stop:     newStopper(),
	}
}

// Start purges once, then every interval. A failing first pass is logged,
// not returned.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial tombstone purge failed", logger.Error(err))
	}
	every(ctx, gc.stop.ch, gc.interval, func(ctx context.Context) {
		if err := gc.Collect(ctx); err != nil {
			gc.logger.Error("tombstone purge failed", logger.Error(err))
		}
	})
	return nil
}

func (gc *GarbageCollector) Stop() { gc.stop.stop() }

// Collect purges expired tombstones once.
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	removed, err := gc.purger.PurgeTombstones(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		gc.logger.Info("expired tombstones purged", logger.Int("removed", removed))
	} else {
		gc.logger.Debug("no expired tombstones")
	}
	return nil
}
