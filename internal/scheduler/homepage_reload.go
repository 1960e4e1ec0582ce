package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

// FileImporter imports a bookmark file and reports how many bookmarks were
// added.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (int, error)
}

// HomepageReloader re-imports a Homepage bookmarks.yaml or services.yaml
// file. Known urls are skipped, so a bookmark removed locally only comes
// back if the file changes its url.
type HomepageReloader struct {
	importer FileImporter
	path     string
	logger   logger.Logger
	interval time.Duration
	stop     *stopper
}

func NewHomepageReloader(importer FileImporter, path string, log logger.Logger, interval time.Duration) *HomepageReloader {
	return &HomepageReloader{
		importer: importer,
		path:     path,
		logger:   log.With(logger.String("file", path)),
		interval: interval,
		stop:     newStopper(),
	}
}

// Start imports the file once and returns that error, then re-imports
// every interval. A zero interval means import once.
func (hr *HomepageReloader) Start(ctx context.Context) error {
	if err := hr.Reload(ctx); err != nil {
		return fmt.Errorf("initial homepage import failed: %w", err)
	}
	if hr.interval <= 0 {
		return nil
	}
	every(ctx, hr.stop.ch, hr.interval, func(ctx context.Context) {
		if err := hr.Reload(ctx); err != nil {
			hr.logger.Error("homepage re-import failed", logger.Error(err))
		}
	})
	return nil
}

func (hr *HomepageReloader) Stop() { hr.stop.stop() }

// Reload imports the file once.
func (hr *HomepageReloader) Reload(ctx context.Context) error {
	added, err := hr.importer.ImportFile(ctx, hr.path)
	if err != nil {
		return err
	}
	if added > 0 {
		hr.logger.Info("homepage bookmarks imported", logger.Int("added", added))
	} else {
		hr.logger.Debug("homepage file has no new bookmarks")
	}
	return nil
}
