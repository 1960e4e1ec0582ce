package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/store"
	"github.com/MrSnakeDoc/quickmark/internal/store/memory"
)

func TestGarbageCollector_Collect(t *testing.T) {
	ctx := context.Background()
	log := logger.New("error", false)
	local := store.New(memory.New())

	now := time.Now()
	_ = local.SaveCollection(ctx, store.Collection{
		Bookmarks: []domain.Bookmark{{ID: "1", URL: "https://kept.example.com"}},
		DeletedURLs: domain.DeletedURLs{
			"https://recently-deleted.example.com": now.Add(-10 * 24 * time.Hour).UnixMilli(),
			"https://old-deleted.example.com":      now.Add(-35 * 24 * time.Hour).UnixMilli(),
		},
	})

	gc := NewGarbageCollector(collection.New(local, log), log, time.Hour)

	if err := gc.Collect(ctx); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	c, _ := local.Collection(ctx)
	if len(c.DeletedURLs) != 1 {
		t.Errorf("Expected 1 tombstone after GC, got %d", len(c.DeletedURLs))
	}
	if _, ok := c.DeletedURLs["https://recently-deleted.example.com"]; !ok {
		t.Error("Recent tombstone was incorrectly removed")
	}
	if _, ok := c.DeletedURLs["https://old-deleted.example.com"]; ok {
		t.Error("Old tombstone was not removed")
	}
	if len(c.Bookmarks) != 1 {
		t.Error("GC must not touch bookmarks")
	}
}

type failingPurger struct{}

func (failingPurger) PurgeTombstones(context.Context) (int, error) {
	return 0, errors.New("disk full")
}

func TestGarbageCollector_StartSurvivesFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gc := NewGarbageCollector(failingPurger{}, logger.Nop(), time.Hour)
	if err := gc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v, want initial failure to be logged only", err)
	}
	gc.Stop()
}
