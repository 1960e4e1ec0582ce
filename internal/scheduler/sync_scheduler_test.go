package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/syncer"
)

type fakeSyncer struct {
	due     atomic.Bool
	dueErr  error
	syncErr error
	checks  atomic.Int32
	syncs   chan struct{}
}

func newFakeSyncer(due bool) *fakeSyncer {
	f := &fakeSyncer{syncs: make(chan struct{}, 16)}
	f.due.Store(due)
	return f
}

func (f *fakeSyncer) ShouldAutoSync(context.Context) (bool, error) {
	f.checks.Add(1)
	return f.due.Load(), f.dueErr
}

func (f *fakeSyncer) PerformSync(context.Context) (syncer.Result, error) {
	f.syncs <- struct{}{}
	return syncer.Result{}, f.syncErr
}

func waitSync(t *testing.T, f *fakeSyncer) {
	t.Helper()
	select {
	case <-f.syncs:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PerformSync")
	}
}

func TestSyncScheduler_RunScheduled(t *testing.T) {
	tests := []struct {
		name     string
		due      bool
		dueErr   error
		wantSync bool
	}{
		{name: "due", due: true, wantSync: true},
		{name: "not due", due: false, wantSync: false},
		{name: "check fails", due: true, dueErr: errors.New("boom"), wantSync: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSyncer(tt.due)
			f.dueErr = tt.dueErr
			ss := NewSyncScheduler(f, logger.Nop(), 0, 0, nil)

			ss.RunScheduled(context.Background())

			if got := len(f.syncs) == 1; got != tt.wantSync {
				t.Errorf("synced = %v, want %v", got, tt.wantSync)
			}
		})
	}
}

func TestSyncScheduler_FiresAfterDelayThenInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeSyncer(true)
	f.syncErr = errors.New("offline")
	ss := NewSyncScheduler(f, logger.Nop(), 10*time.Millisecond, 20*time.Millisecond, nil)
	if err := ss.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ss.Stop()

	// Failures are logged and the schedule keeps going.
	waitSync(t, f)
	waitSync(t, f)
}

func TestSyncScheduler_ManualTriggerBypassesPolicy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeSyncer(false)
	ss := NewSyncScheduler(f, logger.Nop(), time.Hour, time.Hour, nil)
	if err := ss.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ss.Stop()

	if !ss.Trigger() {
		t.Fatal("Trigger() = false, want true")
	}
	waitSync(t, f)

	if f.checks.Load() != 0 {
		t.Error("manual trigger must not consult ShouldAutoSync")
	}
}

func TestSyncScheduler_TriggerDoesNotBlock(t *testing.T) {
	ss := NewSyncScheduler(newFakeSyncer(false), logger.Nop(), time.Hour, time.Hour, nil)

	if !ss.Trigger() {
		t.Error("first Trigger() = false, want true")
	}
	if ss.Trigger() {
		t.Error("second Trigger() = true, want false while one is pending")
	}
}

func TestSyncScheduler_StopIsIdempotent(t *testing.T) {
	ss := NewSyncScheduler(newFakeSyncer(false), logger.Nop(), time.Hour, time.Hour, nil)
	ss.Stop()
	ss.Stop()
}
