package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEvery_StopsOnSignal(t *testing.T) {
	var calls atomic.Int32
	s := newStopper()
	fired := make(chan struct{}, 1)

	every(context.Background(), s.ch, 5*time.Millisecond, func(context.Context) {
		calls.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("fn was never called")
	}

	s.stop()
	s.stop()
	time.Sleep(20 * time.Millisecond)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("calls after stop = %d, want %d", got, after)
	}
}
