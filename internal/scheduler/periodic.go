package scheduler

import (
	"context"
	"sync"
	"time"
)

// stopper is a close-once stop signal.
type stopper struct {
	ch   chan struct{}
	once sync.Once
}

func newStopper() *stopper { return &stopper{ch: make(chan struct{})} }

func (s *stopper) stop() { s.once.Do(func() { close(s.ch) }) }

// every calls fn each interval until ctx is done or stop fires.
func every(ctx context.Context, stop <-chan struct{}, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// select picks randomly among ready cases; never run after stop.
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				default:
				}
				fn(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}
