// Package syncer drives sync cycles between local persistence and the remote
// bookmark document and decides when an automatic cycle is due.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/merge"
	"github.com/MrSnakeDoc/quickmark/internal/remote"
	"github.com/MrSnakeDoc/quickmark/internal/store"
)

// AutoSyncInterval is the minimum time between automatic cycles.
const AutoSyncInterval = 12 * time.Hour

// CycleTimeout bounds one cycle once it no longer follows its caller's
// cancellation.
const CycleTimeout = 2 * time.Minute

// State is the phase of the current or last sync cycle.
type State string

const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StateFetching       State = "fetching"
	StateMerging        State = "merging"
	StatePersisting     State = "persisting"
	StatePushing        State = "pushing"
	StateFailed         State = "failed"
)

// Identity resolves the signed-in user, silently restoring it when needed.
type Identity interface {
	CurrentUser() *domain.User
	Restore(ctx context.Context) (*domain.User, error)
}

// Remote is the remote document store.
type Remote interface {
	Fetch(ctx context.Context) (remote.Snapshot, error)
	Push(ctx context.Context, s remote.Snapshot) error
	Delete(ctx context.Context) error
	EnsureProfile(ctx context.Context) error
}

// Result reports the sizes seen by one cycle.
type Result struct {
	LocalCount  int `json:"localCount"`
	CloudCount  int `json:"cloudCount"`
	MergedCount int `json:"mergedCount"`
}

// Orchestrator runs sync cycles. At most one cycle runs at a time; callers
// arriving while a cycle is in flight receive that cycle's result.
type Orchestrator struct {
	local    *store.Local
	remote   Remote
	identity Identity
	log      logger.Logger
	now      func() time.Time

	flight singleflight.Group
	state  atomic.Value
}

// NewOrchestrator creates an orchestrator in the idle state.
func NewOrchestrator(local *store.Local, rc Remote, identity Identity, log logger.Logger) *Orchestrator {
	o := &Orchestrator{
		local:    local,
		remote:   rc,
		identity: identity,
		log:      log,
		now:      time.Now,
	}
	o.state.Store(StateIdle)
	return o
}

// State returns the phase of the current or last cycle.
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(s)
}

// PerformSync runs one cycle: fetch, merge, write locally, push.
//
// Local storage only ever receives a fully merged state. If the push fails
// after the local write, local stays ahead of remote until the next cycle,
// which is safe because merging is idempotent.
//
// A started cycle is not cancelled by its callers: a caller whose ctx ends
// stops waiting and gets ctx.Err(), while the cycle runs to completion for
// everyone else who joined it.
func (o *Orchestrator) PerformSync(ctx context.Context) (Result, error) {
	ch := o.flight.DoChan("sync", func() (any, error) {
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CycleTimeout)
		defer cancel()
		return o.run(cycleCtx)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			o.log.Debug("joined in-flight sync cycle")
		}
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (o *Orchestrator) run(ctx context.Context) (Result, error) {
	start := o.now()

	res, err := o.cycle(ctx)
	if err != nil {
		o.setState(StateFailed)
		o.log.Error("sync failed", logger.Error(err))
		return Result{}, err
	}

	o.setState(StateIdle)
	o.log.Info("sync completed",
		logger.Int("local", res.LocalCount),
		logger.Int("cloud", res.CloudCount),
		logger.Int("merged", res.MergedCount),
		logger.Duration("took", o.now().Sub(start)))
	return res, nil
}

func (o *Orchestrator) cycle(ctx context.Context) (Result, error) {
	o.setState(StateAuthenticating)
	if err := o.ensureIdentity(ctx); err != nil {
		return Result{}, err
	}

	o.setState(StateFetching)
	local, err := o.local.Collection(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read local collection: %w", err)
	}
	cloud, err := o.remote.Fetch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch remote: %w", err)
	}

	o.log.Debug("sync inputs",
		logger.Int("local_bookmarks", len(local.Bookmarks)),
		logger.Int("local_tombstones", len(local.DeletedURLs)),
		logger.Int("cloud_bookmarks", len(cloud.Bookmarks)),
		logger.Int("cloud_tombstones", len(cloud.DeletedURLs)))

	o.setState(StateMerging)
	merged := merge.Merge(local.Bookmarks, cloud.Bookmarks, local.DeletedURLs, cloud.DeletedURLs, o.now())

	groupOrder := local.GroupOrder
	if len(groupOrder) == 0 {
		groupOrder = cloud.GroupOrder
	}

	o.setState(StatePersisting)
	err = o.local.SaveCollection(ctx, store.Collection{
		Bookmarks:   merged.Bookmarks,
		GroupOrder:  groupOrder,
		DeletedURLs: merged.DeletedURLs,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to save merged collection: %w", err)
	}

	o.setState(StatePushing)
	deviceID, err := o.local.DeviceID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read device id: %w", err)
	}
	err = o.remote.Push(ctx, remote.Snapshot{
		Bookmarks:   merged.Bookmarks,
		GroupOrder:  groupOrder,
		DeletedURLs: merged.DeletedURLs,
		DeviceID:    deviceID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to push merged collection: %w", err)
	}

	if err := o.local.SetLastSyncTime(ctx, o.now()); err != nil {
		return Result{}, fmt.Errorf("failed to record sync time: %w", err)
	}

	return Result{
		LocalCount:  len(local.Bookmarks),
		CloudCount:  len(cloud.Bookmarks),
		MergedCount: len(merged.Bookmarks),
	}, nil
}

func (o *Orchestrator) ensureIdentity(ctx context.Context) error {
	if o.identity.CurrentUser() != nil {
		return nil
	}
	user, err := o.identity.Restore(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUnauthenticated
	}
	return nil
}

// ShouldAutoSync reports whether an automatic cycle is due: auto-sync is
// enabled, an identity can be established, and the last successful sync is
// older than AutoSyncInterval.
func (o *Orchestrator) ShouldAutoSync(ctx context.Context) (bool, error) {
	enabled, err := o.local.AutoSyncEnabled(ctx)
	if err != nil {
		return false, err
	}
	if !enabled {
		return false, nil
	}

	if err := o.ensureIdentity(ctx); err != nil {
		if !errors.Is(err, domain.ErrUnauthenticated) {
			o.log.Warn("could not establish identity for auto-sync", logger.Error(err))
		}
		return false, nil
	}

	last, err := o.local.LastSyncTime(ctx)
	if err != nil {
		return false, err
	}
	return o.now().Sub(last) > AutoSyncInterval, nil
}
