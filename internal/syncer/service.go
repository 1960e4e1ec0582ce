package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/store"
)

// Authenticator signs the device in and out.
type Authenticator interface {
	SignIn(ctx context.Context) (*domain.User, error)
	SignOut(ctx context.Context) error
}

// Status summarizes the sync state of this device.
type Status struct {
	User        *domain.User `json:"user"`
	State       State        `json:"state"`
	LastSync    *time.Time   `json:"lastSyncTime,omitempty"`
	AutoSync    bool         `json:"autoSyncEnabled"`
	DeviceID    string       `json:"deviceId"`
	AutoSyncDue bool         `json:"shouldAutoSync"`
}

// Service is the sync trigger surface used by the HTTP API and the CLI.
type Service struct {
	orch     *Orchestrator
	auth     Authenticator
	identity Identity
	remote   Remote
	local    *store.Local
	log      logger.Logger
}

// NewService wires the trigger surface.
func NewService(orch *Orchestrator, auth Authenticator, identity Identity, rc Remote, local *store.Local, log logger.Logger) *Service {
	return &Service{
		orch:     orch,
		auth:     auth,
		identity: identity,
		remote:   rc,
		local:    local,
		log:      log,
	}
}

// Init restores a persisted identity without user interaction. It returns
// nil when nobody is signed in.
func (s *Service) Init(ctx context.Context) (*domain.User, error) {
	if u := s.identity.CurrentUser(); u != nil {
		return u, nil
	}
	return s.identity.Restore(ctx)
}

// SignIn runs the interactive sign-in and provisions the profile document.
func (s *Service) SignIn(ctx context.Context) (*domain.User, error) {
	user, err := s.auth.SignIn(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.remote.EnsureProfile(ctx); err != nil {
		s.log.Warn("failed to provision user profile", logger.Error(err))
	}
	return user, nil
}

// SignOut revokes and forgets the identity.
func (s *Service) SignOut(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

// CurrentUser returns the in-memory identity, or nil.
func (s *Service) CurrentUser() *domain.User {
	return s.identity.CurrentUser()
}

// PerformSync runs or joins a sync cycle.
func (s *Service) PerformSync(ctx context.Context) (Result, error) {
	return s.orch.PerformSync(ctx)
}

// ShouldAutoSync reports whether an automatic cycle is due.
func (s *Service) ShouldAutoSync(ctx context.Context) (bool, error) {
	return s.orch.ShouldAutoSync(ctx)
}

// ClearCloudData deletes the remote bookmark document. Local data is kept.
func (s *Service) ClearCloudData(ctx context.Context) error {
	if err := s.orch.ensureIdentity(ctx); err != nil {
		return err
	}
	if err := s.remote.Delete(ctx); err != nil {
		return fmt.Errorf("failed to clear cloud data: %w", err)
	}
	s.log.Info("cloud data cleared")
	return nil
}

// SetAutoSync enables or disables the automatic schedule.
func (s *Service) SetAutoSync(ctx context.Context, enabled bool) error {
	if err := s.local.SetAutoSyncEnabled(ctx, enabled); err != nil {
		return err
	}
	s.log.Info("auto-sync preference changed", logger.Bool("enabled", enabled))
	return nil
}

// Status reports identity, cycle state and schedule information.
func (s *Service) Status(ctx context.Context) (Status, error) {
	st := Status{
		User:  s.identity.CurrentUser(),
		State: s.orch.State(),
	}

	var err error
	if st.AutoSync, err = s.local.AutoSyncEnabled(ctx); err != nil {
		return Status{}, err
	}
	if st.DeviceID, err = s.local.DeviceID(ctx); err != nil {
		return Status{}, err
	}
	last, err := s.local.LastSyncTime(ctx)
	if err != nil {
		return Status{}, err
	}
	if !last.IsZero() {
		st.LastSync = &last
	}
	if st.User != nil && st.AutoSync {
		st.AutoSyncDue = s.orch.now().Sub(last) > AutoSyncInterval
	}
	return st, nil
}
