// Package auth owns the signed-in identity: the token store that hands out
// valid credentials, the identity service client, and the upstream sign-in
// providers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/store"
)

const (
	// RefreshBuffer is how close to expiry a credential is refreshed early.
	RefreshBuffer = 5 * time.Minute

	// expirySkew is taken off the server-reported lifetime when storing it.
	expirySkew = time.Minute
)

// Refresher exchanges a refresh credential for a new credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Grant, error)
}

// TokenStore holds the current identity and its credential. Persisted state
// lives in store.Local; the in-memory copy is loaded lazily.
type TokenStore struct {
	mu sync.Mutex

	local     *store.Local
	refresher Refresher
	log       logger.Logger
	now       func() time.Time

	user         *domain.User
	token        string
	refreshToken string
	expiry       time.Time
}

// NewTokenStore creates a token store over local persistence.
func NewTokenStore(local *store.Local, refresher Refresher, log logger.Logger) *TokenStore {
	return &TokenStore{
		local:     local,
		refresher: refresher,
		log:       log,
		now:       time.Now,
	}
}

// CurrentUser returns a copy of the in-memory identity, or nil.
func (s *TokenStore) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// ValidCredential returns a credential valid for at least RefreshBuffer.
//
// It fails with domain.ErrUnauthenticated when nobody is signed in, and with
// domain.ErrAuthExpired when the identity service rejects the refresh
// credential, in which case the identity is signed out.
func (s *TokenStore) ValidCredential(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		if err := s.loadLocked(ctx); err != nil {
			return "", err
		}
		if s.user == nil {
			return "", domain.ErrUnauthenticated
		}
	}

	if s.token != "" && s.expiry.After(s.now().Add(RefreshBuffer)) {
		return s.token, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

// Restore re-establishes the identity from persisted state without user
// interaction. It returns nil when nothing is persisted.
func (s *TokenStore) Restore(ctx context.Context) (*domain.User, error) {
	if _, err := s.ValidCredential(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	return s.CurrentUser(), nil
}

// Seed stores a fresh session from a sign-in.
func (s *TokenStore) Seed(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := session.User
	expiry := s.now().Add(session.ExpiresIn - expirySkew)

	err := s.local.SaveCredentials(ctx, store.Credentials{
		User:         &user,
		Token:        session.IDToken,
		RefreshToken: session.RefreshToken,
		Expiry:       expiry,
	})
	if err != nil {
		return err
	}

	s.user = &user
	s.token = session.IDToken
	s.refreshToken = session.RefreshToken
	s.expiry = expiry
	return nil
}

// Clear forgets the identity in memory and in persistence.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearLocked(ctx)
}

func (s *TokenStore) clearLocked(ctx context.Context) error {
	s.user = nil
	s.token = ""
	s.refreshToken = ""
	s.expiry = time.Time{}
	return s.local.ClearIdentity(ctx)
}

func (s *TokenStore) loadLocked(ctx context.Context) error {
	creds, err := s.local.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.User == nil || (creds.Token == "" && creds.RefreshToken == "") {
		return nil
	}

	s.user = creds.User
	s.token = creds.Token
	s.refreshToken = creds.RefreshToken
	s.expiry = creds.Expiry
	return nil
}

// refreshLocked renews the credential. Only a rejection by the identity
// service signs the user out; transport failures leave the identity intact.
func (s *TokenStore) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		s.log.Warn("credential expired and no refresh token stored, signing out",
			logger.String("uid", s.user.UID))
		if err := s.clearLocked(ctx); err != nil {
			return err
		}
		return domain.ErrAuthExpired
	}

	s.log.Debug("refreshing credential", logger.String("uid", s.user.UID))

	grant, err := s.refresher.Refresh(ctx, s.refreshToken)
	if err != nil {
		var remoteErr *domain.RemoteError
		if !errors.As(err, &remoteErr) {
			return fmt.Errorf("failed to refresh credential: %w", err)
		}

		s.log.Warn("credential refresh rejected, signing out",
			logger.String("uid", s.user.UID),
			logger.Int("status", remoteErr.Status),
			logger.Error(err))
		if clearErr := s.clearLocked(ctx); clearErr != nil {
			return errors.Join(domain.ErrAuthExpired, clearErr)
		}
		return domain.ErrAuthExpired
	}

	if grant.RefreshToken != "" {
		s.refreshToken = grant.RefreshToken
	}
	s.token = grant.IDToken
	s.expiry = s.now().Add(grant.ExpiresIn - expirySkew)

	err = s.local.SaveCredentials(ctx, store.Credentials{
		User:         s.user,
		Token:        s.token,
		RefreshToken: s.refreshToken,
		Expiry:       s.expiry,
	})
	if err != nil {
		return err
	}

	s.log.Info("credential refreshed",
		logger.String("uid", s.user.UID),
		logger.Time("expires_at", s.expiry))
	return nil
}
