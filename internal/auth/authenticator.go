package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

// Exchanger turns an upstream access token into a system session.
type Exchanger interface {
	SignInWithAccessToken(ctx context.Context, accessToken, requestURI string) (Session, error)
}

// Revoker invalidates an upstream access token.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

// Authenticator runs sign-in and sign-out.
type Authenticator struct {
	tokens    *TokenStore
	exchanger Exchanger
	revoker   Revoker
	providers []Provider
	log       logger.Logger

	mu       sync.Mutex
	upstream string
}

// NewAuthenticator tries providers in the given order on sign-in.
func NewAuthenticator(tokens *TokenStore, exchanger Exchanger, revoker Revoker, log logger.Logger, providers ...Provider) *Authenticator {
	return &Authenticator{
		tokens:    tokens,
		exchanger: exchanger,
		revoker:   revoker,
		providers: providers,
		log:       log,
	}
}

// SignIn obtains an upstream token from the first provider that succeeds,
// exchanges it once and seeds the token store.
func (a *Authenticator) SignIn(ctx context.Context) (*domain.User, error) {
	var errs []error

	for _, p := range a.providers {
		session, upstream, err := a.signInWith(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.log.Info("sign-in provider failed, trying next",
				logger.String("provider", p.Name()),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		if err := a.tokens.Seed(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}

		a.mu.Lock()
		a.upstream = upstream
		a.mu.Unlock()

		a.log.Info("signed in",
			logger.String("provider", p.Name()),
			logger.String("uid", session.User.UID),
			logger.String("email", session.User.Email))

		u := session.User
		return &u, nil
	}

	if len(errs) == 0 {
		return nil, errors.New("no sign-in provider configured")
	}
	return nil, fmt.Errorf("sign-in failed: %w", errors.Join(errs...))
}

func (a *Authenticator) signInWith(ctx context.Context, p Provider) (Session, string, error) {
	token, requestURI, err := p.AccessToken(ctx)
	if err != nil {
		return Session{}, "", err
	}
	session, err := a.exchanger.SignInWithAccessToken(ctx, token, requestURI)
	if err != nil {
		return Session{}, "", err
	}
	return session, token, nil
}

// SignOut revokes the upstream token when one is known and clears the
// identity. Revocation failures are logged and ignored.
func (a *Authenticator) SignOut(ctx context.Context) error {
	a.mu.Lock()
	upstream := a.upstream
	a.upstream = ""
	a.mu.Unlock()

	if upstream == "" {
		upstream = a.cachedUpstream(ctx)
	}

	if upstream != "" && a.revoker != nil {
		if err := a.revoker.Revoke(ctx, upstream); err != nil {
			a.log.Warn("failed to revoke upstream token", logger.Error(err))
		}
	}

	if err := a.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	a.log.Info("signed out")
	return nil
}

func (a *Authenticator) cachedUpstream(ctx context.Context) string {
	for _, p := range a.providers {
		cp, ok := p.(CachedTokenProvider)
		if !ok {
			continue
		}
		token, err := cp.CachedToken(ctx)
		if err == nil && token != "" {
			return token
		}
	}
	return ""
}
