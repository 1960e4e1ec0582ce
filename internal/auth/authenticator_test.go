package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/store"
	"github.com/MrSnakeDoc/quickmark/internal/store/memory"
)

type stubProvider struct {
	name  string
	token string
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AccessToken(context.Context) (string, string, error) {
	p.calls++
	return p.token, "uri-" + p.name, p.err
}

type stubExchanger struct {
	gotToken string
	gotURI   string
	err      error
}

func (e *stubExchanger) SignInWithAccessToken(_ context.Context, token, uri string) (Session, error) {
	e.gotToken, e.gotURI = token, uri
	if e.err != nil {
		return Session{}, e.err
	}
	return Session{
		User:         domain.User{UID: "uid", Email: "me@example.com"},
		IDToken:      "id",
		RefreshToken: "refresh",
		ExpiresIn:    time.Hour,
	}, nil
}

type stubRevoker struct {
	revoked []string
	err     error
}

func (r *stubRevoker) Revoke(_ context.Context, token string) error {
	r.revoked = append(r.revoked, token)
	return r.err
}

func newTestAuthenticator(ex Exchanger, rv Revoker, providers ...Provider) (*Authenticator, *TokenStore, *store.Local) {
	local := store.New(memory.New())
	ts := NewTokenStore(local, &fakeRefresher{}, logger.Nop())
	return NewAuthenticator(ts, ex, rv, logger.Nop(), providers...), ts, local
}

func TestSignIn_FallsBackToSecondProvider(t *testing.T) {
	native := &stubProvider{name: "native", err: ErrProviderUnavailable}
	redirect := &stubProvider{name: "redirect", token: "web-token"}
	ex := &stubExchanger{}
	a, ts, _ := newTestAuthenticator(ex, &stubRevoker{}, native, redirect)

	user, err := a.SignIn(context.Background())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.UID != "uid" {
		t.Errorf("SignIn() user = %+v", user)
	}
	if native.calls != 1 || redirect.calls != 1 {
		t.Errorf("provider calls = %d, %d, want 1, 1", native.calls, redirect.calls)
	}
	if ex.gotToken != "web-token" || ex.gotURI != "uri-redirect" {
		t.Errorf("exchanged %q with %q", ex.gotToken, ex.gotURI)
	}
	if tok, err := ts.ValidCredential(context.Background()); err != nil || tok != "id" {
		t.Errorf("ValidCredential() = %q, %v after sign-in", tok, err)
	}
}

func TestSignIn_AllProvidersFail(t *testing.T) {
	a, ts, _ := newTestAuthenticator(&stubExchanger{}, &stubRevoker{},
		&stubProvider{name: "native", err: errors.New("boom")},
		&stubProvider{name: "redirect", err: errors.New("denied")},
	)

	if _, err := a.SignIn(context.Background()); err == nil {
		t.Fatal("SignIn() error = nil, want failure")
	}
	if ts.CurrentUser() != nil {
		t.Error("CurrentUser() should be nil after failed sign-in")
	}
}

func TestSignOut_RevokesAndClears(t *testing.T) {
	rv := &stubRevoker{err: errors.New("revoke endpoint down")}
	a, ts, local := newTestAuthenticator(&stubExchanger{}, rv, &stubProvider{name: "native", token: "up"})

	if _, err := a.SignIn(context.Background()); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	deviceID, _ := local.DeviceID(context.Background())

	if err := a.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v, revoke failures must be ignored", err)
	}
	if len(rv.revoked) != 1 || rv.revoked[0] != "up" {
		t.Errorf("revoked = %v, want [up]", rv.revoked)
	}
	if ts.CurrentUser() != nil {
		t.Error("CurrentUser() should be nil after sign-out")
	}
	if _, err := ts.ValidCredential(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("ValidCredential() error = %v, want ErrUnauthenticated", err)
	}
	if id, _ := local.DeviceID(context.Background()); id != deviceID {
		t.Error("device id must survive sign-out")
	}
}
