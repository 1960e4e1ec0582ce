package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

// ErrProviderUnavailable means a provider cannot run on this host.
var ErrProviderUnavailable = errors.New("sign-in provider unavailable")

// Provider obtains an upstream Google access token.
type Provider interface {
	Name() string
	// AccessToken returns the upstream token and the request URI to present
	// to the identity exchange.
	AccessToken(ctx context.Context) (token, requestURI string, err error)
}

// CachedTokenProvider can return its current upstream token without user
// interaction, so it can be revoked on sign-out.
type CachedTokenProvider interface {
	CachedToken(ctx context.Context) (string, error)
}

// ─────────────────────────────
// Native provider
// ─────────────────────────────

// nativeRequestURI is presented to the identity exchange for tokens that did
// not come through a browser redirect.
const nativeRequestURI = "http://localhost"

// CommandRunner runs a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// NativeProvider asks a host credential helper (for example
// `gcloud auth print-access-token`) for a token.
type NativeProvider struct {
	command []string
	run     CommandRunner
}

// NewNativeProvider creates a provider for command. A nil runner executes
// the command with os/exec.
func NewNativeProvider(command []string, run CommandRunner) *NativeProvider {
	if run == nil {
		run = execRunner
	}
	return &NativeProvider{command: command, run: run}
}

func (p *NativeProvider) Name() string { return "native" }

func (p *NativeProvider) AccessToken(ctx context.Context) (string, string, error) {
	token, err := p.CachedToken(ctx)
	if err != nil {
		return "", "", err
	}
	return token, nativeRequestURI, nil
}

// CachedToken runs the helper; it is non-interactive by nature.
func (p *NativeProvider) CachedToken(ctx context.Context) (string, error) {
	if len(p.command) == 0 {
		return "", ErrProviderUnavailable
	}

	out, err := p.run(ctx, p.command[0], p.command[1:]...)
	if err != nil {
		return "", fmt.Errorf("credential helper %q failed: %w", p.command[0], err)
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", errors.New("no token received from credential helper")
	}
	return token, nil
}

// ─────────────────────────────
// Loopback redirect provider
// ─────────────────────────────

// DefaultAuthURL is Google's OAuth 2.0 authorization endpoint.
const DefaultAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// LoopbackOptions configures the redirect flow.
type LoopbackOptions struct {
	ClientID   string
	AuthURL    string        // defaults to DefaultAuthURL
	ListenAddr string        // defaults to 127.0.0.1:0
	Timeout    time.Duration // defaults to 5 minutes
	// Open presents the authorization URL to the user.
	Open func(authURL string) error
}

// LoopbackProvider runs the OAuth implicit flow against a temporary local
// listener serving the redirect URI.
type LoopbackProvider struct {
	opts LoopbackOptions
	log  logger.Logger
}

// NewLoopbackProvider creates the redirect provider.
func NewLoopbackProvider(opts LoopbackOptions, log logger.Logger) *LoopbackProvider {
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &LoopbackProvider{opts: opts, log: log}
}

func (p *LoopbackProvider) Name() string { return "redirect" }

type callbackResult struct {
	token string
	err   error
}

func (p *LoopbackProvider) AccessToken(ctx context.Context) (string, string, error) {
	if p.opts.ClientID == "" || p.opts.Open == nil {
		return "", "", ErrProviderUnavailable
	}

	ln, err := net.Listen("tcp", p.opts.ListenAddr)
	if err != nil {
		return "", "", fmt.Errorf("failed to listen for redirect: %w", err)
	}

	redirectURI := "http://" + ln.Addr().String() + "/callback"
	results := make(chan callbackResult, 1)

	srv := &http.Server{
		Handler:           p.router(results),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Warn("redirect listener stopped", logger.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := p.opts.Open(p.authorizationURL(redirectURI)); err != nil {
		return "", "", fmt.Errorf("failed to open authorization page: %w", err)
	}

	timer := time.NewTimer(p.opts.Timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return "", "", res.err
		}
		return res.token, redirectURI, nil
	case <-timer.C:
		return "", "", errors.New("timed out waiting for sign-in")
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

func (p *LoopbackProvider) authorizationURL(redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", p.opts.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "token")
	q.Set("scope", "openid email profile")
	q.Set("prompt", "select_account")
	return p.opts.AuthURL + "?" + q.Encode()
}

// callbackPage forwards the URL fragment, which browsers never send to the
// server, back to the listener.
const callbackPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>quickmark</title></head>
<body><p id="msg">Completing sign-in...</p>
<script>
fetch("/token", {
  method: "POST",
  headers: {"Content-Type": "application/x-www-form-urlencoded"},
  body: "fragment=" + encodeURIComponent(window.location.hash.substring(1))
}).then(function (r) { return r.text(); })
  .then(function (t) { document.getElementById("msg").textContent = t; });
</script></body></html>`

func (p *LoopbackProvider) router(results chan<- callbackResult) http.Handler {
	r := chi.NewRouter()

	r.Get("/callback", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackPage))
	})

	r.Post("/token", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fragment, err := url.ParseQuery(req.PostForm.Get("fragment"))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var res callbackResult
		switch {
		case fragment.Get("access_token") != "":
			res.token = fragment.Get("access_token")
		case fragment.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", fragment.Get("error"))
		default:
			res.err = errors.New("no access token in response")
		}

		select {
		case results <- res:
		default:
		}

		if res.err != nil {
			http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("Signed in. You can close this window."))
	})

	return r
}
