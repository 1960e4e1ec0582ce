// Package app wires configuration, persistence, sync and the HTTP API into
// one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/auth"
	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/config"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/redis"
	"github.com/MrSnakeDoc/quickmark/internal/remote"
	"github.com/MrSnakeDoc/quickmark/internal/scheduler"
	"github.com/MrSnakeDoc/quickmark/internal/store"
	"github.com/MrSnakeDoc/quickmark/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/quickmark/internal/store/redis"
	"github.com/MrSnakeDoc/quickmark/internal/store/sqlite"
	"github.com/MrSnakeDoc/quickmark/internal/syncer"
	"github.com/MrSnakeDoc/quickmark/internal/transfer"
	"github.com/MrSnakeDoc/quickmark/internal/utils"
	"github.com/MrSnakeDoc/quickmark/internal/version"
)

// App holds the long-lived services. The CLI builds one per invocation; the
// serve command additionally runs the schedulers and the HTTP API.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	local  *store.Local

	Collection *collection.Service
	Transfer   *transfer.Service
	// Sync is nil when no remote project is configured.
	Sync *syncer.Service
}

// New opens local persistence and builds every service. It does not start
// any background work.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	local, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	coll := collection.New(local, log)
	a := &App{
		cfg:        cfg,
		logger:     log,
		local:      local,
		Collection: coll,
		Transfer:   transfer.New(local, coll, log),
	}

	if cfg.RemoteConfigured() {
		a.Sync = newSyncService(cfg, local, log)
	} else {
		log.Debug("cloud sync not configured, running local-only")
	}

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*store.Local, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory store, bookmarks are lost on exit")
		return store.New(memory.New()), nil

	case config.BackendRedis:
		client, err := redis.Connect(ctx, redis.Options{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store.New(redisstore.NewStore(client, cfg.RedisPrefix)), nil

	default:
		backend, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", cfg.SQLitePath, err)
		}
		log.Debug("sqlite store opened", logger.String("path", cfg.SQLitePath))
		return store.New(backend), nil
	}
}

func newSyncService(cfg *config.Config, local *store.Local, log logger.Logger) *syncer.Service {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	identity := auth.NewIdentityClient(cfg.APIKey, auth.DefaultEndpoints(), httpClient)
	tokens := auth.NewTokenStore(local, identity, log)

	var providers []auth.Provider
	if len(cfg.CredentialHelper) > 0 {
		providers = append(providers, auth.NewNativeProvider(cfg.CredentialHelper, nil))
	}
	if cfg.OAuthClientID != "" {
		providers = append(providers, auth.NewLoopbackProvider(auth.LoopbackOptions{
			ClientID: cfg.OAuthClientID,
			AuthURL:  cfg.AuthURL,
			Timeout:  cfg.SignInTimeout,
			Open:     browserOpener(cfg.OpenBrowser, log),
		}, log))
	}
	authenticator := auth.NewAuthenticator(tokens, identity, identity, log, providers...)

	rc := remote.New(tokens, remote.Options{
		ProjectID:  cfg.ProjectID,
		BaseURL:    cfg.FirestoreURL,
		HTTPClient: httpClient,
		Logger:     log,
	})
	orch := syncer.NewOrchestrator(local, rc, tokens, log)
	return syncer.NewService(orch, authenticator, tokens, rc, local, log)
}

// browserOpener always prints the URL so headless machines can copy it.
func browserOpener(open bool, log logger.Logger) func(string) error {
	return func(authURL string) error {
		fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n\n  %s\n\n", authURL)
		if !open {
			return nil
		}
		if err := utils.OpenBrowser(authURL); err != nil {
			log.Warn("could not open browser", logger.Error(err))
		}
		return nil
	}
}

// RequireSync returns the sync service or config.ErrRemoteNotConfigured.
func (a *App) RequireSync() (*syncer.Service, error) {
	if a.Sync == nil {
		return nil, config.ErrRemoteNotConfigured
	}
	return a.Sync, nil
}

// Local exposes persistence for status reporting.
func (a *App) Local() *store.Local {
	return a.local
}

// Close releases the store.
func (a *App) Close() error {
	return a.local.Close()
}

// Serve runs the schedulers and the HTTP API until SIGINT/SIGTERM, then
// stops everything in reverse order.
func (a *App) Serve() error {
	a.logger.Infof("🚀 Starting quickmark v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var syncSched *scheduler.SyncScheduler
	if a.Sync != nil {
		syncSched = scheduler.NewSyncScheduler(a.Sync, a.logger, a.cfg.SyncDelay, a.cfg.SyncInterval, nil)
	}

	server := httpserver.New(a.cfg, a.logger, a.routeDeps(syncSched))
	if err := server.Listen(); err != nil {
		_ = a.Close()
		return err
	}
	a.logger.Info("listening", logger.String("addr", server.Addr()))

	// Tombstone purge
	gc := scheduler.NewGarbageCollector(a.Collection, a.logger, a.cfg.GCInterval)
	if err := gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval))

	// Homepage import (optional)
	var reloader *scheduler.HomepageReloader
	if a.cfg.HomepageFile != "" {
		reloader = scheduler.NewHomepageReloader(a.Transfer, a.cfg.HomepageFile, a.logger, a.cfg.HomepageReloadInterval)
		if err := reloader.Start(ctx); err != nil {
			a.logger.Warn("homepage import disabled", logger.Error(err))
			reloader = nil
		}
	}

	// Sync schedule (optional)
	if syncSched != nil {
		if _, err := a.Sync.Init(ctx); err != nil {
			a.logger.Warn("could not restore sign-in", logger.Error(err))
		}
		if err := syncSched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	if syncSched != nil {
		syncSched.Stop()
	}
	if reloader != nil {
		reloader.Stop()
	}
	gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}

	if err := a.Close(); err != nil {
		a.logger.Warnf("failed to close store: %v", err)
	} else {
		a.logger.Info("✅ Store closed cleanly")
	}

	if runErr == nil {
		a.logger.Info("✅ quickmark stopped cleanly")
	}
	return runErr
}

func (a *App) routeDeps(syncSched *scheduler.SyncScheduler) deps.Deps {
	d := deps.Deps{
		Logger:         a.logger,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   a.cfg.AllowedHosts,
		AllowedCIDRS:   a.cfg.AllowedCIDRS,
		AllowedOrigins: a.cfg.AllowedOrigins,
		TrustProxy:     a.cfg.TrustProxy,
		Local:          a.local,
		StoreBackend:   a.cfg.StoreBackend,
		Collection:     a.Collection,
		Transfer:       a.Transfer,
		SignInTimeout:  a.cfg.SignInTimeout,
	}
	// A typed nil would defeat the nil check in route registration.
	if a.Sync != nil {
		d.Sync = a.Sync
	}
	if syncSched != nil {
		d.SyncTrigger = syncSched.Trigger
	}
	return d
}
