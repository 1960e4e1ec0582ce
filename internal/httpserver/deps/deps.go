package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/store"
	"github.com/MrSnakeDoc/quickmark/internal/syncer"
	"github.com/MrSnakeDoc/quickmark/internal/transfer"
)

// SyncService is the sync trigger surface.
type SyncService interface {
	Init(ctx context.Context) (*domain.User, error)
	SignIn(ctx context.Context) (*domain.User, error)
	SignOut(ctx context.Context) error
	CurrentUser() *domain.User
	PerformSync(ctx context.Context) (syncer.Result, error)
	ShouldAutoSync(ctx context.Context) (bool, error)
	ClearCloudData(ctx context.Context) error
	SetAutoSync(ctx context.Context, enabled bool) error
	Status(ctx context.Context) (syncer.Status, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time    // for testing, defaults to time.Now
	AllowedHosts   []string            // Host headers allowed to access the server
	AllowedCIDRS   []string            // IPs allowed to access the API
	AllowedOrigins []string            // Origins allowed by CORS (e.g. the new-tab page)
	TrustProxy     bool                // true if running behind a trusted reverse proxy
	Local          *store.Local        // Local persistence
	StoreBackend   string              // Backend name reported by /infra
	Collection     *collection.Service // Bookmark editor
	Transfer       *transfer.Service   // Import/export
	Sync           SyncService         // Sync trigger surface
	SyncTrigger    func() bool         // Enqueues a background sync; false if one is pending
	SignInTimeout  time.Duration       // Upper bound for the interactive sign-in request
}
