// Package store is the device-local persistence for the bookmark collection
// and sync metadata. Values are JSON documents stored under fixed keys in a
// pluggable Backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

// ErrNotFound is returned by a Backend when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a small key-value store. SetMany must apply all values or none.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Names(ctx context.Context) ([]string, error)
}

// Collection is the synchronized part of the local state.
type Collection struct {
	Bookmarks   []domain.Bookmark
	GroupOrder  []string
	DeletedURLs domain.DeletedURLs
}

// Credentials is the persisted identity and its tokens.
type Credentials struct {
	User         *domain.User
	Token        string
	RefreshToken string
	Expiry       time.Time
}

// Local is the typed view over a Backend.
type Local struct {
	backend Backend

	deviceMu sync.Mutex
}

// New wraps a backend.
func New(backend Backend) *Local {
	return &Local{backend: backend}
}

// Backend returns the underlying backend, used for health checks.
func (l *Local) Backend() Backend {
	return l.backend
}

// Close closes the underlying backend.
func (l *Local) Close() error {
	return l.backend.Close()
}

// ─────────────────────────────
// Collection
// ─────────────────────────────

// Collection reads bookmarks, group order and tombstones.
func (l *Local) Collection(ctx context.Context) (Collection, error) {
	var c Collection

	if _, err := l.getJSON(ctx, KeyBookmarks, &c.Bookmarks); err != nil {
		return Collection{}, err
	}
	if _, err := l.getJSON(ctx, KeyGroupOrder, &c.GroupOrder); err != nil {
		return Collection{}, err
	}
	if _, err := l.getJSON(ctx, KeyDeletedURLs, &c.DeletedURLs); err != nil {
		return Collection{}, err
	}

	if c.Bookmarks == nil {
		c.Bookmarks = []domain.Bookmark{}
	}
	if c.GroupOrder == nil {
		c.GroupOrder = []string{}
	}
	if c.DeletedURLs == nil {
		c.DeletedURLs = domain.DeletedURLs{}
	}
	return c, nil
}

// SaveCollection writes bookmarks, group order and tombstones in one batch.
func (l *Local) SaveCollection(ctx context.Context, c Collection) error {
	if c.Bookmarks == nil {
		c.Bookmarks = []domain.Bookmark{}
	}
	if c.GroupOrder == nil {
		c.GroupOrder = []string{}
	}
	if c.DeletedURLs == nil {
		c.DeletedURLs = domain.DeletedURLs{}
	}

	values, err := encode(map[string]any{
		KeyBookmarks:   c.Bookmarks,
		KeyGroupOrder:  c.GroupOrder,
		KeyDeletedURLs: c.DeletedURLs,
	})
	if err != nil {
		return err
	}
	if err := l.backend.SetMany(ctx, values); err != nil {
		return fmt.Errorf("failed to save collection: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

// SaveGroupOrder replaces the group order only.
func (l *Local) SaveGroupOrder(ctx context.Context, order []string) error {
	if order == nil {
		order = []string{}
	}
	return l.setJSON(ctx, KeyGroupOrder, order)
}

// ─────────────────────────────
// Sync metadata
// ─────────────────────────────

// LastSyncTime returns the zero time when no sync has completed yet.
func (l *Local) LastSyncTime(ctx context.Context) (time.Time, error) {
	var ms int64
	ok, err := l.getJSON(ctx, KeyLastSyncTime, &ms)
	if err != nil || !ok || ms == 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// SetLastSyncTime records a successful sync.
func (l *Local) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return l.setJSON(ctx, KeyLastSyncTime, t.UnixMilli())
}

// AutoSyncEnabled defaults to true when never set.
func (l *Local) AutoSyncEnabled(ctx context.Context) (bool, error) {
	enabled := true
	if _, err := l.getJSON(ctx, KeyAutoSyncEnabled, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// SetAutoSyncEnabled stores the auto-sync preference.
func (l *Local) SetAutoSyncEnabled(ctx context.Context, enabled bool) error {
	return l.setJSON(ctx, KeyAutoSyncEnabled, enabled)
}

// DeviceID returns the device identifier, creating and persisting it on
// first use. It never changes afterwards.
func (l *Local) DeviceID(ctx context.Context) (string, error) {
	l.deviceMu.Lock()
	defer l.deviceMu.Unlock()

	var id string
	ok, err := l.getJSON(ctx, KeyDeviceID, &id)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id = "device_" + uuid.NewString()
	if err := l.setJSON(ctx, KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// ─────────────────────────────
// Identity
// ─────────────────────────────

// Credentials returns the persisted identity. User is nil when signed out.
func (l *Local) Credentials(ctx context.Context) (Credentials, error) {
	var (
		c        Credentials
		expiryMs int64
	)

	if _, err := l.getJSON(ctx, KeyUser, &c.User); err != nil {
		return Credentials{}, err
	}
	if _, err := l.getJSON(ctx, KeyToken, &c.Token); err != nil {
		return Credentials{}, err
	}
	if _, err := l.getJSON(ctx, KeyRefreshToken, &c.RefreshToken); err != nil {
		return Credentials{}, err
	}
	if _, err := l.getJSON(ctx, KeyTokenExpiry, &expiryMs); err != nil {
		return Credentials{}, err
	}
	if expiryMs > 0 {
		c.Expiry = time.UnixMilli(expiryMs)
	}
	return c, nil
}

// SaveCredentials persists identity and tokens in one batch.
func (l *Local) SaveCredentials(ctx context.Context, c Credentials) error {
	values, err := encode(map[string]any{
		KeyUser:         c.User,
		KeyToken:        c.Token,
		KeyRefreshToken: c.RefreshToken,
		KeyTokenExpiry:  c.Expiry.UnixMilli(),
	})
	if err != nil {
		return err
	}
	if err := l.backend.SetMany(ctx, values); err != nil {
		return fmt.Errorf("failed to save credentials: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

// ClearIdentity removes identity, tokens and the last sync time. The device
// id, the collection and the auto-sync preference are kept.
func (l *Local) ClearIdentity(ctx context.Context) error {
	if err := l.backend.Delete(ctx, IdentityKeys()...); err != nil {
		return fmt.Errorf("failed to clear identity: %w: %w", domain.ErrStorage, err)
	}
	return nil
}

// ─────────────────────────────
// helpers
// ─────────────────────────────

func (l *Local) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := l.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w: %w", key, domain.ErrStorage, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (l *Local) setJSON(ctx context.Context, key string, v any) error {
	values, err := encode(map[string]any{key: v})
	if err != nil {
		return err
	}
	if err := l.backend.SetMany(ctx, values); err != nil {
		return fmt.Errorf("failed to write %s: %w: %w", key, domain.ErrStorage, err)
	}
	return nil
}

func encode(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		out[key] = data
	}
	return out, nil
}
