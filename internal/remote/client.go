// Package remote reads and writes the per-user bookmark document in
// Firestore over its REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/utils"
)

// CredentialSource hands out bearer credentials for the signed-in identity.
type CredentialSource interface {
	ValidCredential(ctx context.Context) (string, error)
	CurrentUser() *domain.User
}

// Snapshot is the content of the remote bookmark document.
type Snapshot struct {
	Bookmarks   []domain.Bookmark
	GroupOrder  []string
	DeletedURLs domain.DeletedURLs

	// Informational; not used by merge.
	DeviceID  string
	UpdatedAt time.Time
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Bookmarks:   []domain.Bookmark{},
		GroupOrder:  []string{},
		DeletedURLs: domain.DeletedURLs{},
	}
}

// Options configures a Client.
type Options struct {
	ProjectID string
	// BaseURL overrides the documents root, e.g. for tests or the emulator.
	BaseURL    string
	HTTPClient *http.Client
	Logger     logger.Logger
	Now        func() time.Time
}

// DocumentsURL is the REST documents root of a project's default database.
func DocumentsURL(projectID string) string {
	return "https://firestore.googleapis.com/v1/projects/" + url.PathEscape(projectID) + "/databases/(default)/documents"
}

// Client is the remote document client.
type Client struct {
	creds   CredentialSource
	http    *http.Client
	baseURL string
	log     logger.Logger
	now     func() time.Time
}

// New creates a client.
func New(creds CredentialSource, opts Options) *Client {
	c := &Client{
		creds:   creds,
		http:    opts.HTTPClient,
		baseURL: opts.BaseURL,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = DocumentsURL(opts.ProjectID)
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Fetch reads the bookmark document. A missing document is an empty
// snapshot, which is what a brand-new identity sees on its first sync.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, c.bookmarksPath, nil)
	if err != nil {
		return Snapshot{}, err
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("remote document not found, starting empty")
		return emptySnapshot(), nil
	}
	if !ok(resp) {
		return Snapshot{}, utils.RemoteError(resp, "Fetch failed")
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode remote document: %w", err)
	}
	return decodeSnapshot(doc), nil
}

// Push overwrites the whole bookmark document.
func (c *Client) Push(ctx context.Context, s Snapshot) error {
	body, err := json.Marshal(encodeSnapshot(s, c.now()))
	if err != nil {
		return fmt.Errorf("failed to encode remote document: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, c.bookmarksPath, body)
	if err != nil {
		return err
	}
	defer utils.DrainClose(resp.Body)

	if !ok(resp) {
		return utils.RemoteError(resp, "Sync failed")
	}
	return nil
}

// Delete removes the bookmark document. A missing document is not an error.
func (c *Client) Delete(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, c.bookmarksPath, nil)
	if err != nil {
		return err
	}
	defer utils.DrainClose(resp.Body)

	if !ok(resp) && resp.StatusCode != http.StatusNotFound {
		return utils.RemoteError(resp, "Clear cloud data failed")
	}
	return nil
}

// EnsureProfile creates the user's profile document when it does not exist.
func (c *Client) EnsureProfile(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.profilePath, nil)
	if err != nil {
		return err
	}
	status := resp.StatusCode
	if status != http.StatusNotFound && !ok(resp) {
		defer utils.DrainClose(resp.Body)
		return utils.RemoteError(resp, "Profile lookup failed")
	}
	utils.DrainClose(resp.Body)

	if status != http.StatusNotFound {
		return nil
	}

	user := c.creds.CurrentUser()
	if user == nil {
		return domain.ErrUnauthenticated
	}

	body, err := json.Marshal(encodeProfile(*user, c.now()))
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	resp, err = c.do(ctx, http.MethodPatch, c.profilePath, body)
	if err != nil {
		return err
	}
	defer utils.DrainClose(resp.Body)

	if !ok(resp) {
		return utils.RemoteError(resp, "Profile creation failed")
	}

	c.log.Info("created user profile", logger.String("uid", user.UID))
	return nil
}

// ─────────────────────────────
// helpers
// ─────────────────────────────

func (c *Client) bookmarksPath(uid string) string {
	return c.baseURL + "/users/" + url.PathEscape(uid) + "/quickmark/bookmarks"
}

func (c *Client) profilePath(uid string) string {
	return c.baseURL + "/users/" + url.PathEscape(uid)
}

// do authenticates and sends one request. The path is built from the
// identity resolved by the credential lookup.
func (c *Client) do(ctx context.Context, method string, path func(uid string) string, body []byte) (*http.Response, error) {
	token, err := c.creds.ValidCredential(ctx)
	if err != nil {
		return nil, err
	}
	user := c.creds.CurrentUser()
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, path(user.UID), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach remote store: %w", err)
	}

	c.log.Debug("remote request",
		logger.String("method", method),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))
	return resp, nil
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func sortedKeys(m domain.DeletedURLs) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
