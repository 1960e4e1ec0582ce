// Package collection edits the local bookmark collection one bookmark at a
// time. Merged state is written by the sync orchestrator; this package only
// appends, edits and records tombstones for its own deletes.
package collection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/merge"
	"github.com/MrSnakeDoc/quickmark/internal/store"
)

var (
	// ErrExists is returned by Add for a URL already in the collection.
	ErrExists = errors.New("bookmark already exists")

	// ErrInvalidURL is returned for empty or relative URLs.
	ErrInvalidURL = errors.New("invalid bookmark url")
)

// NewBookmark is the input of Add and Toggle.
type NewBookmark struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Favicon string   `json:"favicon"`
	Note    string   `json:"note"`
	Group   string   `json:"group"`
	Tags    []string `json:"tags"`
}

// Patch is a partial edit. Nil fields are left unchanged.
type Patch struct {
	Title *string   `json:"title"`
	Group *string   `json:"group"`
	Note  *string   `json:"note"`
	Tags  *[]string `json:"tags"`
}

// Query selects and orders bookmarks for List and Groups.
type Query struct {
	Tag  string
	Text string
	Sort domain.SortMode
}

// Service is the collection editor. Every mutation is a read-modify-write of
// the stored collection, serialized by mu.
type Service struct {
	local *store.Local
	log   logger.Logger
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// New creates a collection service over local persistence.
func New(local *store.Local, log logger.Logger) *Service {
	return &Service{
		local: local,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ─────────────────────────────
// Reads
// ─────────────────────────────

// List returns bookmarks filtered by tag. With a text query the result is
// ranked by match score; otherwise it is sorted with q.Sort.
func (s *Service) List(ctx context.Context, q Query) ([]domain.Bookmark, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return nil, err
	}

	items := domain.FilterByTag(c.Bookmarks, q.Tag)
	if strings.TrimSpace(q.Text) != "" {
		return domain.Search(q.Text, items), nil
	}
	return domain.SortBookmarks(items, q.Sort), nil
}

// Groups returns the filtered collection bucketed by group in display order.
func (s *Service) Groups(ctx context.Context, q Query) ([]domain.Group, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return nil, err
	}

	items := domain.FilterByTag(c.Bookmarks, q.Tag)
	if strings.TrimSpace(q.Text) != "" {
		items = domain.Search(q.Text, items)
	}
	return domain.GroupBookmarks(items, c.GroupOrder, q.Sort), nil
}

// Get returns one bookmark by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Bookmark, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	i := indexByID(c.Bookmarks, id)
	if i < 0 {
		return domain.Bookmark{}, domain.ErrNotFound
	}
	return c.Bookmarks[i], nil
}

// Find returns the best match for a free-text query.
func (s *Service) Find(ctx context.Context, text string) (domain.Bookmark, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	best := domain.Best(text, c.Bookmarks)
	if best == nil {
		return domain.Bookmark{}, domain.ErrNotFound
	}
	return *best, nil
}

// Tags lists every tag in use.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return domain.AllTags(c.Bookmarks), nil
}

// GroupOrder returns the stored group order.
func (s *Service) GroupOrder(ctx context.Context) ([]string, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return c.GroupOrder, nil
}

// ─────────────────────────────
// Mutations
// ─────────────────────────────

// Add appends a bookmark. Without an explicit group it joins the group of
// an existing bookmark on the same host, else a group named after the host.
func (s *Service) Add(ctx context.Context, in NewBookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.local.Collection(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}

	b, err := s.add(&c, in)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if err := s.local.SaveCollection(ctx, c); err != nil {
		return domain.Bookmark{}, err
	}

	s.log.Info("bookmark added",
		logger.String("url", b.URL),
		logger.String("group", b.Group))
	return b, nil
}

// Toggle removes the bookmark for in.URL when present, else adds it. It
// reports whether the bookmark exists afterwards.
func (s *Service) Toggle(ctx context.Context, in NewBookmark) (domain.Bookmark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.local.Collection(ctx)
	if err != nil {
		return domain.Bookmark{}, false, err
	}

	if i := indexByURL(c.Bookmarks, strings.TrimSpace(in.URL)); i >= 0 {
		removed := s.remove(&c, i)
		if err := s.local.SaveCollection(ctx, c); err != nil {
			return domain.Bookmark{}, false, err
		}
		s.log.Info("bookmark removed", logger.String("url", removed.URL))
		return removed, false, nil
	}

	b, err := s.add(&c, in)
	if err != nil {
		return domain.Bookmark{}, false, err
	}
	if err := s.local.SaveCollection(ctx, c); err != nil {
		return domain.Bookmark{}, false, err
	}
	s.log.Info("bookmark added", logger.String("url", b.URL), logger.String("group", b.Group))
	return b, true, nil
}

// Click records a visit.
func (s *Service) Click(ctx context.Context, id string) (domain.Bookmark, error) {
	return s.update(ctx, id, func(b *domain.Bookmark, now time.Time) {
		b.Click(now)
	})
}

// Edit applies a partial edit and stamps LastActiveAt.
func (s *Service) Edit(ctx context.Context, id string, p Patch) (domain.Bookmark, error) {
	return s.update(ctx, id, func(b *domain.Bookmark, now time.Time) {
		if p.Title != nil {
			b.Title = strings.TrimSpace(*p.Title)
		}
		if p.Group != nil {
			b.Group = strings.TrimSpace(*p.Group)
		}
		if p.Note != nil {
			b.Note = *p.Note
		}
		if p.Tags != nil {
			b.Tags = domain.NormalizeTags(*p.Tags)
		}
		b.Touch(now)
	})
}

// MoveToGroup changes a bookmark's group.
func (s *Service) MoveToGroup(ctx context.Context, id, group string) (domain.Bookmark, error) {
	return s.Edit(ctx, id, Patch{Group: &group})
}

// AddTags adds tags to a bookmark, keeping the ones it already has.
func (s *Service) AddTags(ctx context.Context, id string, tags []string) (domain.Bookmark, error) {
	return s.update(ctx, id, func(b *domain.Bookmark, now time.Time) {
		b.MergeTags(tags)
		b.Touch(now)
	})
}

// Delete removes a bookmark and records a tombstone so the next sync does
// not bring it back.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.local.Collection(ctx)
	if err != nil {
		return err
	}
	i := indexByID(c.Bookmarks, id)
	if i < 0 {
		return domain.ErrNotFound
	}

	removed := s.remove(&c, i)
	if err := s.local.SaveCollection(ctx, c); err != nil {
		return err
	}

	s.log.Info("bookmark deleted", logger.String("url", removed.URL))
	return nil
}

// SetGroupOrder replaces the group display order.
func (s *Service) SetGroupOrder(ctx context.Context, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clean := make([]string, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, g := range order {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		clean = append(clean, g)
	}
	return s.local.SaveGroupOrder(ctx, clean)
}

// Import appends bookmarks whose url is not in the collection yet, keeping
// their ids and timestamps. A non-empty groupOrder replaces the stored one.
// It returns the number of bookmarks added.
func (s *Service) Import(ctx context.Context, items []domain.Bookmark, groupOrder []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.local.Collection(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[string]bool, len(c.Bookmarks))
	for _, b := range c.Bookmarks {
		known[b.URL] = true
	}

	now := s.now().UnixMilli()
	added := 0
	for _, b := range items {
		if b.URL == "" || known[b.URL] {
			continue
		}
		known[b.URL] = true

		b = b.Clone()
		if b.ID == "" {
			b.ID = s.newID()
		}
		if b.CreatedAt == 0 {
			b.CreatedAt = now
		}
		b.Tags = domain.NormalizeTags(b.Tags)
		c.Bookmarks = append(c.Bookmarks, b)
		added++
	}
	if len(groupOrder) > 0 {
		c.GroupOrder = groupOrder
	}

	if err := s.local.SaveCollection(ctx, c); err != nil {
		return 0, err
	}

	s.log.Info("bookmarks imported",
		logger.Int("received", len(items)),
		logger.Int("added", added))
	return added, nil
}

// PurgeTombstones drops tombstones older than the retention window and
// reports how many were removed.
func (s *Service) PurgeTombstones(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.local.Collection(ctx)
	if err != nil {
		return 0, err
	}

	kept := merge.Purge(c.DeletedURLs, s.now())
	removed := len(c.DeletedURLs) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	c.DeletedURLs = kept
	if err := s.local.SaveCollection(ctx, c); err != nil {
		return 0, err
	}
	return removed, nil
}

// ─────────────────────────────
// helpers
// ─────────────────────────────

func (s *Service) update(ctx context.Context, id string, fn func(b *domain.Bookmark, now time.Time)) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.local.Collection(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	i := indexByID(c.Bookmarks, id)
	if i < 0 {
		return domain.Bookmark{}, domain.ErrNotFound
	}

	fn(&c.Bookmarks[i], s.now())
	if err := s.local.SaveCollection(ctx, c); err != nil {
		return domain.Bookmark{}, err
	}
	return c.Bookmarks[i], nil
}

func (s *Service) add(c *store.Collection, in NewBookmark) (domain.Bookmark, error) {
	raw := strings.TrimSpace(in.URL)
	u, err := url.Parse(raw)
	if raw == "" || err != nil || u.Scheme == "" {
		return domain.Bookmark{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if indexByURL(c.Bookmarks, raw) >= 0 {
		return domain.Bookmark{}, ErrExists
	}

	now := s.now().UnixMilli()
	b := domain.Bookmark{
		ID:           s.newID(),
		URL:          raw,
		Title:        strings.TrimSpace(in.Title),
		Favicon:      in.Favicon,
		Note:         in.Note,
		Group:        strings.TrimSpace(in.Group),
		Tags:         domain.NormalizeTags(in.Tags),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	host := u.Hostname()
	if b.Title == "" {
		b.Title = host
	}
	if b.Group == "" {
		b.Group = groupForHost(c.Bookmarks, host)
	}

	// A stale local tombstone for the same url is superseded by the re-add.
	delete(c.DeletedURLs, raw)
	c.Bookmarks = append(c.Bookmarks, b)
	return b, nil
}

func (s *Service) remove(c *store.Collection, i int) domain.Bookmark {
	removed := c.Bookmarks[i]
	c.Bookmarks = append(c.Bookmarks[:i], c.Bookmarks[i+1:]...)
	c.DeletedURLs.Record(removed.URL, s.now().UnixMilli())
	return removed
}

func groupForHost(items []domain.Bookmark, host string) string {
	if host == "" {
		return domain.Ungrouped
	}
	for i := range items {
		if items[i].Hostname() == host {
			return items[i].GroupOrDefault()
		}
	}
	return host
}

func indexByID(items []domain.Bookmark, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func indexByURL(items []domain.Bookmark, u string) int {
	for i := range items {
		if items[i].URL == u {
			return i
		}
	}
	return -1
}
