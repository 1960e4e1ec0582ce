package domain

import (
	"net/url"
	"strings"
	"time"
)

// Ungrouped is the group assigned to bookmarks saved without one.
const Ungrouped = "Ungrouped"

// Bookmark represents one saved page.
//
// A Bookmark is the same logical entity across devices when its URL matches,
// regardless of ID. All timestamps are milliseconds since the Unix epoch.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is an opaque identifier assigned at creation.
	ID string `json:"id"`

	// URL is the merge key.
	// Example: https://go.dev/doc/
	URL string `json:"url"`

	// ─────────────────────────────
	// Display
	// ─────────────────────────────

	Title   string `json:"title"`
	Favicon string `json:"favicon"`
	Note    string `json:"note"`

	// Group is a single free-text label.
	Group string `json:"group"`

	// Tags is a set stored as a sequence; order is insignificant.
	Tags []string `json:"tags"`

	// ─────────────────────────────
	// Activity
	// ─────────────────────────────

	// CreatedAt never changes after creation.
	CreatedAt int64 `json:"createdAt"`

	// ClickCount only ever grows.
	ClickCount int64 `json:"clickCount"`

	// LastClickAt is stamped on every visit and drives merge precedence.
	LastClickAt int64 `json:"lastClickAt"`

	// LastActiveAt is stamped on visits and edits and drives "recent" sorting.
	LastActiveAt int64 `json:"lastActiveAt"`
}

// ActivityTime is the most recent moment the bookmark is known to have been
// touched: max(LastClickAt, CreatedAt).
func (b *Bookmark) ActivityTime() int64 {
	if b.LastClickAt > b.CreatedAt {
		return b.LastClickAt
	}
	return b.CreatedAt
}

// RecencyTime is the sort key for the "recent" order.
func (b *Bookmark) RecencyTime() int64 {
	if b.LastActiveAt != 0 {
		return b.LastActiveAt
	}
	return b.CreatedAt
}

// GroupOrDefault returns the bookmark's group or Ungrouped.
func (b *Bookmark) GroupOrDefault() string {
	if strings.TrimSpace(b.Group) == "" {
		return Ungrouped
	}
	return b.Group
}

// HasTag reports whether tag is attached to the bookmark.
func (b *Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Hostname returns the URL host without port, or "" when the URL does not parse.
func (b *Bookmark) Hostname() string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Clone returns a deep copy so callers can mutate tags safely.
func (b Bookmark) Clone() Bookmark {
	if b.Tags != nil {
		b.Tags = append([]string(nil), b.Tags...)
	}
	return b
}

// Click records a visit at now.
func (b *Bookmark) Click(now time.Time) {
	ms := now.UnixMilli()
	b.ClickCount++
	b.LastClickAt = ms
	b.LastActiveAt = ms
}

// Touch stamps an edit at now.
func (b *Bookmark) Touch(now time.Time) {
	b.LastActiveAt = now.UnixMilli()
}

// MergeTags adds tags not already present, keeping existing order.
func (b *Bookmark) MergeTags(tags []string) {
	for _, t := range NormalizeTags(tags) {
		if !b.HasTag(t) {
			b.Tags = append(b.Tags, t)
		}
	}
}

// NormalizeTags trims, drops empty values and removes duplicates while
// preserving first-seen order. A leading '#' is stripped.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// DeletedURLs maps a bookmark URL to the millisecond timestamp at which it was
// deleted. Entries only exist to stop a merge from resurrecting the bookmark.
type DeletedURLs map[string]int64

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (d DeletedURLs) Clone() DeletedURLs {
	out := make(DeletedURLs, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Record stores a deletion, keeping the newest timestamp for the URL.
func (d DeletedURLs) Record(url string, at int64) {
	if at > d[url] {
		d[url] = at
	}
}
