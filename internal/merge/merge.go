// Package merge reconciles a local and a cloud copy of the bookmark
// collection. It performs no I/O and is deterministic for a given now.
package merge

import (
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

// TombstoneRetention is how long a deletion is remembered after it happened.
const TombstoneRetention = 30 * 24 * time.Hour

// Result is the reconciled state to write to both sides.
type Result struct {
	Bookmarks   []domain.Bookmark
	DeletedURLs domain.DeletedURLs
}

// Merge combines both bookmark sets and both tombstone sets.
//
// A bookmark survives only when its activity time is strictly newer than its
// tombstone, so a visit after a delete brings it back. When both sides hold
// the same url, the side with the newer LastClickAt wins, then the newer
// CreatedAt, and on a full tie the cloud copy wins. ClickCount is always the
// max of both sides.
//
// The result lists cloud bookmarks in cloud order followed by bookmarks only
// known locally, in local order.
func Merge(local, cloud []domain.Bookmark, localDel, cloudDel domain.DeletedURLs, now time.Time) Result {
	deleted := unionTombstones(localDel, cloudDel)

	merged := make([]domain.Bookmark, 0, len(cloud)+len(local))
	index := make(map[string]int, len(cloud)+len(local))

	for _, b := range cloud {
		if isDeleted(b, deleted) {
			continue
		}
		if i, ok := index[b.URL]; ok {
			merged[i] = resolve(b, merged[i])
			continue
		}
		index[b.URL] = len(merged)
		merged = append(merged, b.Clone())
	}

	for _, b := range local {
		if isDeleted(b, deleted) {
			continue
		}
		i, ok := index[b.URL]
		if !ok {
			index[b.URL] = len(merged)
			merged = append(merged, b.Clone())
			continue
		}
		merged[i] = resolve(b, merged[i])
	}

	return Result{
		Bookmarks:   merged,
		DeletedURLs: Purge(deleted, now),
	}
}

// Purge drops tombstones at or beyond the retention window. The input is not
// modified.
func Purge(deleted domain.DeletedURLs, now time.Time) domain.DeletedURLs {
	cutoff := now.Add(-TombstoneRetention).UnixMilli()
	out := make(domain.DeletedURLs, len(deleted))
	for url, at := range deleted {
		if at > cutoff {
			out[url] = at
		}
	}
	return out
}

func unionTombstones(localDel, cloudDel domain.DeletedURLs) domain.DeletedURLs {
	out := cloudDel.Clone()
	for url, at := range localDel {
		out.Record(url, at)
	}
	return out
}

func isDeleted(b domain.Bookmark, deleted domain.DeletedURLs) bool {
	at, ok := deleted[b.URL]
	if !ok || at == 0 {
		return false
	}
	return b.ActivityTime() <= at
}

// resolve picks the winner between a local and a cloud copy of one url.
func resolve(local, cloud domain.Bookmark) domain.Bookmark {
	if localWins(local, cloud) {
		return combine(local, cloud)
	}
	return combine(cloud, local)
}

func localWins(local, cloud domain.Bookmark) bool {
	if local.LastClickAt != cloud.LastClickAt {
		return local.LastClickAt > cloud.LastClickAt
	}
	return local.CreatedAt > cloud.CreatedAt
}

// combine returns winner with the counters of both sides folded in. The
// winner's metadata is taken as is, so a cleared note, group or tag list
// stays cleared. Only identity fields missing on the winner are filled.
func combine(winner, other domain.Bookmark) domain.Bookmark {
	out := winner.Clone()

	if out.ID == "" {
		out.ID = other.ID
	}
	if out.CreatedAt == 0 {
		out.CreatedAt = other.CreatedAt
	}

	out.ClickCount = max(winner.ClickCount, other.ClickCount)
	out.LastActiveAt = max(winner.LastActiveAt, other.LastActiveAt)

	return out
}
