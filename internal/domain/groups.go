package domain

import (
	"sort"
	"strings"
)

// SortMode selects how bookmarks are ordered inside a group.
type SortMode string

const (
	SortRecent SortMode = "recent"
	SortAlpha  SortMode = "alpha"
	SortClicks SortMode = "clicks"
)

// ParseSortMode falls back to SortRecent for unknown values.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortAlpha:
		return SortAlpha
	case SortClicks:
		return SortClicks
	default:
		return SortRecent
	}
}

// Group is one rendered section of the collection.
type Group struct {
	Name      string     `json:"name"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// SortBookmarks returns a sorted copy. The sort is stable so equal keys keep
// their stored order.
func SortBookmarks(items []Bookmark, mode SortMode) []Bookmark {
	sorted := make([]Bookmark, len(items))
	copy(sorted, items)

	switch mode {
	case SortAlpha:
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Title) < strings.ToLower(sorted[j].Title)
		})
	case SortClicks:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].ClickCount > sorted[j].ClickCount
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].RecencyTime() > sorted[j].RecencyTime()
		})
	}
	return sorted
}

// FilterByTag keeps bookmarks carrying tag. An empty tag keeps everything.
func FilterByTag(items []Bookmark, tag string) []Bookmark {
	if tag == "" {
		return items
	}
	out := make([]Bookmark, 0, len(items))
	for _, b := range items {
		if b.HasTag(tag) {
			out = append(out, b)
		}
	}
	return out
}

// OrderGroups returns group names in display order: names listed in order
// that still have bookmarks come first, then the remaining groups in the
// order they first appear in items.
func OrderGroups(items []Bookmark, order []string) []string {
	present := make(map[string]bool)
	appearance := make([]string, 0)
	for _, b := range items {
		g := b.GroupOrDefault()
		if !present[g] {
			present[g] = true
			appearance = append(appearance, g)
		}
	}

	out := make([]string, 0, len(appearance))
	listed := make(map[string]bool, len(order))
	for _, g := range order {
		if present[g] && !listed[g] {
			listed[g] = true
			out = append(out, g)
		}
	}
	for _, g := range appearance {
		if !listed[g] {
			out = append(out, g)
		}
	}
	return out
}

// GroupBookmarks buckets items by group, orders the groups with OrderGroups
// and sorts each bucket with mode.
func GroupBookmarks(items []Bookmark, order []string, mode SortMode) []Group {
	buckets := make(map[string][]Bookmark)
	for _, b := range items {
		g := b.GroupOrDefault()
		buckets[g] = append(buckets[g], b)
	}

	names := OrderGroups(items, order)
	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, Group{
			Name:      name,
			Bookmarks: SortBookmarks(buckets[name], mode),
		})
	}
	return groups
}

// AllTags lists every tag in first-seen order.
func AllTags(items []Bookmark) []string {
	var tags []string
	for _, b := range items {
		tags = append(tags, b.Tags...)
	}
	return NormalizeTags(tags)
}
