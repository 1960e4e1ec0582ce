package domain

import (
	"cmp"
	"slices"
	"strings"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Field weights: a title hit matters more than a tag or URL hit
	WeightTitle = 1.0
	WeightTag   = 0.8
	WeightHost  = 0.6
	WeightNote  = 0.3
)

// Match is a bookmark with its relevance to a query.
type Match struct {
	Bookmark Bookmark
	Score    float64
}

// ScoreBookmark calculates the match score for a bookmark against a query string.
// Every whitespace-separated query word must match somewhere for a positive score.
func ScoreBookmark(queryStr string, bookmark *Bookmark) float64 {
	if bookmark == nil {
		return 0.0
	}

	queryStr = strings.ToLower(strings.TrimSpace(queryStr))
	if queryStr == "" {
		return 0.0
	}

	title := strings.ToLower(bookmark.Title)
	host := strings.ToLower(strings.TrimPrefix(bookmark.Hostname(), "www."))
	note := strings.ToLower(bookmark.Note)

	// Whole-query exact title match (highest score)
	if queryStr == title {
		return ScoreExactMatch * 2
	}

	var total float64
	for _, word := range strings.Fields(queryStr) {
		best := scoreText(word, title) * WeightTitle
		if s := scoreText(word, host) * WeightHost; s > best {
			best = s
		}
		if s := scoreText(word, note) * WeightNote; s > best {
			best = s
		}
		for _, tag := range bookmark.Tags {
			if s := scoreText(word, strings.ToLower(tag)) * WeightTag; s > best {
				best = s
			}
		}
		if best == 0.0 {
			return 0.0
		}
		total += best
	}

	return total
}

// scoreText scores a single query word against a lowercased field
func scoreText(word, text string) float64 {
	if word == "" || text == "" {
		return 0.0
	}

	switch {
	case word == text:
		return ScoreExactMatch
	case strings.HasPrefix(text, word):
		return ScorePrefixMatch
	}

	if i := strings.Index(text, word); i >= 0 {
		return ScoreSubstringMatch + ScorePositionBonus*(1-float64(i)/float64(len(text)))
	}

	// Loose character overlap, only for words long enough to mean something.
	if len(word) >= 3 {
		if o := charOverlap(word, text); o > 0.8 {
			return ScoreFuzzyMatch * o
		}
	}

	return 0.0
}

// charOverlap is the share of runes in word that also occur in text.
func charOverlap(word, text string) float64 {
	n, hits := 0, 0
	for _, c := range word {
		n++
		if strings.ContainsRune(text, c) {
			hits++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(hits) / float64(n)
}

// Rank scores every bookmark against query and returns the matches, best
// first. Ties keep collection order.
func Rank(query string, bookmarks []Bookmark) []Match {
	matches := make([]Match, 0, len(bookmarks))
	for i := range bookmarks {
		if score := ScoreBookmark(query, &bookmarks[i]); score > 0 {
			matches = append(matches, Match{Bookmark: bookmarks[i], Score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches
}

// Search returns the matching bookmarks, best first.
func Search(query string, bookmarks []Bookmark) []Bookmark {
	matches := Rank(query, bookmarks)
	out := make([]Bookmark, len(matches))
	for i, m := range matches {
		out[i] = m.Bookmark
	}
	return out
}

// Best returns the top match, or nil when nothing matches.
func Best(query string, bookmarks []Bookmark) *Bookmark {
	matches := Rank(query, bookmarks)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0].Bookmark
}
