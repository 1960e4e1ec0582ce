package homepage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

var (
	errNoBookmarks = errors.New("no valid bookmarks found in homepage bookmarks")
	errNoServices  = errors.New("no valid services found in homepage services")
)

// importTag marks every bookmark that came from a Homepage file.
const importTag = "homepage"

// Mapper converts Homepage entries to domain bookmarks.
type Mapper struct {
	now func() time.Time
}

func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// walk visits every (group, name, props) triple in key order, so repeated
// imports of the same file produce the same sequence.
func walk[P any](cfg []map[string][]map[string]P, fn func(group, name string, props P)) {
	for _, groups := range cfg {
		for _, group := range slices.Sorted(maps.Keys(groups)) {
			for _, entries := range groups[group] {
				for _, name := range slices.Sorted(maps.Keys(entries)) {
					fn(group, name, entries[name])
				}
			}
		}
	}
}

// MapBookmarks converts bookmarks.yaml. Categories become groups and the
// abbreviation is kept as a tag.
func (m *Mapper) MapBookmarks(cfg BookmarksConfig) ([]domain.Bookmark, error) {
	created := m.now().UnixMilli()
	var out []domain.Bookmark

	walk(cfg, func(group, name string, entries []BookmarkEntry) {
		if len(entries) == 0 || hostnameOf(entries[0].Href) == "" {
			return
		}
		e := entries[0]
		out = append(out, domain.Bookmark{
			ID:        stableID(e.Href),
			URL:       e.Href,
			Title:     name,
			Favicon:   iconURL(e.Icon),
			Note:      e.Description,
			Group:     group,
			Tags:      domain.NormalizeTags([]string{importTag, e.Abbr}),
			CreatedAt: created,
		})
	})

	if len(out) == 0 {
		return nil, errNoBookmarks
	}
	return out, nil
}

// MapServices converts services.yaml. The service group becomes the
// bookmark group and the description its note.
func (m *Mapper) MapServices(cfg ServicesConfig) ([]domain.Bookmark, error) {
	created := m.now().UnixMilli()
	var out []domain.Bookmark

	walk(cfg, func(group, name string, p ServiceProps) {
		host := hostnameOf(p.Href)
		if host == "" {
			return
		}
		if name == "" {
			name, _, _ = strings.Cut(host, ".")
		}
		out = append(out, domain.Bookmark{
			ID:        stableID(p.Href),
			URL:       p.Href,
			Title:     name,
			Favicon:   iconURL(p.Icon),
			Note:      p.Description,
			Group:     group,
			Tags:      []string{importTag},
			CreatedAt: created,
		})
	})

	if len(out) == 0 {
		return nil, errNoServices
	}
	return out, nil
}

func hostnameOf(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// iconURL keeps absolute icon URLs only. Short names such as
// "adguard-home.svg" resolve inside a Homepage install and nowhere else.
func iconURL(icon string) string {
	if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		return icon
	}
	return ""
}

// stableID derives the id from the url so re-importing a file yields the
// same ids.
func stableID(href string) string {
	sum := sha256.Sum256([]byte(href))
	return hex.EncodeToString(sum[:8])
}
