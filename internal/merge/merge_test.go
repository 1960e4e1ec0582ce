package merge

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

var day = int64(24 * time.Hour / time.Millisecond)

func urls(items []domain.Bookmark) []string {
	out := make([]string, 0, len(items))
	for _, b := range items {
		out = append(out, b.URL)
	}
	return out
}

func sortedURLs(items []domain.Bookmark) []string {
	out := urls(items)
	sort.Strings(out)
	return out
}

func find(items []domain.Bookmark, url string) *domain.Bookmark {
	for i := range items {
		if items[i].URL == url {
			return &items[i]
		}
	}
	return nil
}

func TestMerge_LocalNewerClickWins(t *testing.T) {
	local := []domain.Bookmark{{URL: "a.com", Title: "local", ClickCount: 5, LastClickAt: 100}}
	cloud := []domain.Bookmark{{URL: "a.com", Title: "cloud", ClickCount: 3, LastClickAt: 50}}

	got := Merge(local, cloud, nil, nil, time.UnixMilli(1000))

	if len(got.Bookmarks) != 1 {
		t.Fatalf("Merge() returned %d bookmarks, want 1", len(got.Bookmarks))
	}
	b := got.Bookmarks[0]
	if b.Title != "local" || b.LastClickAt != 100 {
		t.Errorf("Merge() winner = %+v, want local metadata", b)
	}
	if b.ClickCount != 5 {
		t.Errorf("ClickCount = %d, want 5", b.ClickCount)
	}
}

func TestMerge_TombstoneDropsStaleCloudCopy(t *testing.T) {
	cloud := []domain.Bookmark{{URL: "b.com", CreatedAt: 100, LastClickAt: 150}}
	localDel := domain.DeletedURLs{"b.com": 200}

	got := Merge(nil, cloud, localDel, nil, time.UnixMilli(300))

	if len(got.Bookmarks) != 0 {
		t.Errorf("Merge() bookmarks = %v, want none", urls(got.Bookmarks))
	}
	if got.DeletedURLs["b.com"] != 200 {
		t.Errorf("tombstone = %d, want 200", got.DeletedURLs["b.com"])
	}
}

func TestMerge_Tombstones(t *testing.T) {
	now := time.UnixMilli(100 * day)

	tests := []struct {
		name      string
		local     []domain.Bookmark
		cloud     []domain.Bookmark
		localDel  domain.DeletedURLs
		cloudDel  domain.DeletedURLs
		wantURLs  []string
		wantTombs domain.DeletedURLs
	}{
		{
			name:      "tombstone equal to activity deletes",
			cloud:     []domain.Bookmark{{URL: "x", CreatedAt: 10, LastClickAt: 50}},
			cloudDel:  domain.DeletedURLs{"x": 50},
			wantURLs:  []string{},
			wantTombs: domain.DeletedURLs{},
		},
		{
			name:      "click after delete undeletes",
			local:     []domain.Bookmark{{URL: "x", CreatedAt: 10, LastClickAt: 99 * day}},
			cloudDel:  domain.DeletedURLs{"x": 98 * day},
			wantURLs:  []string{"x"},
			wantTombs: domain.DeletedURLs{"x": 98 * day},
		},
		{
			name:      "local copy older than tombstone is dropped",
			local:     []domain.Bookmark{{URL: "x", CreatedAt: 10}},
			cloud:     []domain.Bookmark{{URL: "y", CreatedAt: 10}},
			cloudDel:  domain.DeletedURLs{"x": 95 * day},
			wantURLs:  []string{"y"},
			wantTombs: domain.DeletedURLs{"x": 95 * day},
		},
		{
			name:      "union keeps the newest deletion",
			localDel:  domain.DeletedURLs{"x": 90 * day, "y": 91 * day},
			cloudDel:  domain.DeletedURLs{"x": 95 * day},
			wantURLs:  []string{},
			wantTombs: domain.DeletedURLs{"x": 95 * day, "y": 91 * day},
		},
		{
			name:      "tombstones older than thirty days are purged",
			localDel:  domain.DeletedURLs{"old": 60 * day, "edge": 70 * day, "fresh": 71 * day},
			wantURLs:  []string{},
			wantTombs: domain.DeletedURLs{"fresh": 71 * day},
		},
		{
			name:      "zero tombstone is ignored",
			cloud:     []domain.Bookmark{{URL: "x"}},
			cloudDel:  domain.DeletedURLs{"x": 0},
			wantURLs:  []string{"x"},
			wantTombs: domain.DeletedURLs{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.local, tt.cloud, tt.localDel, tt.cloudDel, now)

			if gotURLs := urls(got.Bookmarks); !reflect.DeepEqual(gotURLs, tt.wantURLs) {
				t.Errorf("Merge() urls = %v, want %v", gotURLs, tt.wantURLs)
			}
			if !reflect.DeepEqual(got.DeletedURLs, tt.wantTombs) {
				t.Errorf("Merge() tombstones = %v, want %v", got.DeletedURLs, tt.wantTombs)
			}
		})
	}
}

func TestMerge_ConflictResolution(t *testing.T) {
	tests := []struct {
		name      string
		local     domain.Bookmark
		cloud     domain.Bookmark
		wantTitle string
		wantNote  string
		wantCount int64
	}{
		{
			name:      "cloud newer click wins but count is max",
			local:     domain.Bookmark{URL: "u", Title: "L", ClickCount: 9, LastClickAt: 10},
			cloud:     domain.Bookmark{URL: "u", Title: "C", ClickCount: 2, LastClickAt: 20},
			wantTitle: "C",
			wantCount: 9,
		},
		{
			name:      "click tie broken by createdAt",
			local:     domain.Bookmark{URL: "u", Title: "L", CreatedAt: 5, LastClickAt: 10},
			cloud:     domain.Bookmark{URL: "u", Title: "C", CreatedAt: 4, LastClickAt: 10},
			wantTitle: "L",
		},
		{
			name:      "full tie goes to cloud",
			local:     domain.Bookmark{URL: "u", Title: "L", CreatedAt: 5, LastClickAt: 10},
			cloud:     domain.Bookmark{URL: "u", Title: "C", CreatedAt: 5, LastClickAt: 10},
			wantTitle: "C",
		},
		{
			name:      "newer side with empty note keeps it empty",
			local:     domain.Bookmark{URL: "u", Title: "L", Note: "stale", LastClickAt: 10},
			cloud:     domain.Bookmark{URL: "u", Title: "C", LastClickAt: 20},
			wantTitle: "C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge([]domain.Bookmark{tt.local}, []domain.Bookmark{tt.cloud}, nil, nil, time.UnixMilli(1000))
			if len(got.Bookmarks) != 1 {
				t.Fatalf("Merge() returned %d bookmarks, want 1", len(got.Bookmarks))
			}
			b := got.Bookmarks[0]
			if b.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", b.Title, tt.wantTitle)
			}
			if b.Note != tt.wantNote {
				t.Errorf("Note = %q, want %q", b.Note, tt.wantNote)
			}
			if b.ClickCount != tt.wantCount {
				t.Errorf("ClickCount = %d, want %d", b.ClickCount, tt.wantCount)
			}
		})
	}
}

func TestMerge_ClearedFieldsStayCleared(t *testing.T) {
	tests := []struct {
		name  string
		local domain.Bookmark
		cloud domain.Bookmark
	}{
		{
			name:  "cleared locally",
			local: domain.Bookmark{URL: "u", LastClickAt: 500},
			cloud: domain.Bookmark{ID: "c1", URL: "u", Title: "T", Favicon: "f.ico", Note: "old note", Group: "Work", Tags: []string{"x"}, CreatedAt: 7, LastClickAt: 100},
		},
		{
			name:  "cleared in cloud",
			local: domain.Bookmark{ID: "l1", URL: "u", Title: "T", Favicon: "f.ico", Note: "old note", Group: "Work", Tags: []string{"x"}, CreatedAt: 7, LastClickAt: 100},
			cloud: domain.Bookmark{URL: "u", Tags: []string{}, LastClickAt: 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge([]domain.Bookmark{tt.local}, []domain.Bookmark{tt.cloud}, nil, nil, time.UnixMilli(1000))
			if len(got.Bookmarks) != 1 {
				t.Fatalf("Merge() returned %d bookmarks, want 1", len(got.Bookmarks))
			}
			b := got.Bookmarks[0]
			if b.Note != "" || b.Group != "" || b.Title != "" || b.Favicon != "" || len(b.Tags) != 0 {
				t.Errorf("Merge() = %+v, want cleared note, group, title, favicon and tags", b)
			}
			if b.ID == "" || b.CreatedAt != 7 {
				t.Errorf("Merge() ID = %q CreatedAt = %d, want identity filled from the other side", b.ID, b.CreatedAt)
			}
			if b.LastClickAt != 500 {
				t.Errorf("LastClickAt = %d, want 500", b.LastClickAt)
			}
		})
	}
}

func TestMerge_DuplicateCloudURLKeepsHighestCount(t *testing.T) {
	cloud := []domain.Bookmark{
		{URL: "dup", Title: "first", ClickCount: 9, LastClickAt: 300},
		{URL: "dup", Title: "second", ClickCount: 2, LastClickAt: 100},
	}

	got := Merge(nil, cloud, nil, nil, time.UnixMilli(1000))

	if len(got.Bookmarks) != 1 {
		t.Fatalf("Merge() returned %d bookmarks, want 1", len(got.Bookmarks))
	}
	b := got.Bookmarks[0]
	if b.ClickCount != 9 {
		t.Errorf("ClickCount = %d, want 9", b.ClickCount)
	}
	if b.Title != "first" {
		t.Errorf("Title = %q, want the more recently clicked copy", b.Title)
	}
}

func TestMerge_Order(t *testing.T) {
	local := []domain.Bookmark{{URL: "l1"}, {URL: "c2"}, {URL: "l2"}}
	cloud := []domain.Bookmark{{URL: "c1"}, {URL: "c2"}}

	got := Merge(local, cloud, nil, nil, time.UnixMilli(1000))

	want := []string{"c1", "c2", "l1", "l2"}
	if gotURLs := urls(got.Bookmarks); !reflect.DeepEqual(gotURLs, want) {
		t.Errorf("Merge() order = %v, want %v", gotURLs, want)
	}
}

func sampleSets() ([]domain.Bookmark, []domain.Bookmark, domain.DeletedURLs, domain.DeletedURLs) {
	local := []domain.Bookmark{
		{ID: "1", URL: "a", Title: "A local", ClickCount: 4, CreatedAt: 1, LastClickAt: 40, Tags: []string{"x"}},
		{ID: "2", URL: "b", Title: "B", ClickCount: 1, CreatedAt: 2},
		{ID: "3", URL: "d", Title: "D", CreatedAt: 3, LastClickAt: 90},
	}
	cloud := []domain.Bookmark{
		{ID: "9", URL: "a", Title: "A cloud", ClickCount: 7, CreatedAt: 1, LastClickAt: 30},
		{ID: "8", URL: "c", Title: "C", CreatedAt: 5, LastClickAt: 20},
		{ID: "7", URL: "d", Title: "D cloud", CreatedAt: 3, LastClickAt: 10},
	}
	localDel := domain.DeletedURLs{"c": 50}
	cloudDel := domain.DeletedURLs{"d": 60, "e": 70}
	return local, cloud, localDel, cloudDel
}

func TestMerge_Properties(t *testing.T) {
	now := time.UnixMilli(1000)
	local, cloud, localDel, cloudDel := sampleSets()

	ab := Merge(local, cloud, localDel, cloudDel, now)
	ba := Merge(cloud, local, cloudDel, localDel, now)

	t.Run("commutative url set", func(t *testing.T) {
		if !reflect.DeepEqual(sortedURLs(ab.Bookmarks), sortedURLs(ba.Bookmarks)) {
			t.Errorf("Merge(A,B) = %v, Merge(B,A) = %v", sortedURLs(ab.Bookmarks), sortedURLs(ba.Bookmarks))
		}
		if !reflect.DeepEqual(ab.DeletedURLs, ba.DeletedURLs) {
			t.Errorf("tombstones differ: %v vs %v", ab.DeletedURLs, ba.DeletedURLs)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		again := Merge(ab.Bookmarks, ab.Bookmarks, ab.DeletedURLs, ab.DeletedURLs, now)
		if !reflect.DeepEqual(again, ab) {
			t.Errorf("Merge(M,M) = %+v, want %+v", again, ab)
		}
	})

	t.Run("click count never regresses", func(t *testing.T) {
		for _, b := range ab.Bookmarks {
			want := int64(0)
			if l := find(local, b.URL); l != nil {
				want = max(want, l.ClickCount)
			}
			if c := find(cloud, b.URL); c != nil {
				want = max(want, c.ClickCount)
			}
			if b.ClickCount < want {
				t.Errorf("%s ClickCount = %d, want >= %d", b.URL, b.ClickCount, want)
			}
		}
	})

	t.Run("deleted urls stay deleted", func(t *testing.T) {
		if find(ab.Bookmarks, "c") != nil {
			t.Error("c was deleted after its last activity and must be absent")
		}
		if find(ab.Bookmarks, "d") == nil {
			t.Error("d was clicked after its deletion and must survive")
		}
	})
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	local := []domain.Bookmark{{URL: "a", Tags: []string{"x"}, LastClickAt: 10}}
	localDel := domain.DeletedURLs{"z": 5}

	got := Merge(local, nil, localDel, nil, time.UnixMilli(1000))
	got.Bookmarks[0].Tags[0] = "changed"
	got.DeletedURLs["z"] = 99

	if local[0].Tags[0] != "x" {
		t.Error("Merge() result shares tag storage with its input")
	}
	if localDel["z"] != 5 {
		t.Error("Merge() result shares the tombstone map with its input")
	}
}
