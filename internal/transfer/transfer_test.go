package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/collection"
	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/store"
	"github.com/MrSnakeDoc/quickmark/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *store.Local) {
	t.Helper()
	local := store.New(memory.New())
	s := New(local, collection.New(local, logger.Nop()), logger.Nop())
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return s, local
}

func TestParseBackup(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCount int
		wantOrder []string
		wantErr   bool
	}{
		{
			name:      "bare array",
			data:      `[{"url":"https://a.com"},{"url":"https://b.com"}]`,
			wantCount: 2,
		},
		{
			name:      "backup object",
			data:      `{"bookmarks":[{"url":"https://a.com"}],"groupOrder":["G"],"exportedAt":"2026-01-01T00:00:00Z"}`,
			wantCount: 1,
			wantOrder: []string{"G"},
		},
		{name: "empty array", data: `[]`, wantErr: true},
		{name: "object without bookmarks", data: `{"groupOrder":["G"]}`, wantErr: true},
		{name: "bookmarks not a list", data: `{"bookmarks":{"url":"x"}}`, wantErr: true},
		{name: "wrong element type", data: `[1,2]`, wantErr: true},
		{name: "not json", data: `hello`, wantErr: true},
		{name: "empty", data: `  `, wantErr: true},
		{name: "truncated", data: `[{"url":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, order, err := ParseBackup([]byte(tt.data))

			if tt.wantErr {
				var formatErr *domain.ImportFormatError
				if !errors.As(err, &formatErr) {
					t.Fatalf("ParseBackup() error = %v, want ImportFormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBackup() error = %v", err)
			}
			if len(items) != tt.wantCount {
				t.Errorf("ParseBackup() items = %d, want %d", len(items), tt.wantCount)
			}
			if !reflect.DeepEqual(order, tt.wantOrder) {
				t.Errorf("ParseBackup() order = %v, want %v", order, tt.wantOrder)
			}
		})
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, srcLocal := newTestService(t)
	_ = srcLocal.SaveCollection(ctx, store.Collection{
		Bookmarks: []domain.Bookmark{
			{ID: "1", URL: "https://a.com", Title: "A", Group: "G", Tags: []string{"x"}, CreatedAt: 10, ClickCount: 2},
		},
		GroupOrder: []string{"G"},
	})

	var buf bytes.Buffer
	if err := src.WriteExport(ctx, &buf); err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}

	var backup Backup
	if err := json.Unmarshal(buf.Bytes(), &backup); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if !backup.ExportedAt.Equal(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("ExportedAt = %v", backup.ExportedAt)
	}

	dst, dstLocal := newTestService(t)
	added, err := dst.Import(ctx, buf.Bytes())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if added != 1 {
		t.Errorf("Import() added = %d, want 1", added)
	}

	c, _ := dstLocal.Collection(ctx)
	if !reflect.DeepEqual(c.Bookmarks, backup.Bookmarks) {
		t.Errorf("imported = %+v, want %+v", c.Bookmarks, backup.Bookmarks)
	}
	if !reflect.DeepEqual(c.GroupOrder, []string{"G"}) {
		t.Errorf("GroupOrder = %v", c.GroupOrder)
	}

	// A second import adds nothing.
	if added, _ := dst.Import(ctx, buf.Bytes()); added != 0 {
		t.Errorf("second Import() added = %d, want 0", added)
	}
}

func TestImport_RejectsWholePayload(t *testing.T) {
	ctx := context.Background()
	s, local := newTestService(t)

	if _, err := s.Import(ctx, []byte(`{"bookmarks": "nope"}`)); err == nil {
		t.Fatal("Import() error = nil, want ImportFormatError")
	}
	c, _ := local.Collection(ctx)
	if len(c.Bookmarks) != 0 {
		t.Errorf("collection changed by a rejected import: %+v", c.Bookmarks)
	}
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "json backup",
			file:    "backup.json",
			content: `[{"url":"https://a.com"}]`,
			want:    1,
		},
		{
			name: "homepage bookmarks",
			file: "bookmarks.yaml",
			content: `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go:
        - href: https://go.dev/
`,
			want: 2,
		},
		{
			name:    "unknown yaml",
			file:    "other.yaml",
			content: "name: value\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t)
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			got, err := s.ImportFile(ctx, path)
			if tt.wantErr {
				var formatErr *domain.ImportFormatError
				if !errors.As(err, &formatErr) {
					t.Errorf("ImportFile() error = %v, want ImportFormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ImportFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ImportFile() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC))
	if got != "quickmark-backup-2026-10-16.json" {
		t.Errorf("FileName() = %q", got)
	}
}
