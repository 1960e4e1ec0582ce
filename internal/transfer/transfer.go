// Package transfer exports the collection as a JSON backup and imports
// backups or Homepage dashboard files into it.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
	"github.com/MrSnakeDoc/quickmark/internal/sources/homepage"
	"github.com/MrSnakeDoc/quickmark/internal/store"
)

// Backup is the export file layout.
type Backup struct {
	Bookmarks  []domain.Bookmark `json:"bookmarks"`
	GroupOrder []string          `json:"groupOrder"`
	ExportedAt time.Time         `json:"exportedAt"`
}

// Importer adds bookmarks whose url is not yet in the collection.
type Importer interface {
	Import(ctx context.Context, items []domain.Bookmark, groupOrder []string) (int, error)
}

// Service runs exports and imports.
type Service struct {
	local    *store.Local
	importer Importer
	mapper   *homepage.Mapper
	log      logger.Logger
	now      func() time.Time
}

// New creates a transfer service.
func New(local *store.Local, importer Importer, log logger.Logger) *Service {
	return &Service{
		local:    local,
		importer: importer,
		mapper:   homepage.NewMapper(),
		log:      log,
		now:      time.Now,
	}
}

// FileName is the suggested name of a backup taken at t.
func FileName(t time.Time) string {
	return "quickmark-backup-" + t.UTC().Format("2006-01-02") + ".json"
}

// Export snapshots bookmarks and group order.
func (s *Service) Export(ctx context.Context) (Backup, error) {
	c, err := s.local.Collection(ctx)
	if err != nil {
		return Backup{}, err
	}
	return Backup{
		Bookmarks:  c.Bookmarks,
		GroupOrder: c.GroupOrder,
		ExportedAt: s.now().UTC(),
	}, nil
}

// WriteExport writes an indented backup to w.
func (s *Service) WriteExport(ctx context.Context, w io.Writer) error {
	b, err := s.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Import adds the bookmarks of a backup. It returns the number added.
func (s *Service) Import(ctx context.Context, data []byte) (int, error) {
	items, order, err := ParseBackup(data)
	if err != nil {
		return 0, err
	}
	return s.importer.Import(ctx, items, order)
}

// ImportHomepage adds the entries of a Homepage bookmarks.yaml or
// services.yaml document.
func (s *Service) ImportHomepage(ctx context.Context, data []byte) (int, error) {
	items, err := s.mapper.Parse(data)
	if err != nil {
		return 0, &domain.ImportFormatError{Reason: "not a Homepage bookmarks or services file", Err: err}
	}
	return s.importer.Import(ctx, items, nil)
}

// ImportFile imports a file, picking the format from its content.
func (s *Service) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read import file: %w", err)
	}
	if looksLikeJSON(data) {
		s.log.Debug("importing backup file", logger.String("path", path))
		return s.Import(ctx, data)
	}
	s.log.Debug("importing homepage file", logger.String("path", path))
	return s.ImportHomepage(ctx, data)
}

// ParseBackup accepts a bare bookmark array or a Backup object. The payload
// is rejected as a whole when it is malformed or holds no bookmarks.
func ParseBackup(data []byte) ([]domain.Bookmark, []string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, &domain.ImportFormatError{Reason: "empty file"}
	}

	var (
		items []domain.Bookmark
		order []string
	)

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, &domain.ImportFormatError{Reason: "invalid bookmark list", Err: err}
		}
	case '{':
		var raw struct {
			Bookmarks  json.RawMessage `json:"bookmarks"`
			GroupOrder []string        `json:"groupOrder"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, nil, &domain.ImportFormatError{Reason: "invalid backup object", Err: err}
		}
		list := bytes.TrimSpace(raw.Bookmarks)
		if len(list) == 0 || list[0] != '[' {
			return nil, nil, &domain.ImportFormatError{Reason: "backup has no bookmark list"}
		}
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, nil, &domain.ImportFormatError{Reason: "invalid bookmark list", Err: err}
		}
		order = raw.GroupOrder
	default:
		return nil, nil, &domain.ImportFormatError{Reason: "not a JSON backup"}
	}

	if len(items) == 0 {
		return nil, nil, &domain.ImportFormatError{Reason: "no bookmarks found"}
	}
	return items, order, nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}
