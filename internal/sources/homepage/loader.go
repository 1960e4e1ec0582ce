// Package homepage imports bookmarks from the YAML files of a Homepage
// dashboard (gethomepage.dev). Categories and service groups become
// quickmark groups.
package homepage

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads a Homepage bookmarks.yaml or services.yaml file.
type Loader struct {
	filePath string
	mapper   *Mapper
}

// NewLoader creates a new Homepage loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		mapper:   NewMapper(),
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads the file and maps it to bookmarks, accepting either layout.
func (l *Loader) Load() ([]domain.Bookmark, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read homepage file: %w", err)
	}
	return l.mapper.Parse(data)
}

// ParseBookmarks decodes a bookmarks.yaml document.
func ParseBookmarks(data []byte) (BookmarksConfig, error) {
	var config BookmarksConfig
	if err := yaml.Unmarshal(stripTemplateVariables(data), &config); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}
	return config, nil
}

// ParseServices decodes a services.yaml document.
func ParseServices(data []byte) (ServicesConfig, error) {
	var config ServicesConfig
	if err := yaml.Unmarshal(stripTemplateVariables(data), &config); err != nil {
		return nil, fmt.Errorf("failed to parse services yaml: %w", err)
	}
	return config, nil
}

// Parse maps a Homepage document to bookmarks. The bookmarks.yaml layout is
// tried first, then services.yaml.
func (m *Mapper) Parse(data []byte) ([]domain.Bookmark, error) {
	bookmarks, errBookmarks := ParseBookmarks(data)
	if errBookmarks == nil {
		out, err := m.MapBookmarks(bookmarks)
		if err == nil {
			return out, nil
		}
		errBookmarks = err
	}

	services, errServices := ParseServices(data)
	if errServices == nil {
		out, err := m.MapServices(services)
		if err == nil {
			return out, nil
		}
		errServices = err
	}

	return nil, errors.Join(errBookmarks, errServices)
}

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
