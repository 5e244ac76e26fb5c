package homepage

import (
	"fmt"
	"os"
	"regexp"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"gopkg.in/yaml.v3"
)

// Kind selects which Homepage file format is parsed.
type Kind string

const (
	KindBookmarks Kind = "bookmarks"
	KindServices  Kind = "services"
)

// ParseKind validates a kind name. Empty means bookmarks.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindBookmarks:
		return KindBookmarks, nil
	case KindServices:
		return KindServices, nil
	default:
		return "", fmt.Errorf("unknown homepage file kind %q", s)
	}
}

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Parse decodes a Homepage YAML document into bookmarks ready to be added
// to the store.
func Parse(kind Kind, data []byte) ([]domain.Bookmark, error) {
	data = stripTemplateVariables(data)

	switch kind {
	case KindBookmarks:
		var config BookmarksConfig
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
		}
		return MapBookmarks(config)
	case KindServices:
		var config ServicesConfig
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse services yaml: %w", err)
		}
		return MapServices(config)
	default:
		return nil, fmt.Errorf("unknown homepage file kind %q", kind)
	}
}

// LoadFile reads and parses a Homepage YAML file.
func LoadFile(kind Kind, path string) ([]domain.Bookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", kind, err)
	}
	return Parse(kind, data)
}

// stripTemplateVariables removes Homepage template variables from YAML.
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
