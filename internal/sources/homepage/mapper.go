package homepage

import (
	"errors"
	"unicode/utf8"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
)

// ErrNoEntries is returned when a config holds no entry with an href.
var ErrNoEntries = errors.New("no valid entries found in homepage config")

// MapBookmarks converts bookmarks.yaml entries. The category becomes a tag
// and a short abbr (or icon) becomes the favicon.
func MapBookmarks(config BookmarksConfig) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	for _, category := range config {
		for categoryName, list := range category {
			for _, named := range list {
				for name, entries := range named {
					if len(entries) == 0 || entries[0].Href == "" {
						continue
					}
					e := entries[0]
					out = append(out, domain.Bookmark{
						Title:       name,
						URL:         e.Href,
						Description: e.Description,
						Tags:        []string{categoryName},
						Favicon:     favicon(e.Abbr, e.Icon),
					})
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

// MapServices converts services.yaml entries. The group becomes a tag.
func MapServices(config ServicesConfig) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	for _, group := range config {
		for groupName, list := range group {
			for _, named := range list {
				for name, props := range named {
					if props.Href == "" {
						continue
					}
					out = append(out, domain.Bookmark{
						Title:       name,
						URL:         props.Href,
						Description: props.Description,
						Tags:        []string{groupName},
						Favicon:     favicon(props.Icon),
					})
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoEntries
	}
	return out, nil
}

// favicon returns the first candidate short enough to be an emoji or an
// abbreviation. Icon file names like "github.svg" are dropped.
func favicon(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && utf8.RuneCountInString(c) <= 2 {
			return c
		}
	}
	return ""
}
