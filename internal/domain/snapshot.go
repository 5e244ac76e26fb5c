package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the day format used for dateAdded and dateCreated.
const DateLayout = time.DateOnly

// Snapshot is a detached copy of the three collections.
// The remote store and the local cache only ever see snapshots.
type Snapshot struct {
	Bookmarks []Bookmark `json:"bookmarks"`
	Notes     []Note     `json:"notes"`
	Folders   []Folder   `json:"folders"`
}

// Clone returns a deep copy. Nil collections become empty slices so a
// cloned snapshot always serializes as three JSON arrays.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Bookmarks: make([]Bookmark, 0, len(s.Bookmarks)),
		Notes:     append(make([]Note, 0, len(s.Notes)), s.Notes...),
		Folders:   append(make([]Folder, 0, len(s.Folders)), s.Folders...),
	}
	for _, b := range s.Bookmarks {
		out.Bookmarks = append(out.Bookmarks, b.Clone())
	}
	return out
}

// IsEmpty reports whether all collections are empty.
func (s Snapshot) IsEmpty() bool {
	return len(s.Bookmarks) == 0 && len(s.Notes) == 0 && len(s.Folders) == 0
}

// NormalizeTags lowercases, trims and deduplicates tags, keeping the
// order in which each tag first appeared. Blank tags are dropped.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NormalizeFavicon keeps at most the first two characters.
func NormalizeFavicon(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= 2 {
		return s
	}
	runes := []rune(s)
	return string(runes[:2])
}
