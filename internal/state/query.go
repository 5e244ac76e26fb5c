package state

import (
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
)

// Filter narrows a query. Zero values match everything.
type Filter struct {
	// Search is matched case-insensitively as a substring of
	// title/url/description/notes for bookmarks and title/content for notes.
	Search string
	// Tag must equal one of the bookmark tags. Notes carry no tags, so a
	// non-empty Tag excludes every note.
	Tag string
	// Folder must equal the item folder id.
	Folder string
}

// Results is a lazily filtered view over the collections as they were
// when Query was called. Later mutations do not affect it.
type Results struct {
	filter    Filter
	needle    string
	bookmarks []domain.Bookmark
	notes     []domain.Note
}

// Query returns a view filtered by f.
func (s *Store) Query(f Filter) Results {
	snap := s.Snapshot()
	return Results{
		filter:    f,
		needle:    strings.ToLower(strings.TrimSpace(f.Search)),
		bookmarks: snap.Bookmarks,
		notes:     snap.Notes,
	}
}

// Bookmarks yields matching bookmarks in stored order.
func (r Results) Bookmarks() iter.Seq[domain.Bookmark] {
	return func(yield func(domain.Bookmark) bool) {
		for _, b := range r.bookmarks {
			if !r.matchBookmark(b) {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Notes yields matching notes in stored order.
func (r Results) Notes() iter.Seq[domain.Note] {
	return func(yield func(domain.Note) bool) {
		if r.filter.Tag != "" {
			return
		}
		for _, n := range r.notes {
			if !r.matchNote(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

func (r Results) matchBookmark(b domain.Bookmark) bool {
	if r.filter.Folder != "" && b.FolderID != r.filter.Folder {
		return false
	}
	if r.filter.Tag != "" && !slices.Contains(b.Tags, r.filter.Tag) {
		return false
	}
	return containsFold(r.needle, b.Title, b.URL, b.Description, b.Notes)
}

func (r Results) matchNote(n domain.Note) bool {
	if r.filter.Folder != "" && n.FolderID != r.filter.Folder {
		return false
	}
	return containsFold(r.needle, n.Title, n.Content)
}

// containsFold expects needle already lowercased.
func containsFold(needle string, fields ...string) bool {
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Tags returns every tag in use, sorted.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, b := range s.bookmarks {
		for _, t := range b.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
