package homepage

import (
	"errors"
	"strings"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

// ImportResult counts what Import did.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Import adds the bookmarks to the store, skipping invalid entries and
// URLs already present.
// When folderID is set every imported bookmark goes there. The first
// bookmark of the file ends up first in the store.
func Import(s *state.Store, bookmarks []domain.Bookmark, folderID string) (ImportResult, error) {
	seen := make(map[string]struct{})
	for _, b := range s.Snapshot().Bookmarks {
		seen[b.URL] = struct{}{}
	}

	var fresh []domain.Bookmark
	var res ImportResult
	for _, b := range bookmarks {
		key := strings.TrimSpace(b.URL)
		if _, ok := seen[key]; ok {
			res.Skipped++
			continue
		}
		seen[key] = struct{}{}
		if folderID != "" {
			b.FolderID = folderID
		}
		fresh = append(fresh, b)
	}

	// adds prepend, so walk backwards to keep the file order
	for i := len(fresh) - 1; i >= 0; i-- {
		if _, err := s.AddBookmark(fresh[i]); err != nil {
			if errors.Is(err, state.ErrInvalid) {
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Added++
	}
	return res, nil
}
