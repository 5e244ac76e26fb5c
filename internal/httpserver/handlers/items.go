package handlers

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

type itemsResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Notes     []domain.Note     `json:"notes"`
}

// Items lists bookmarks and notes matching ?q= (substring), ?tag= and
// ?folder=. A tag filter excludes notes.
func Items(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := d.Sync.Store().Query(state.Filter{
			Search: q.Get("q"),
			Tag:    q.Get("tag"),
			Folder: q.Get("folder"),
		})

		writeJSON(d, w, http.StatusOK, itemsResponse{
			Bookmarks: orEmpty(slices.Collect(res.Bookmarks())),
			Notes:     orEmpty(slices.Collect(res.Notes())),
		})
	}
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Tags lists every tag in use, sorted.
func Tags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(d, w, http.StatusOK, tagsResponse{Tags: orEmpty(d.Sync.Store().Tags())})
	}
}

// Snapshot returns the three collections.
func Snapshot(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(d, w, http.StatusOK, d.Sync.Store().Snapshot())
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type searchResponse struct {
	Query   string          `json:"query"`
	Results []domain.Ranked `json:"results"`
}

// Search ranks bookmarks by relevance to ?q=, best first. ?limit= caps the
// number of results.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			writeError(d, w, http.StatusBadRequest, "missing query parameter q")
			return
		}

		limit := defaultSearchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(d, w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxSearchLimit)
		}

		ranked := domain.RankBookmarks(q, d.Sync.Store().Snapshot().Bookmarks)
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}

		d.Logger.Debug("search completed",
			logger.String("query", q),
			logger.Int("results", len(ranked)))
		writeJSON(d, w, http.StatusOK, searchResponse{Query: q, Results: orEmpty(ranked)})
	}
}
