package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/sources/homepage"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

type importResponse struct {
	Result      homepage.ImportResult `json:"result"`
	Collections domain.Snapshot       `json:"collections"`
}

// ImportHomepage adds the bookmarks of a Homepage bookmarks.yaml (or
// services.yaml with ?kind=services) posted as the request body.
// ?folder= places them in an existing folder.
func ImportHomepage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := homepage.ParseKind(r.URL.Query().Get("kind"))
		if err != nil {
			writeError(d, w, http.StatusBadRequest, err.Error())
			return
		}
		folder := r.URL.Query().Get("folder")
		if folder != "" {
			if _, ok := d.Sync.Store().Folder(folder); !ok {
				writeError(d, w, http.StatusNotFound, "folder not found: "+folder)
				return
			}
		}

		limit := d.MaxBodyBytes
		if limit <= 0 {
			limit = defaultMaxBodyBytes
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			writeError(d, w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}

		items, err := homepage.Parse(kind, body)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, homepage.ErrNoEntries) {
				status = http.StatusUnprocessableEntity
			}
			writeError(d, w, status, err.Error())
			return
		}

		var res homepage.ImportResult
		snap, err := d.Sync.Mutate(func(s *state.Store) error {
			var err error
			res, err = homepage.Import(s, items, folder)
			return err
		})
		if err != nil {
			writeMutationError(d, w, err)
			return
		}

		d.Logger.Info("homepage import completed",
			logger.String("kind", string(kind)),
			logger.Int("added", res.Added),
			logger.Int("skipped", res.Skipped))
		writeJSON(d, w, http.StatusOK, importResponse{Result: res, Collections: snap})
	}
}
