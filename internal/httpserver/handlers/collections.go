package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

// mutationResponse carries the touched item and the collections after
// the change.
type mutationResponse struct {
	Item        any             `json:"item,omitempty"`
	Collections domain.Snapshot `json:"collections"`
}

func CreateBookmark(d deps.Deps) http.HandlerFunc { return create(d, (*state.Store).AddBookmark) }
func UpdateBookmark(d deps.Deps) http.HandlerFunc { return update(d, (*state.Store).EditBookmark) }
func DeleteBookmark(d deps.Deps) http.HandlerFunc { return remove(d, (*state.Store).DeleteBookmark) }
func GetBookmark(d deps.Deps) http.HandlerFunc    { return get(d, (*state.Store).Bookmark) }

func CreateNote(d deps.Deps) http.HandlerFunc { return create(d, (*state.Store).AddNote) }
func UpdateNote(d deps.Deps) http.HandlerFunc { return update(d, (*state.Store).EditNote) }
func DeleteNote(d deps.Deps) http.HandlerFunc { return remove(d, (*state.Store).DeleteNote) }
func GetNote(d deps.Deps) http.HandlerFunc    { return get(d, (*state.Store).Note) }

func CreateFolder(d deps.Deps) http.HandlerFunc { return create(d, (*state.Store).AddFolder) }
func UpdateFolder(d deps.Deps) http.HandlerFunc { return update(d, (*state.Store).EditFolder) }
func GetFolder(d deps.Deps) http.HandlerFunc    { return get(d, (*state.Store).Folder) }

// DeleteFolder reassigns the folder's items to the default folder before
// removing it.
func DeleteFolder(d deps.Deps) http.HandlerFunc { return remove(d, (*state.Store).DeleteFolder) }

func create[T any](d deps.Deps, add func(*state.Store, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(d, w, r, &in); err != nil {
			writeError(d, w, http.StatusBadRequest, err.Error())
			return
		}

		var created T
		snap, err := d.Sync.Mutate(func(s *state.Store) error {
			var err error
			created, err = add(s, in)
			return err
		})
		if err != nil {
			writeMutationError(d, w, err)
			return
		}
		writeJSON(d, w, http.StatusCreated, mutationResponse{Item: created, Collections: snap})
	}
}

func update[T any](d deps.Deps, edit func(*state.Store, string, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var in T
		if err := decodeJSON(d, w, r, &in); err != nil {
			writeError(d, w, http.StatusBadRequest, err.Error())
			return
		}

		var updated T
		snap, err := d.Sync.Mutate(func(s *state.Store) error {
			var err error
			updated, err = edit(s, id, in)
			return err
		})
		if err != nil {
			writeMutationError(d, w, err)
			return
		}
		writeJSON(d, w, http.StatusOK, mutationResponse{Item: updated, Collections: snap})
	}
}

func remove(d deps.Deps, del func(*state.Store, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		snap, err := d.Sync.Mutate(func(s *state.Store) error {
			return del(s, id)
		})
		if err != nil {
			writeMutationError(d, w, err)
			return
		}
		writeJSON(d, w, http.StatusOK, mutationResponse{Collections: snap})
	}
}

func get[T any](d deps.Deps, lookup func(*state.Store, string) (T, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := lookup(d.Sync.Store(), chi.URLParam(r, "id"))
		if !ok {
			writeError(d, w, http.StatusNotFound, state.ErrNotFound.Error())
			return
		}
		writeJSON(d, w, http.StatusOK, item)
	}
}
