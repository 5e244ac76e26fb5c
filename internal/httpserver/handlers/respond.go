package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

const defaultMaxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(d deps.Deps, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func writeError(d deps.Deps, w http.ResponseWriter, status int, msg string) {
	writeJSON(d, w, status, errorResponse{Error: msg})
}

// writeMutationError maps store and orchestrator errors to status codes.
func writeMutationError(d deps.Deps, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrInvalid):
		writeError(d, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, state.ErrNotFound):
		writeError(d, w, http.StatusNotFound, err.Error())
	case errors.Is(err, state.ErrReservedFolder):
		writeError(d, w, http.StatusConflict, err.Error())
	case errors.Is(err, remotesync.ErrNotInitialized), errors.Is(err, remotesync.ErrClosed):
		writeError(d, w, http.StatusServiceUnavailable, err.Error())
	default:
		d.Logger.Error("mutation failed", logger.Error(err))
		writeError(d, w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(d deps.Deps, w http.ResponseWriter, r *http.Request, v any) error {
	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
