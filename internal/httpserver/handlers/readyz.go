package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
)

type readyzResponse struct {
	Ready bool             `json:"ready"`
	State remotesync.State `json:"state"`
}

// Readyz is ready once the initial load has run, whether it reached the
// remote store or fell back to the local cache.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := d.Sync.Ready()
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(d, w, code, readyzResponse{Ready: ready, State: d.Sync.Status().State})
	}
}
