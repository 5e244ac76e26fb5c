package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
)

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

type syncHealth struct {
	State      remotesync.State `json:"state"`
	Ready      bool             `json:"ready"`
	AuthFailed bool             `json:"auth_failed,omitempty"`
	LastSyncAt time.Time        `json:"last_sync_at,omitzero"`
	Cache      string           `json:"cache,omitempty"`
}

type healthzResponse struct {
	// Status is "degraded" while the collections are served from the
	// local cache only.
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Build         buildInfo  `json:"build"`
	Sync          syncHealth `json:"sync"`
}

// Healthz answers 200 as long as the process serves HTTP, with the
// remote mirror state alongside.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{
		Version:   d.Version,
		Commit:    d.Commit,
		Date:      d.BuildDate,
		GoVersion: d.GoVersion,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		st := d.Sync.Status()
		status := "ok"
		if st.State == remotesync.Error {
			status = "degraded"
		}
		writeJSON(d, w, http.StatusOK, healthzResponse{
			Status:        status,
			StartedAt:     d.StartTime.UTC(),
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Build:         build,
			Sync: syncHealth{
				State:      st.State,
				Ready:      d.Sync.Ready(),
				AuthFailed: st.AuthFailed,
				LastSyncAt: st.LastSyncAt,
				Cache:      d.CacheBackend,
			},
		})
	}
}
