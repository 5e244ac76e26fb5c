package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Mode       string                     `json:"mode"`
	Sync       remotesync.Status          `json:"sync"`
	Components map[string]componentStatus `json:"components"`
}

// Status reports the sync state and the health of the remote store and
// local cache.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := d.Sync.Status()

		components := map[string]componentStatus{
			"remote": remoteStatus(st),
			"cache":  checkCache(r.Context(), d),
		}

		writeJSON(d, w, http.StatusOK, statusResponse{
			Mode:       determineMode(st),
			Sync:       st,
			Components: components,
		})
	}
}

func determineMode(st remotesync.Status) string {
	switch st.State {
	case remotesync.Connected, remotesync.Syncing:
		return "synced"
	case remotesync.Error:
		return "degraded" // the local cache is the source of truth
	default:
		return "starting"
	}
}

func remoteStatus(st remotesync.Status) componentStatus {
	switch {
	case st.State == remotesync.Error && st.AuthFailed:
		return componentStatus{OK: false, Impact: "sync-paused-until-credentials-change", Error: st.LastError}
	case st.State == remotesync.Error:
		return componentStatus{OK: false, Impact: "retrying-on-next-trigger", Error: st.LastError}
	case st.State == remotesync.Connected || st.State == remotesync.Syncing:
		return componentStatus{OK: true}
	default:
		return componentStatus{OK: false, Impact: "not-connected"}
	}
}

func checkCache(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Backend: d.CacheBackend}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:      false,
			Backend: d.CacheBackend,
			Impact:  "local-durability-lost",
			Error:   err.Error(),
		}
	}
	return componentStatus{OK: true, Backend: d.CacheBackend}
}
