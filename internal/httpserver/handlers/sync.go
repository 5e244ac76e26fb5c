package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
	"github.com/MrSnakeDoc/toomanytabs/internal/remotesync"
)

type syncResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// Sync triggers an immediate push.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Sync.Ready() {
			writeError(d, w, http.StatusServiceUnavailable, remotesync.ErrNotInitialized.Error())
			return
		}
		if d.Sync.SyncNow() {
			d.Logger.Info("manual sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(d, w, http.StatusAccepted, syncResponse{Accepted: true, Message: "sync triggered"})
			return
		}
		d.Logger.Warn("sync already in progress",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(d, w, http.StatusTooManyRequests, syncResponse{Message: "sync already in progress, please wait"})
	}
}

type credentialsRequest struct {
	Token      string `json:"token"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
}

// Credentials replaces the remote credentials and retries the sync.
func Credentials(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(d, w, r, &req); err != nil {
			writeError(d, w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Token == "" {
			writeError(d, w, http.StatusBadRequest, "token is required")
			return
		}

		err := d.Sync.Reconfigure(remote.Credentials{
			Token:      req.Token,
			Repository: req.Repository,
			Branch:     req.Branch,
		})
		switch {
		case errors.Is(err, remotesync.ErrReconfigureUnsupported):
			writeError(d, w, http.StatusNotImplemented, err.Error())
		case errors.Is(err, remotesync.ErrClosed):
			writeError(d, w, http.StatusServiceUnavailable, err.Error())
		case err != nil:
			writeError(d, w, http.StatusBadRequest, err.Error())
		default:
			d.Logger.Info("remote credentials updated via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(d, w, http.StatusAccepted, d.Sync.Status())
		}
	}
}
