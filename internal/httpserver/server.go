// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/mw"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/routes"
	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// NewRouter builds the router with global middlewares and every
// registered route.
func NewRouter(d deps.Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)                // X-Request-ID on each request
	r.Use(middleware.Recoverer)                // never crash the process on panic
	r.Use(middleware.Timeout(5 * time.Second)) // mutations never wait on the remote store
	r.Use(mw.Log(d.Logger.Named("http"), d.TrustProxy))

	routes.RegisterAll(r, d)
	return r
}

// New builds the HTTP server listening on addr.
func New(addr string, d deps.Deps) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:   s,
		logger: d.Logger,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
