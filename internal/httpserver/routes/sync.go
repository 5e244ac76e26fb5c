package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	guarded(r, d).Get("/api/status", handlers.Status(d))
	write := writes(r, d)
	write.Post("/api/sync", handlers.Sync(d))
	write.Put("/api/credentials", handlers.Credentials(d))
}
