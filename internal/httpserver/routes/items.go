package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toomanytabs/internal/httpserver/handlers"
)

func init() { Register(registerItems) }

func registerItems(r chi.Router, d deps.Deps) {
	read := guarded(r, d)
	read.Get("/api/items", handlers.Items(d))
	read.Get("/api/tags", handlers.Tags(d))
	read.Get("/api/snapshot", handlers.Snapshot(d))
	read.Get("/api/search", handlers.Search(d))

	read.Get("/api/bookmarks/{id}", handlers.GetBookmark(d))
	read.Get("/api/notes/{id}", handlers.GetNote(d))
	read.Get("/api/folders/{id}", handlers.GetFolder(d))

	write := writes(r, d)
	write.Post("/api/bookmarks", handlers.CreateBookmark(d))
	write.Put("/api/bookmarks/{id}", handlers.UpdateBookmark(d))
	write.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))

	write.Post("/api/notes", handlers.CreateNote(d))
	write.Put("/api/notes/{id}", handlers.UpdateNote(d))
	write.Delete("/api/notes/{id}", handlers.DeleteNote(d))

	write.Post("/api/folders", handlers.CreateFolder(d))
	write.Put("/api/folders/{id}", handlers.UpdateFolder(d))
	write.Delete("/api/folders/{id}", handlers.DeleteFolder(d))

	write.Post("/api/import/homepage", handlers.ImportHomepage(d))
}
