package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver/handlers"
)

func init() { Register("bookmarks", registerBookmarks, guard) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Get("/api/bookmarks", handlers.ListBookmarks(d))
		r.Post("/api/bookmarks", handlers.AddBookmark(d))
		r.Post("/api/bookmarks/toggle", handlers.ToggleBookmark(d))
		r.Patch("/api/bookmarks/{id}", handlers.EditBookmark(d))
		r.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
		r.Post("/api/bookmarks/{id}/click", handlers.ClickBookmark(d))
		r.Get("/api/tags", handlers.ListTags(d))
		r.Get("/api/groups", handlers.GetGroupOrder(d))
		r.Put("/api/groups", handlers.PutGroupOrder(d))
		r.Get("/api/export", handlers.Export(d))
		r.Post("/api/import", handlers.Import(d))
		r.Get("/go", handlers.Open(d))
	})
}
