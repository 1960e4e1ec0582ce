package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/httpserver/handlers"
)

func init() { Register("sync", registerSync, guard) }

func registerSync(r chi.Router, d deps.Deps) {
	if d.Sync == nil {
		return
	}

	r.Route("/api/sync", func(r chi.Router) {
		r.Post("/init", handlers.SyncInit(d))
		r.Post("/signin", handlers.SyncSignIn(d))
		r.Post("/signout", handlers.SyncSignOut(d))
		r.Get("/user", handlers.SyncUser(d))
		r.Post("/perform", handlers.SyncPerform(d))
		r.Get("/should", handlers.SyncShould(d))
		r.Delete("/cloud", handlers.SyncClearCloud(d))
		r.Put("/autosync", handlers.SyncAutoSync(d))
		r.Post("/trigger", handlers.SyncTrigger(d))
		r.Get("/status", handlers.SyncStatus(d))
	})
}
