package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/quickmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/quickmark/internal/logger"
)

type (
	// Registrar mounts one group of routes.
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
	// Chain builds per-group middlewares once the dependencies are known.
	Chain func(d deps.Deps) []Middleware
)

type entry struct {
	name   string
	reg    Registrar
	chains []Chain
}

var registry []entry

// Register adds a named route group. Groups register from init, so the
// order follows file order within the package.
func Register(name string, reg Registrar, chains ...Chain) {
	registry = append(registry, entry{name: name, reg: reg, chains: chains})
}

// RegisterAll mounts every group on r. Called once by the router builder.
func RegisterAll(r chi.Router, d deps.Deps) {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	for _, e := range registry {
		var mws []Middleware
		for _, c := range e.chains {
			mws = append(mws, c(d)...)
		}
		if len(mws) == 0 {
			e.reg(r, d)
		} else {
			e.reg(r.With(mws...), d)
		}
		log.Debug("routes registered",
			logger.String("group", e.name),
			logger.Int("middlewares", len(mws)))
	}
}
