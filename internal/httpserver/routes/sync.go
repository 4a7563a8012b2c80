package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marque/internal/httpserver/mw"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	r.With(apiTimeout,
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/api/sync", handlers.Sync(d))
}
