package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marque/internal/httpserver/mw"
)

func init() { Register(registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.With(apiTimeout, mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Get("/api/status", handlers.Status(d))
}
