package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/httpserver/handlers"
)

func init() { Register(registerHealthz) }

func registerHealthz(r chi.Router, d deps.Deps) {
	r.With(apiTimeout).Get("/healthz", handlers.Healthz(d))
}
