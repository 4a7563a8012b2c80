package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marque/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	guarded := r.With(apiTimeout,
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger))
	guarded.Get("/api/bookmarks", handlers.ListBookmarks(d))
	guarded.Get("/api/bookmarks/{id}", handlers.GetBookmark(d))
}
