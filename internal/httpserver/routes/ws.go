package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/httpserver/mw"
)

func init() { Register(registerWS) }

// The extension socket stays open for the daemon's lifetime, so no
// request timeout here.
func registerWS(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Get("/ws", d.WSHandler)
}
