package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready         bool `json:"ready"`
	Redis         bool `json:"redis"`
	HostConnected bool `json:"host_connected"`
}

// Readyz reports readiness. Redis is the only hard dependency; the
// extension host connects and disconnects freely, so its state is
// informational.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		redisOK := false
		if d.RedisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			redisOK = d.RedisClient.Ping(ctx).Err() == nil
			cancel()
		}

		if !redisOK {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready:         redisOK,
			Redis:         redisOK,
			HostConnected: d.Host != nil && d.Host.Connected(),
		})
	}
}
