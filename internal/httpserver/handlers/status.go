package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	FoldersLoaded *int   `json:"folders_loaded,omitempty"`
	LastRefresh   string `json:"last_refresh,omitempty"`
	Impact        string `json:"impact,omitempty"`
	Error         string `json:"error,omitempty"`
}

type statusResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Status reports per-component health: the record store, the folder
// snapshot and the extension host link.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		folderCount := d.Folders.Count()
		lastRefresh := d.Folders.LastRefresh()
		lastRefreshStr := "never"
		if !lastRefresh.IsZero() {
			lastRefreshStr = lastRefresh.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"redis": checkRedis(d),
			"folders": {
				OK:            folderCount > 0,
				FoldersLoaded: &folderCount,
				LastRefresh:   lastRefreshStr,
			},
			"host": checkHost(d),
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(statusResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

// determineMode summarizes component health. Redis down means nothing
// persists; a missing host means live events stop but the store keeps
// serving reads.
func determineMode(components map[string]componentStatus) string {
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "critical"
	}
	if host, exists := components["host"]; exists && !host.OK {
		return "degraded"
	}
	return "live"
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Impact: "persistence-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Impact: "persistence-disabled",
			Error:  "timeout",
		}
	}

	return componentStatus{OK: true}
}

func checkHost(d deps.Deps) componentStatus {
	if d.Host == nil || !d.Host.Connected() {
		return componentStatus{
			OK:     false,
			Impact: "live-events-paused",
		}
	}
	return componentStatus{OK: true}
}
