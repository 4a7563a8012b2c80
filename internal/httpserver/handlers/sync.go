package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/logger"
)

// Sync triggers an immediate reconciliation pass.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.SyncTrigger <- struct{}{}:
			d.Logger.Info("manual reconciliation triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("sync triggered\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("reconciliation already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("sync already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
