// Package health exposes a readiness probe backed by a store ping.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/users-api/internal/utils/response"
)

// Pinger is the part of storage.Storage the probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the body of a health response.
type Status struct {
	Status string `json:"status"`
}

// New answers 200 {"status":"ok"} when the store answers a ping within
// timeout, 503 {"status":"unavailable"} otherwise.
func New(store Pinger, timeout time.Duration, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Warn("health check failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, Status{Status: "unavailable"})
			return
		}
		response.WriteJSON(w, http.StatusOK, Status{Status: "ok"})
	}
}
