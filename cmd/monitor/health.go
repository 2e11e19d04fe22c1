package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yamcs-studio/yamcs-ws/internal/archive"
	"github.com/yamcs-studio/yamcs-ws/internal/connection"
	"github.com/yamcs-studio/yamcs-ws/internal/registry"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// healthSources are the components reported by /health. writer and db are
// nil when the archive is disabled.
type healthSources struct {
	client   *connection.Client
	router   router.Router
	registry *registry.Registry
	writer   *archive.ParameterWriter
	db       pinger
}

type healthResponse struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// newHealthHandler creates the HTTP handler for health checks.
func newHealthHandler(path string, src healthSources) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := healthResponse{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check connection
		stats := src.client.Stats()
		health.Components["websocket"] = map[string]any{
			"client_id":    src.client.ID().String(),
			"state":        stats.State.String(),
			"dials":        stats.Dials,
			"sent":         stats.Sent,
			"merged":       stats.Merged,
			"dropped":      stats.Dropped,
			"submitted":    stats.Submitted,
			"queued":       stats.Queued,
			"queue_growth": stats.QueueGrowth,
			"pending_acks": stats.PendingAcks,
		}
		if stats.State != connection.StateConnected {
			health.Status = "degraded"
		}

		health.Components["router"] = src.router.Stats()
		health.Components["subscriptions"] = map[string]any{
			"parameters": src.registry.Len(),
		}

		// Check archive
		if src.db != nil {
			if err := src.db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}
		if src.writer != nil {
			health.Components["archive"] = src.writer.Stats()
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
