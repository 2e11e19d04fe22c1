package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yamcs-studio/yamcs-ws/internal/connection"
	"github.com/yamcs-studio/yamcs-ws/internal/registry"
	"github.com/yamcs-studio/yamcs-ws/internal/router"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestSources(db pinger) healthSources {
	client := connection.NewClient(connection.DefaultClientConfig(), nil)
	return healthSources{
		client:   client,
		router:   router.NewRouter(client.Messages(), client, nil),
		registry: registry.New(client, nil),
		db:       db,
	}
}

func TestHealthHandler_Disconnected(t *testing.T) {
	h := newHealthHandler("/health", newTestSources(nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want %q", resp.Status, "degraded")
	}
	ws, ok := resp.Components["websocket"].(map[string]any)
	if !ok {
		t.Fatalf("websocket component missing: %v", resp.Components)
	}
	if ws["state"] != "disconnected" {
		t.Errorf("state = %v, want disconnected", ws["state"])
	}
	if _, ok := resp.Components["database"]; ok {
		t.Error("database component reported with archive disabled")
	}
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	h := newHealthHandler("/health", newTestSources(fakePinger{err: errors.New("connection refused")}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("Status = %q, want %q", resp.Status, "unhealthy")
	}
}
