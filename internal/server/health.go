// Package server exposes the worker's liveness and readiness probes.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// HealthServer answers /healthz while the process runs and /readyz once MarkReady
// was called.
type HealthServer struct {
	ready  atomic.Bool
	server *http.Server
}

// NewHealthServer creates a health server listening on addr.
func NewHealthServer(addr string) *HealthServer {
	h := &HealthServer{}
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Router returns the probe routes.
func (h *HealthServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	return r
}

// MarkReady flips /readyz to 200.
func (h *HealthServer) MarkReady() {
	h.ready.Store(true)
}

// Start serves until Shutdown is called.
func (h *HealthServer) Start() error {
	log.Infof("Health endpoint listening on %s", h.server.Addr)
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	h.ready.Store(false)
	return h.server.Shutdown(ctx)
}
