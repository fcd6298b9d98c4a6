package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/pkg/logger"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

// Readiness runs every check concurrently and fails if any does.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		healthy = true
	)
	var g errgroup.Group
	for name, check := range h.checks {
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				results[name] = "unavailable"
				logger.Ctx(r.Context()).Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				return nil
			}
			results[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "unavailable", Checks: results})
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ready", Checks: results})
}
