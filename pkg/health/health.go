// Package health provides Kubernetes-style liveness and readiness
// endpoints. Readiness checks run synchronously at probe time with a
// per-check timeout, so the reported state is never stale.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health serves the /livez and /readyz probes.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []check
}

// New creates a Health in the not-ready state. Call SetReady(true) once
// startup is complete.
func New() *Health {
	return &Health{}
}

// SetReady flips the readiness gate. Readiness checks only run while
// the gate is open.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// AddReadinessCheck registers a named dependency probe.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, timeout: timeout, fn: fn})
}

// statusResponse is the JSON response body for both probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler reports whether the process is alive. It always
// succeeds while the server can serve requests at all.
func (h *Health) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, statusResponse{Status: "ok"})
	})
}

// ReadinessHandler runs every readiness check and reports 503 when the
// gate is closed or any dependency fails.
func (h *Health) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, statusResponse{Status: "starting"})
			return
		}

		h.mu.RLock()
		checks := make([]check, len(h.checks))
		copy(checks, h.checks)
		h.mu.RUnlock()

		results := make(map[string]string, len(checks))
		healthy := true
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
			err := c.fn(ctx)
			cancel()
			if err != nil {
				healthy = false
				results[c.name] = err.Error()
			} else {
				results[c.name] = "ok"
			}
		}

		resp := statusResponse{Status: "ok", Checks: results}
		status := http.StatusOK
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		writeStatus(w, status, resp)
	})
}

func writeStatus(w http.ResponseWriter, status int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
