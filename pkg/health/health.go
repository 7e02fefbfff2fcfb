// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker probes one dependency. It must return once ctx is done.
type Checker func(ctx context.Context) error

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// DefaultTimeout bounds a whole readiness run.
const DefaultTimeout = 5 * time.Second

type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status     Status `json:"status"`
	Critical   bool   `json:"critical"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type check struct {
	fn       Checker
	critical bool
}

// Handler aggregates dependency checks. A failing critical check makes the
// service unready (503); a failing non-critical one reports "degraded"
// with 200.
type Handler struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]check
}

func NewHandler() *Handler {
	return &Handler{timeout: DefaultTimeout, checks: make(map[string]check)}
}

// RegisterCritical adds or replaces a check that gates readiness.
func (h *Handler) RegisterCritical(name string, fn Checker) {
	h.add(name, check{fn: fn, critical: true})
}

// RegisterNonCritical adds or replaces a check that can only degrade.
func (h *Handler) RegisterNonCritical(name string, fn Checker) {
	h.add(name, check{fn: fn})
}

func (h *Handler) add(name string, c check) {
	h.mu.Lock()
	h.checks[name] = c
	h.mu.Unlock()
}

// Check runs every registered check concurrently under one shared deadline
// and folds the results into an overall status.
func (h *Handler) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	pending := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		pending[name] = c
	}
	h.mu.RUnlock()

	type outcome struct {
		name   string
		result CheckResult
	}
	out := make(chan outcome, len(pending))
	for name, c := range pending {
		go func() {
			start := time.Now()
			err := c.fn(ctx)
			r := CheckResult{
				Status:     StatusUp,
				Critical:   c.critical,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				r.Status = StatusDown
				r.Error = err.Error()
			}
			out <- outcome{name, r}
		}()
	}

	resp := Response{Status: StatusUp, Checks: make(map[string]CheckResult, len(pending))}
	for range pending {
		o := <-out
		resp.Checks[o.name] = o.result
		if o.result.Status == StatusDown {
			resp.Status = worse(resp.Status, o.result.Critical)
		}
	}
	resp.Timestamp = time.Now().UTC()
	return resp
}

func worse(current Status, critical bool) Status {
	if critical || current == StatusDown {
		return StatusDown
	}
	return StatusDegraded
}

// LivenessHandler answers 200 while the process can serve HTTP.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler answers 503 when any critical check fails.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		code := http.StatusOK
		if resp.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		write(w, code, resp)
	}
}

func write(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
