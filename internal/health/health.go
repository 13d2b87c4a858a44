// Package health aggregates liveness of the remote prediction and engagement
// services. Predictions are gated on the risk service reporting its model
// loaded, so probes distinguish "service down" from "service up, model not
// loaded".
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the outcome of one subsystem probe. LatencyMS is the probe
// round-trip, recorded for failures too.
type Status struct {
	Name        string    `json:"name"`
	Healthy     bool      `json:"healthy"`
	ModelLoaded bool      `json:"model_loaded,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	LatencyMS   int64     `json:"latency_ms"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Up reports a healthy subsystem.
func Up(name string) Status {
	return Status{Name: name, Healthy: true}
}

// Down reports an unreachable or failing subsystem.
func Down(name, detail string) Status {
	return Status{Name: name, Detail: detail}
}

// Checker probes one subsystem.
type Checker func(ctx context.Context) Status

// Registry holds named subsystem checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named checker. The registry stamps the name onto statuses
// that omit it.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll probes every subsystem and returns the aggregate plus individual
// results, each stamped with probe latency and time.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		start := time.Now()
		st := nc.check(ctx)
		if st.Name == "" {
			st.Name = nc.name
		}
		st.LatencyMS = time.Since(start).Milliseconds()
		st.CheckedAt = time.Now().UTC()
		statuses[i] = st
		if !st.Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}
