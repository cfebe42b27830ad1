// Package health schedules liveness and readiness probes and serves their
// state over HTTP.
//
// Probes use failure hysteresis in the style of Kubernetes probe thresholds:
// a probe flips to unhealthy only after failAfter consecutive failures, and
// back to healthy after passAfter consecutive passes, so a single transient
// error does not flap the endpoint.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ProbeFunc checks one component. A nil return means healthy.
type ProbeFunc func(ctx context.Context) error

const (
	failAfter = 3
	passAfter = 1
)

// probe tracks the hysteresis state of one registered check. All state is
// guarded by mu; both the scheduler and the HTTP handlers go through it.
type probe struct {
	name    string
	timeout time.Duration
	fn      ProbeFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	passes  int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	p.observe(p.fn(ctx))
}

func (p *probe) observe(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = err
	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= failAfter {
			p.healthy = false
		}
		return
	}

	p.fails = 0
	p.passes++
	if p.passes >= passAfter {
		p.healthy = true
	}
}

func (p *probe) state() (healthy bool, lastErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

// Service owns the registered probes and a single scheduler goroutine that
// re-runs all of them on an interval.
type Service struct {
	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	ready     bool
	stop      context.CancelFunc
}

// New returns a Service with no probes. The service reports not-ready until
// SetReady(true) is called after initialization.
func New() *Service {
	return &Service{}
}

// Liveness registers a probe answering "is this process still functional":
// goroutine leaks, GC stalls, deadlocks.
func (s *Service) Liveness(name string, timeout time.Duration, fn ProbeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newProbe(name, timeout, fn))
}

// Readiness registers a probe answering "can this process take traffic":
// database connectivity, dependent services.
func (s *Service) Readiness(name string, timeout time.Duration, fn ProbeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newProbe(name, timeout, fn))
}

func newProbe(name string, timeout time.Duration, fn ProbeFunc) *probe {
	// Healthy until observed otherwise, so registration order does not
	// race the first scheduler pass.
	return &probe{name: name, timeout: timeout, fn: fn, healthy: true}
}

// Start runs every registered probe once, then re-runs the whole set on each
// interval tick until Stop or context cancellation. Register all probes
// before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	all := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	all = append(all, s.liveness...)
	all = append(all, s.readiness...)
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runAll(ctx, all)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAll(ctx, all)
			}
		}
	}()
}

func runAll(ctx context.Context, probes []*probe) {
	for _, p := range probes {
		p.run(ctx)
	}
}

// Stop cancels the scheduler goroutine. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// SetReady flips the manual readiness gate. Call with true once startup
// completes and with false at the start of graceful shutdown so load
// balancers drain before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// IsReady reports whether the manual gate is open and every readiness probe
// is currently healthy.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	ready := s.ready
	probes := s.readiness
	s.mu.RUnlock()

	if !ready {
		return false
	}
	for _, p := range probes {
		if ok, _ := p.state(); !ok {
			return false
		}
	}
	return true
}

// probeReport is the JSON body served by both probe endpoints.
type probeReport struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveHandler serves the liveness endpoint: 200 while all liveness probes
// pass, 503 with per-probe failure messages otherwise.
func (s *Service) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := s.liveness
	s.mu.RUnlock()

	writeReport(w, failures(probes))
}

// ReadyHandler serves the readiness endpoint: 200 only when the manual gate
// is open and all readiness probes pass.
func (s *Service) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	probes := s.readiness
	s.mu.RUnlock()

	fails := failures(probes)
	if !ready {
		fails["service"] = "not accepting traffic"
	}
	writeReport(w, fails)
}

// failures reports the last stored error per unhealthy probe. It never
// re-runs probe functions; the handlers must stay cheap.
func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		healthy, lastErr := p.state()
		if healthy {
			continue
		}
		if lastErr != nil {
			out[p.name] = lastErr.Error()
		} else {
			out[p.name] = "unhealthy"
		}
	}
	return out
}

func writeReport(w http.ResponseWriter, fails map[string]string) {
	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(fails) > 0 {
		report = probeReport{Status: "unhealthy", Failures: fails}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
