// Package health provides liveness and readiness probe endpoints. Each
// registered check runs periodically in its own goroutine; a check must fail
// consecutively a configurable number of times before the probe reports
// unhealthy, which avoids flapping on transient errors.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

// DefaultFailureThreshold is the number of consecutive failures after which
// a check is reported unhealthy.
const DefaultFailureThreshold = 3

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// consecutiveFails is only touched by the single run goroutine.
	consecutiveFails int
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveFails++
		if c.consecutiveFails >= DefaultFailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.consecutiveFails = 0
	c.healthy.Store(true)
}

func (c *check) lastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Service runs health checks and serves their aggregate state.
type Service struct {
	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	ready     atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an empty health Service. The service reports not-ready until
// SetReady(true) is called.
func New() *Service {
	return &Service{}
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

// AddLivenessCheck registers a check that gates the liveness probe.
// Must be called before Start.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check that gates the readiness probe.
// Must be called before Start.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newCheck(name, timeout, fn))
}

// Start launches one goroutine per registered check, re-running it every
// interval until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done

	var wg sync.WaitGroup
	for _, c := range append(append([]*check{}, s.liveness...), s.readiness...) {
		wg.Add(1)
		go func(c *check) {
			defer wg.Done()

			c.run(ctx)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}

	go func() {
		wg.Wait()
		close(done)
	}()
}

// Stop cancels all check goroutines and waits for them to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady flips the top-level readiness gate. Readiness checks only matter
// while the gate is open.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Service) respond(w http.ResponseWriter, checks []*check, gate bool) {
	resp := probeResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
	healthy := gate

	for _, c := range checks {
		if c.healthy.Load() {
			resp.Checks[c.name] = "ok"
			continue
		}
		healthy = false
		msg := "failing"
		if err := c.lastError(); err != nil {
			msg = err.Error()
		}
		resp.Checks[c.name] = msg
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		resp.Status = "unavailable"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := s.liveness
	s.mu.Unlock()
	s.respond(w, checks, true)
}

// ReadyEndpoint serves the readiness probe.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := s.readiness
	s.mu.Unlock()
	s.respond(w, checks, s.ready.Load())
}
