package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout bounds all probes together. A probe still running at
// the deadline is reported as timed out.
const healthCheckTimeout = 2 * time.Second

// HealthProbe is one dependency the service cannot predict without: the
// loaded model, and the inference backend when it is remote.
type HealthProbe interface {
	// Name identifies the probe in the response ("model", "inference").
	Name() string

	// Check returns nil when the dependency is usable. It should respect the
	// context deadline.
	Check(ctx context.Context) error
}

// sourceReporter is implemented by probes that can say where their
// dependency lives (an artifact path, a backend URL).
type sourceReporter interface {
	Source() string
}

type componentStatus struct {
	Status  string `json:"status"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every registered probe concurrently and answers 200 when
// all are healthy, 503 otherwise. It is mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy", Version: s.version()}
	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	results := s.runProbes(ctx)

	resp.Components = make(map[string]componentStatus, len(s.HealthProbes))
	for i, probe := range s.HealthProbes {
		status := componentStatus{Status: "healthy"}
		if src, ok := probe.(sourceReporter); ok {
			status.Source = src.Source()
		}
		if err := results[i]; err != nil {
			status.Status = "unhealthy"
			status.Message = err.Error()
			resp.Status = "unhealthy"
		}
		resp.Components[probe.Name()] = status
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	JSON(w, r, code, resp)
}

var errProbeTimeout = fmt.Errorf("health check timed out")

// runProbes returns one result per probe, in probe order. Probes that have
// not finished when ctx expires get errProbeTimeout; their goroutines are
// left to drain on their own.
func (s *Server) runProbes(ctx context.Context) []error {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]error, len(s.HealthProbes))
		done    = make([]bool, len(s.HealthProbes))
	)

	for i, probe := range s.HealthProbes {
		wg.Go(func() {
			err := checkProbe(ctx, probe)
			mu.Lock()
			results[i], done[i] = err, true
			mu.Unlock()
		})
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]error, len(results))
	for i := range results {
		if !done[i] {
			out[i] = errProbeTimeout
			continue
		}
		out[i] = results[i]
	}
	return out
}

func checkProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("probe panicked: %v", rvr)
		}
	}()
	return p.Check(ctx)
}

func (s *Server) version() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.Build.Version
}
