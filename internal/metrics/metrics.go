// Package metrics exposes Prometheus collectors for simulation runs and MCP
// tool calls, plus an optional /metrics HTTP endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the metakg Prometheus metrics. A nil *Collector is a
// valid no-op recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	ODESteps    prometheus.Histogram
	LPSolves    *prometheus.CounterVec
	ToolCalls   *prometheus.CounterVec
}

// NewCollector registers metakg metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil. Registering twice
// against the same registry returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metakg_simulation_runs_total",
		Help: "Total simulation runs, labeled by mode (fba, ode) and result status.",
	}, []string{"mode", "status"}), "metakg_simulation_runs_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metakg_simulation_duration_seconds",
		Help:    "Wall-clock duration of simulation runs in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"mode"}), "metakg_simulation_duration_seconds")
	if err != nil {
		return nil, err
	}

	steps, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "metakg_ode_steps",
		Help:    "Accepted integrator steps per ODE run.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}), "metakg_ode_steps")
	if err != nil {
		return nil, err
	}

	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metakg_lp_solves_total",
		Help: "Linear program solves, labeled by solver status.",
	}, []string{"status"}), "metakg_lp_solves_total")
	if err != nil {
		return nil, err
	}

	tools, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metakg_mcp_tool_calls_total",
		Help: "MCP tool invocations, labeled by tool and outcome (success, error, rate_limited).",
	}, []string{"tool", "outcome"}), "metakg_mcp_tool_calls_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:    gatherer,
		RunsTotal:   runs,
		RunDuration: durations,
		ODESteps:    steps,
		LPSolves:    solves,
		ToolCalls:   tools,
	}, nil
}

// ObserveRun records one finished simulation run.
func (c *Collector) ObserveRun(mode, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.RunsTotal.WithLabelValues(mode, status).Inc()
	c.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveODESteps records the accepted step count of an integration.
func (c *Collector) ObserveODESteps(steps int) {
	if c == nil {
		return
	}
	c.ODESteps.Observe(float64(steps))
}

// ObserveLPSolve counts one LP solve with its terminal status.
func (c *Collector) ObserveLPSolve(status string) {
	if c == nil {
		return
	}
	c.LPSolves.WithLabelValues(status).Inc()
}

// ObserveToolCall counts one MCP tool invocation.
func (c *Collector) ObserveToolCall(tool, outcome string) {
	if c == nil {
		return
	}
	c.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve runs a /metrics HTTP endpoint on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
