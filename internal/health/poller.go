// Package health polls external dependencies on a fixed interval and keeps a
// three-state indicator per target.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State of one probed target
type State string

const (
	StateChecking  State = "checking" // no probe has completed yet
	StateHealthy   State = "healthy"
	StateUnhealthy State = "unhealthy"
)

const (
	defaultInterval = 30 * time.Second
	probeTimeout    = 10 * time.Second
)

// Poller checks every registered target on a fixed interval
type Poller struct {
	registry *Registry
	interval time.Duration
	gauge    *prometheus.GaugeVec

	mu     sync.RWMutex
	states map[string]State
}

// NewPoller creates a poller. promRegistry may be nil; when given, a
// target_healthy gauge is registered on it.
func NewPoller(registry *Registry, interval time.Duration, promRegistry *prometheus.Registry) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}

	p := &Poller{
		registry: registry,
		interval: interval,
		states:   make(map[string]State),
	}

	for _, prober := range registry.List() {
		p.states[prober.Name()] = StateChecking
	}

	if promRegistry != nil {
		p.gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "target_healthy",
				Help: "Whether a probed dependency is healthy (1) or not (0).",
			},
			[]string{"target"},
		)
		promRegistry.MustRegister(p.gauge)
	}

	return p
}

// Start begins polling in a goroutine
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	slog.Info("health poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Probe immediately on start
	p.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("health poller stopped")
			return
		case <-ticker.C:
			p.checkAll(ctx)
		}
	}
}

func (p *Poller) checkAll(ctx context.Context) {
	for _, prober := range p.registry.List() {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := prober.HealthCheck(probeCtx)
		cancel()

		state := StateHealthy
		if err != nil {
			state = StateUnhealthy
		}
		p.setState(prober.Name(), state, err)
	}
}

func (p *Poller) setState(name string, state State, err error) {
	p.mu.Lock()
	prev := p.states[name]
	p.states[name] = state
	p.mu.Unlock()

	if p.gauge != nil {
		v := 0.0
		if state == StateHealthy {
			v = 1.0
		}
		p.gauge.WithLabelValues(name).Set(v)
	}

	if prev != state {
		if state == StateHealthy {
			slog.Info("target healthy", "target", name)
		} else {
			slog.Warn("target unhealthy", "target", name, "error", err)
		}
	}
}

// States returns a copy of the current indicator per target
func (p *Poller) States() map[string]State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]State, len(p.states))
	for name, state := range p.states {
		out[name] = state
	}
	return out
}
