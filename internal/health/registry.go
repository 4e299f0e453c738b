package health

import (
	"context"
	"sync"
)

// Prober is a health-checkable external dependency
type Prober interface {
	// Name identifies the target in status output
	Name() string

	// HealthCheck checks if the target is available
	HealthCheck(ctx context.Context) error
}

// ProbeFunc adapts a named function to Prober
type ProbeFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewProbe wraps a check function as a Prober
func NewProbe(name string, fn func(ctx context.Context) error) *ProbeFunc {
	return &ProbeFunc{name: name, fn: fn}
}

// Name returns the probe name
func (p *ProbeFunc) Name() string {
	return p.name
}

// HealthCheck runs the wrapped check
func (p *ProbeFunc) HealthCheck(ctx context.Context) error {
	return p.fn(ctx)
}

// Registry manages the probers the poller drives, in registration order
type Registry struct {
	mu      sync.RWMutex
	probers []Prober
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a prober to the registry
func (r *Registry) Register(p Prober) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probers = append(r.probers, p)
}

// List returns all registered probers
func (r *Registry) List() []Prober {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Prober, len(r.probers))
	copy(out, r.probers)
	return out
}
