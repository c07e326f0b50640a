package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Observer receives invocation outcomes, e.g. for metrics.
type Observer interface {
	ObserveInvocation(tool string, isError bool, elapsed time.Duration)
}

// Registry holds the registered tools. Read-only gating happens once, at
// registration: a trading-class tool offered to a read-only registry is
// dropped, so per-call checks are unnecessary.
type Registry struct {
	readOnly bool
	tools    map[string]Tool
	order    []string
	observer Observer
}

// RegistryOption configures a registry.
type RegistryOption func(*Registry)

// WithReadOnly marks the registry read-only.
func WithReadOnly(readOnly bool) RegistryOption {
	return func(r *Registry) {
		r.readOnly = readOnly
	}
}

// WithObserver attaches an invocation observer.
func WithObserver(obs Observer) RegistryOption {
	return func(r *Registry) {
		r.observer = obs
	}
}

// NewRegistry creates a tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadOnly reports whether trading tools are suppressed.
func (r *Registry) ReadOnly() bool {
	return r.readOnly
}

// Register adds a tool under its risk class. Returns false when the tool
// was suppressed by read-only gating.
func (r *Registry) Register(tool Tool, risk string) bool {
	if r.readOnly && risk == RiskTrading {
		return false
	}
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
	return true
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Invoke executes a tool by name and wraps the outcome in the uniform
// envelope. Unknown tools and execution failures produce error
// envelopes; nothing is retried.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage) *Result {
	tool, ok := r.tools[name]
	if !ok {
		return ErrorResult(fmt.Errorf("unknown tool: %s", name))
	}

	start := time.Now()
	payload, err := tool.Execute(ctx, input)

	var result *Result
	if err != nil {
		result = ErrorResult(err)
	} else {
		result = TextResult(payload)
	}

	if r.observer != nil {
		r.observer.ObserveInvocation(name, result.IsError, time.Since(start))
	}
	return result
}
