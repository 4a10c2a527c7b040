// Package toolbox provides the tool registry and executor: named,
// schema-described capabilities the model can invoke, dispatched against the
// sandbox with every failure normalized into a result value.
package toolbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/martinemde/sandchat/llm"
)

var (
	// ErrDuplicateTool is returned when registering a name that exists.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool is returned when resolving a name with no entry.
	ErrUnknownTool = errors.New("unknown tool")
)

// Handler executes a tool call. Arguments arrive as the decoded JSON object
// from the model; the returned string is the success payload.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// ToolSpec is a registry entry: the schema advertised to the model paired
// with the handler that implements it.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
	Handler     Handler
}

// Registry maps tool names to specs. Definitions are returned in
// registration order so the schema advertised to the model is identical on
// every call.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*ToolSpec
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*ToolSpec),
	}
}

// Register adds a tool. Names are unique; re-registering fails with
// ErrDuplicateTool.
func (r *Registry) Register(spec ToolSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("tool spec missing name")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %s missing handler", spec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}
	r.specs[spec.Name] = &spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Resolve returns the spec for a name, or ErrUnknownTool.
func (r *Registry) Resolve(name string) (*ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return spec, nil
}

// Definitions returns the tool schema to advertise to the model, in
// registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
		})
	}
	return defs
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
