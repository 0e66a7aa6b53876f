package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type entry struct {
	def    ToolDefinition
	schema *gojsonschema.Schema
}

// Registry maps tool names to definitions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds def. Names must be unique and non-empty; the schema, if any,
// must compile.
func (r *Registry) Register(def ToolDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Function == nil {
		return fmt.Errorf("tool %s has no function", def.Name)
	}

	var schema *gojsonschema.Schema
	if len(def.InputSchema) > 0 {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
		if err != nil {
			return fmt.Errorf("tool %s: invalid input schema: %w", def.Name, err)
		}
		schema = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return &DuplicateToolError{Name: def.Name}
	}
	r.tools[def.Name] = entry{def: def, schema: schema}
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister registers every def and panics on the first error.
func (r *Registry) MustRegister(defs ...ToolDefinition) {
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.def, ok
}

// List returns the definitions in registration order.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Invoke runs the named tool. Unknown names, invalid arguments, tool errors
// and panics come back as *ToolInvocationError. A done ctx is returned as
// ctx.Err() so callers can tell cancellation apart from tool failure.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (out string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", &ToolInvocationError{Name: name, NotFound: true}
	}

	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := validateArgs(e.schema, args); err != nil {
		return "", &ToolInvocationError{Name: name, Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			out = ""
			err = &ToolInvocationError{Name: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	out, err = e.def.Function(ctx, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", ctxErr
		}
		return "", &ToolInvocationError{Name: name, Err: err}
	}
	return out, nil
}

func validateArgs(schema *gojsonschema.Schema, args json.RawMessage) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
	}
	return nil
}
