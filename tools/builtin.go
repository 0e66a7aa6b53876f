package tools

import (
	"net/http"
	"time"

	"github.com/petasbytes/agentloop/internal/fsops"
)

// BuiltinOptions selects and configures the built-in tools.
type BuiltinOptions struct {
	// Sandbox backs the file tools; nil leaves them out.
	Sandbox *fsops.Sandbox
	// SerperAPIKey enables the search tool when set.
	SerperAPIKey string
	SerperURL    string
	NWSBaseURL   string
	// HTTPTimeout bounds each outbound tool request. Zero means 30s.
	HTTPTimeout time.Duration
}

// Builtin returns the enabled built-in tools in a stable order.
func Builtin(opts BuiltinOptions) []ToolDefinition {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var defs []ToolDefinition
	if opts.Sandbox != nil {
		defs = append(defs,
			ReadFileTool(opts.Sandbox),
			ListFilesTool(opts.Sandbox),
			EditFileTool(opts.Sandbox),
		)
	}
	if opts.SerperAPIKey != "" {
		defs = append(defs, SearchTool(SearchConfig{APIKey: opts.SerperAPIKey, URL: opts.SerperURL, Client: client}))
	}
	defs = append(defs, AlertsTool(WeatherConfig{BaseURL: opts.NWSBaseURL, Client: client}))
	return defs
}

// NewBuiltinRegistry registers Builtin(opts) into a fresh Registry.
func NewBuiltinRegistry(opts BuiltinOptions) (*Registry, error) {
	r := NewRegistry()
	for _, d := range Builtin(opts) {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}
