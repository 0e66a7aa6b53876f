package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Names accepted by New.
const (
	NameAnthropic = "anthropic"
	NameOpenAI    = "openai"
	NameOllama    = "ollama"
	NameGemini    = "gemini"
)

// Options selects a provider variant.
type Options struct {
	Name string
	// Endpoint overrides the vendor base URL.
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Names lists the accepted provider names.
func Names() []string {
	return []string{NameAnthropic, NameOpenAI, NameOllama, NameGemini}
}

// DefaultModel returns the model used by name when none is configured.
func DefaultModel(name string) string {
	switch strings.ToLower(name) {
	case NameAnthropic:
		return DefaultAnthropicModel
	case NameOllama:
		return DefaultOllamaModel
	case NameGemini:
		return DefaultGeminiModel
	default:
		return DefaultOpenAIModel
	}
}

// New builds the Generator named by opts.Name.
func New(ctx context.Context, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Name)) {
	case NameAnthropic:
		return NewAnthropic(opts.APIKey, opts.Endpoint, opts.HTTPClient), nil
	case NameOpenAI, "":
		return NewOpenAI(opts.APIKey, opts.Endpoint, opts.HTTPClient), nil
	case NameOllama:
		return NewOllama(opts.Endpoint, opts.HTTPClient), nil
	case NameGemini:
		g, err := NewGemini(ctx, opts.APIKey, opts.Endpoint, opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", opts.Name)
	}
}
