package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reasona/reasona/internal/config"
	"github.com/reasona/reasona/internal/ollama"
)

var (
	// ErrMissingAPIKey is returned when a cloud provider is selected but
	// no API key is configured for it.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrUnknownProvider is returned for provider names outside the
	// supported set (ollama, openai, google).
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider generates text from a prompt. All pipeline stages go through this
// one method; temperature is the only per-call knob they need.
type Provider interface {
	// Generate returns the model's completion for the prompt, sampled at
	// the given temperature.
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)

	// Name returns the provider identifier (ollama, openai, google).
	Name() string

	// Model returns the model identifier this provider generates with.
	Model() string
}

// Factory resolves provider names to Provider instances using configured
// defaults and credentials. The local Ollama client is shared so the factory
// never opens a second connection pool for it.
type Factory struct {
	cfg    config.LLMConfig
	ollama *ollama.Client
}

// NewFactory creates a Factory backed by the given configuration and local
// Ollama client.
func NewFactory(cfg config.LLMConfig, client *ollama.Client) *Factory {
	return &Factory{cfg: cfg, ollama: client}
}

// Provider returns a Provider for the given name and model. Empty name or
// model fall back to the configured defaults, so callers can pass through
// request fields untouched.
func (f *Factory) Provider(name, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = f.cfg.Provider
	}
	if model == "" {
		model = f.cfg.Model
	}

	switch name {
	case "ollama":
		return NewOllamaProvider(f.ollama, model), nil
	case "openai":
		return NewOpenAIProvider(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL, model)
	case "google":
		return NewGoogleProvider(f.cfg.GoogleAPIKey, f.cfg.GoogleBaseURL, model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
