package llm

import (
	"context"
	"fmt"

	"github.com/reasona/reasona/internal/ollama"
)

// OllamaProvider answers prompts through a local Ollama instance.
type OllamaProvider struct {
	client *ollama.Client
	model  string
}

// NewOllamaProvider creates a provider using the given client and model name.
func NewOllamaProvider(client *ollama.Client, model string) *OllamaProvider {
	return &OllamaProvider{client: client, model: model}
}

func (p *OllamaProvider) Name() string  { return "ollama" }
func (p *OllamaProvider) Model() string { return p.model }

func (p *OllamaProvider) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	messages := []ollama.Message{{Role: "user", Content: prompt}}
	answer, err := p.client.Chat(ctx, p.model, messages, ollama.Temp(temperature))
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return answer, nil
}
