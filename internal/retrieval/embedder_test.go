package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// countingEmbedClient records how it is called and returns a vector derived
// from the text length.
type countingEmbedClient struct {
	mu     sync.Mutex
	models []string
	err    error
}

func (c *countingEmbedClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	c.mu.Lock()
	c.models = append(c.models, model)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func TestEmbedUsesConfiguredModel(t *testing.T) {
	client := &countingEmbedClient{}
	e := NewEmbedder(client, "nomic-embed-text")

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 1 || vec[0] != 5 {
		t.Errorf("unexpected vector: %v", vec)
	}
	if len(client.models) != 1 || client.models[0] != "nomic-embed-text" {
		t.Errorf("expected one call with configured model, got %v", client.models)
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	client := &countingEmbedClient{}
	e := NewEmbedder(client, "nomic-embed-text")

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // text of length i+1
	}

	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, vec := range vecs {
		if vec[0] != float32(i+1) {
			t.Errorf("vector %d out of order: got length %f", i, vec[0])
		}
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	e := NewEmbedder(&countingEmbedClient{}, "nomic-embed-text")

	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil result for empty input, got %v", vecs)
	}
}

func TestEmbedBatchError(t *testing.T) {
	clientErr := errors.New("model not loaded")
	e := NewEmbedder(&countingEmbedClient{err: clientErr}, "nomic-embed-text")

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, clientErr) {
		t.Errorf("expected wrapped client error, got %v", err)
	}
}
