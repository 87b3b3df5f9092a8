package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/reasona/reasona/internal/llm"
	"github.com/reasona/reasona/internal/retrieval"
)

// InsufficiencyMarker is the phrase the synthesizer is instructed to use when
// the context does not support an answer. The critic fallback keys on it.
const InsufficiencyMarker = "I don't have enough information"

// chunkSeparator joins retrieved chunks into one context block.
const chunkSeparator = "\n\n---\n\n"

const answerPrompt = `Answer the question using only the provided context. Be concise (3-5 sentences). If the context is empty or does not contain the answer, say "%s" instead of guessing.

Context: %s

Question: %s`

// joinContext concatenates retrieved chunk texts into the context block
// passed to synthesis and critique. Empty input yields an empty string.
func joinContext(chunks []retrieval.ContextChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, chunkSeparator)
}

// synthesizeAnswer produces the grounded answer for the question from the
// joined context. A failure here is fatal to the query.
func synthesizeAnswer(ctx context.Context, provider llm.Provider, question, contextBlock string) (string, error) {
	prompt := fmt.Sprintf(answerPrompt, InsufficiencyMarker, contextBlock, question)
	answer, err := provider.Generate(ctx, prompt, answerTemperature)
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
