package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reasona/reasona/internal/llm"
)

// Sampling temperatures per stage. Hypotheses run hot for lexical diversity;
// synthesis and critique run cold for grounded, repeatable output.
const (
	hypothesisTemperature = 0.7
	answerTemperature     = 0.1
	criticTemperature     = 0.1
	selfEditTemperature   = 0.1
)

const hypothesisPrompt = `Generate a helpful answer to this question. This will be used to find relevant documents.

Question: %s`

// generateHypotheses produces up to count hypothetical answers to seed
// retrieval. Calls are independent and run concurrently; a single failed call
// degrades to a smaller hypothesis set, and only when every call fails does
// the stage return an error. Results keep their generation order regardless
// of completion order.
func generateHypotheses(ctx context.Context, provider llm.Provider, logger *slog.Logger, question string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(hypothesisPrompt, question)

	results := make([]string, count)
	errs := make([]error, count)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = provider.Generate(ctx, prompt, hypothesisTemperature)
		}()
	}
	wg.Wait()

	hypotheses := make([]string, 0, count)
	var firstErr error
	for i := 0; i < count; i++ {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			logger.Warn("hypothesis generation failed", "index", i, "error", errs[i])
			continue
		}
		hypotheses = append(hypotheses, results[i])
	}

	if len(hypotheses) == 0 {
		return nil, fmt.Errorf("all %d hypothesis generations failed: %w", count, firstErr)
	}
	return hypotheses, nil
}
