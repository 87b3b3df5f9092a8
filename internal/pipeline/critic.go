package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reasona/reasona/internal/llm"
)

// Verdict values returned by the faithfulness critic.
const (
	VerdictCorrect   = "CORRECT"
	VerdictIncorrect = "INCORRECT"
)

// Verdict is the critic's structured judgment of whether the answer is
// supported by the retrieved context.
type Verdict struct {
	Verdict   string `json:"verdict"`
	Rationale string `json:"rationale"`
}

const criticPrompt = `You are a fact-checker. Analyze if the answer is fully supported by the context.

Question: %s
Context: %s
Answer: %s

Respond with a JSON object: {"verdict": "CORRECT" or "INCORRECT", "rationale": "one sentence explaining the judgment"}`

// critique asks the model to judge the answer against the context. The
// structured verdict is authoritative when it parses; a malformed response
// falls back to a deterministic heuristic instead of failing the query:
// answers carrying the insufficiency marker are INCORRECT, all others CORRECT.
func critique(ctx context.Context, provider llm.Provider, logger *slog.Logger, question, contextBlock, answer string) Verdict {
	prompt := fmt.Sprintf(criticPrompt, question, contextBlock, answer)

	response, err := provider.Generate(ctx, prompt, criticTemperature)
	if err != nil {
		logger.Warn("critic call failed, using fallback heuristic", "error", err)
		return fallbackVerdict(answer)
	}

	var v Verdict
	if err := decodeModelJSON(response, &v); err != nil {
		logger.Warn("critic response unparseable, using fallback heuristic", "error", err)
		return fallbackVerdict(answer)
	}

	v.Verdict = strings.ToUpper(strings.TrimSpace(v.Verdict))
	if v.Verdict != VerdictCorrect && v.Verdict != VerdictIncorrect {
		logger.Warn("critic verdict outside expected set, using fallback heuristic", "verdict", v.Verdict)
		return fallbackVerdict(answer)
	}
	return v
}

// fallbackVerdict derives a verdict from the answer text alone.
func fallbackVerdict(answer string) Verdict {
	if strings.Contains(answer, InsufficiencyMarker) {
		return Verdict{Verdict: VerdictIncorrect, Rationale: "answer reports insufficient information"}
	}
	return Verdict{Verdict: VerdictCorrect, Rationale: "fallback heuristic: no insufficiency marker present"}
}
