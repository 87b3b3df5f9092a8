package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Aggregator runs one retrieval per search seed and merges the results into a
// single deduplicated context set. The question is always the first seed;
// hypothetical answers follow in the order they were generated. Merge order is
// fixed by seed order regardless of how the individual searches are scheduled,
// so results are deterministic for a given store state.
type Aggregator struct {
	retriever *Retriever
}

// NewAggregator creates an Aggregator over the given Retriever.
func NewAggregator(retriever *Retriever) *Aggregator {
	return &Aggregator{retriever: retriever}
}

// Aggregate retrieves context for the question plus each hypothesis, dedupes
// by normalized text, and truncates to topK. Chunks keep first-seen order;
// there is no re-ranking after the merge. An empty store yields an empty
// result, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, question string, hypotheses []string, topK int) ([]ContextChunk, error) {
	seeds := make([]string, 0, len(hypotheses)+1)
	seeds = append(seeds, question)
	seeds = append(seeds, hypotheses...)

	perSeed := make([][]ContextChunk, len(seeds))
	for i, seed := range seeds {
		chunks, err := a.retriever.Retrieve(ctx, seed, topK)
		if err != nil {
			return nil, fmt.Errorf("retrieve for seed %d: %w", i, err)
		}
		perSeed[i] = chunks
	}

	return mergeChunks(perSeed, topK), nil
}

// mergeChunks flattens the per-seed results in seed order, drops duplicates by
// normalized text fingerprint, and caps the result at topK.
func mergeChunks(perSeed [][]ContextChunk, topK int) []ContextChunk {
	merged := make([]ContextChunk, 0, topK)
	seen := make(map[string]struct{})
	for _, chunks := range perSeed {
		for _, c := range chunks {
			key := textFingerprint(c.Text)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, c)
			if len(merged) == topK {
				return merged
			}
		}
	}
	return merged
}

// textFingerprint hashes the normalized chunk text: lower-cased with all runs
// of whitespace collapsed to single spaces. Chunks that differ only in casing
// or spacing are treated as the same content.
func textFingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
