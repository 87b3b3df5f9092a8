package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reasona/reasona/internal/llm"
	"github.com/reasona/reasona/internal/retrieval"
)

// editState tracks progress of one self-edit attempt.
type editState int

const (
	stateIdle editState = iota
	stateEditRequested
	stateEditGenerated
	statePersisted
	stateFailed
)

func (s editState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEditRequested:
		return "edit_requested"
	case stateEditGenerated:
		return "edit_generated"
	case statePersisted:
		return "persisted"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// QAPair is one synthetic question/answer pair produced by a self-edit.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SelfEditRecord is the model's corrective output: a rewritten factual
// passage, synthetic QA pairs, and optional free-form edit directives.
type SelfEditRecord struct {
	ImprovedChunk  string   `json:"improved_chunk"`
	QAPairs        []QAPair `json:"qa_pairs"`
	EditDirectives string   `json:"edit_directives"`
}

const selfEditPrompt = `The provided answer was judged incorrect or unsupported. Improve the context and create Q&A pairs for better learning.

Original Context: %s
Question: %s
Wrong Answer: %s

Respond with a JSON object:
{"improved_chunk": "a compact, factually improved version of the context", "qa_pairs": [{"question": "...", "answer": "..."}], "edit_directives": "optional notes on what was wrong and how it was fixed"}`

// selfEditor runs the learning loop: generate corrective content and append
// it to the store as new chunks. Every failure is local; callers only see a
// boolean success flag, never an error, because the answer was already
// produced upstream.
type selfEditor struct {
	embedder   *retrieval.Embedder
	store      retrieval.VectorStore
	collection string
	logger     *slog.Logger
}

// run executes the self-edit state machine for one query. It must be entered
// only with a non-empty context. Returns true only when the corrective chunks
// were fully persisted. A record carrying neither an improved chunk nor QA
// pairs is a degenerate edit and is rejected whole; directives alone are
// never persisted, since their value is annotating corrective content.
func (se *selfEditor) run(ctx context.Context, provider llm.Provider, question, contextBlock, wrongAnswer string) bool {
	state := stateEditRequested

	record, err := se.generate(ctx, provider, question, contextBlock, wrongAnswer)
	if err != nil {
		se.logger.Warn("self-edit generation failed", "state", state.String(), "error", err)
		return false
	}
	state = stateEditGenerated

	if record.ImprovedChunk == "" && len(record.QAPairs) == 0 {
		se.logger.Warn("self-edit produced no usable content", "state", state.String())
		return false
	}

	if err := se.persist(ctx, question, record); err != nil {
		state = stateFailed
		se.logger.Warn("self-edit persistence failed", "state", state.String(), "error", err)
		return false
	}
	state = statePersisted

	se.logger.Info("self-edit persisted",
		"state", state.String(),
		"qa_pairs", len(record.QAPairs),
		"has_directives", record.EditDirectives != "")
	return true
}

func (se *selfEditor) generate(ctx context.Context, provider llm.Provider, question, contextBlock, wrongAnswer string) (SelfEditRecord, error) {
	prompt := fmt.Sprintf(selfEditPrompt, contextBlock, question, wrongAnswer)

	response, err := provider.Generate(ctx, prompt, selfEditTemperature)
	if err != nil {
		return SelfEditRecord{}, fmt.Errorf("generating edit: %w", err)
	}

	var record SelfEditRecord
	if err := decodeModelJSON(response, &record); err != nil {
		return SelfEditRecord{}, fmt.Errorf("parsing edit: %w", err)
	}
	return record, nil
}

// persist writes all corrective chunks of one self-edit as a single batch, so
// concurrent queries never observe a half-applied edit.
func (se *selfEditor) persist(ctx context.Context, question string, record SelfEditRecord) error {
	editID := "self-edit-" + uuid.NewString()
	now := time.Now().UTC()

	var texts []string
	var types []string

	if record.ImprovedChunk != "" {
		texts = append(texts, record.ImprovedChunk)
		types = append(types, "improved_chunk")
	}
	for _, qa := range record.QAPairs {
		if qa.Question == "" && qa.Answer == "" {
			continue
		}
		texts = append(texts, fmt.Sprintf("Q: %s\nA: %s", qa.Question, qa.Answer))
		types = append(types, "qa_pair")
	}
	if record.EditDirectives != "" {
		texts = append(texts, record.EditDirectives)
		types = append(types, "edit_directives")
	}

	embeddings, err := se.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding corrective chunks: %w", err)
	}

	records := make([]retrieval.Record, len(texts))
	for i := range texts {
		records[i] = retrieval.Record{
			ID:             uuid.NewString(),
			SourceID:       editID,
			SourceType:     types[i],
			Text:           texts[i],
			OriginQuestion: question,
			Embedding:      embeddings[i],
			CreatedAt:      now,
		}
	}

	if err := se.store.Insert(ctx, se.collection, records); err != nil {
		return fmt.Errorf("inserting corrective chunks: %w", err)
	}
	return nil
}
