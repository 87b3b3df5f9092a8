package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reasona/reasona/internal/llm"
	"github.com/reasona/reasona/internal/retrieval"
	"github.com/reasona/reasona/internal/storage"
)

// stubProvider routes each prompt to a canned response by pipeline stage,
// recognized from the stage's fixed prompt preamble.
type stubProvider struct {
	hypothesis  string
	answer      string
	critic      string
	selfEdit    string
	hypErrs     int32 // first N hypothesis calls fail
	answerErr   error
	hypCalls    atomic.Int32
	editCalls   atomic.Int32
	criticCalls atomic.Int32
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	switch {
	case strings.Contains(prompt, "find relevant documents"):
		n := s.hypCalls.Add(1)
		if n <= s.hypErrs {
			return "", fmt.Errorf("hypothesis call %d failed", n)
		}
		return fmt.Sprintf("%s (variant %d)", s.hypothesis, n), nil
	case strings.Contains(prompt, "fact-checker"):
		s.criticCalls.Add(1)
		return s.critic, nil
	case strings.Contains(prompt, "judged incorrect"):
		s.editCalls.Add(1)
		return s.selfEdit, nil
	default:
		if s.answerErr != nil {
			return "", s.answerErr
		}
		return s.answer, nil
	}
}

type stubSource struct {
	provider llm.Provider
	err      error
}

func (s *stubSource) Provider(name, model string) (llm.Provider, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.provider, nil
}

// hashEmbedClient derives a deterministic non-zero vector from the text.
type hashEmbedClient struct{}

func (hashEmbedClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	h := fnv.New32a()
	h.Write([]byte(text))
	sum := h.Sum32()
	return []float32{
		float32(sum%97) + 1,
		float32((sum/97)%89) + 1,
		float32((sum/8633)%83) + 1,
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, provider llm.Provider, store retrieval.VectorStore) *Engine {
	t.Helper()
	embedder := retrieval.NewEmbedder(hashEmbedClient{}, "test-embed")
	return NewEngine(&stubSource{provider: provider}, embedder, store, Options{
		Collection: "docs",
		TopK:       4,
		Hypotheses: 3,
	}, discardLogger())
}

func openVectorStore(t *testing.T) *retrieval.SQLiteStore {
	t.Helper()
	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return retrieval.NewSQLiteStore(st.DB())
}

func seedChunks(t *testing.T, store retrieval.VectorStore, texts ...string) {
	t.Helper()
	embed := hashEmbedClient{}
	records := make([]retrieval.Record, len(texts))
	for i, text := range texts {
		vec, _ := embed.Embed(context.Background(), "test-embed", text)
		records[i] = retrieval.Record{
			ID:        fmt.Sprintf("seed-%d", i),
			SourceID:  "doc-1",
			Text:      text,
			Embedding: vec,
			CreatedAt: time.Now().UTC(),
		}
	}
	if err := store.Insert(context.Background(), "docs", records); err != nil {
		t.Fatalf("seeding chunks: %v", err)
	}
}

func TestProcessEmptyStore(t *testing.T) {
	provider := &stubProvider{
		hypothesis: "X might be a thing",
		answer:     "I don't have enough information to answer that.",
		critic:     `{"verdict": "INCORRECT", "rationale": "no supporting context"}`,
	}
	eng := newTestEngine(t, provider, openVectorStore(t))

	result, err := eng.Process(context.Background(), Request{Question: "What is X?"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(result.RetrievedDocs) != 0 {
		t.Errorf("expected no retrieved docs, got %d", len(result.RetrievedDocs))
	}
	if !strings.Contains(result.Answer, InsufficiencyMarker) {
		t.Errorf("expected insufficiency marker in answer, got %q", result.Answer)
	}
	if !result.WasCorrected {
		t.Error("expected was_corrected=true for unsupported answer")
	}
	// Empty context must never trigger a self-edit.
	if result.SelfEditPerformed {
		t.Error("expected self_edit_performed=false with empty context")
	}
	if provider.editCalls.Load() != 0 {
		t.Errorf("expected no self-edit calls, got %d", provider.editCalls.Load())
	}
}

func TestProcessSupportedAnswer(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "Paris is the capital of France.")

	provider := &stubProvider{
		hypothesis: "The capital of France is Paris",
		answer:     "Paris is the capital of France.",
		critic:     `{"verdict": "CORRECT", "rationale": "directly supported"}`,
	}
	eng := newTestEngine(t, provider, store)

	result, err := eng.Process(context.Background(), Request{Question: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !strings.Contains(result.Answer, "Paris") {
		t.Errorf("expected Paris in answer, got %q", result.Answer)
	}
	if result.WasCorrected {
		t.Error("expected was_corrected=false for supported answer")
	}
	if result.SelfEditPerformed {
		t.Error("expected no self-edit for supported answer")
	}
	if len(result.RetrievedDocs) != 1 {
		t.Errorf("expected 1 retrieved doc, got %d", len(result.RetrievedDocs))
	}
	if result.Meta.Provider != "stub" || result.Meta.Model != "stub-model" {
		t.Errorf("unexpected meta: %+v", result.Meta)
	}
}

func TestProcessMalformedCriticFallsBack(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "Some context.")

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "A confident grounded answer.",
		critic:     "the answer looks fine to me",
	}
	eng := newTestEngine(t, provider, store)

	result, err := eng.Process(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Process should not fail on malformed critic output: %v", err)
	}
	// No insufficiency marker in the answer, so the fallback says CORRECT.
	if result.WasCorrected {
		t.Error("expected fallback verdict CORRECT")
	}
}

func TestProcessSelfEditPersists(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "France is a country in Europe.")

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "Lyon is the capital of France.",
		critic:     `{"verdict": "INCORRECT", "rationale": "context does not support Lyon"}`,
		selfEdit: "```json\n" + `{
			"improved_chunk": "France is a country in Europe. Its capital is Paris.",
			"qa_pairs": [
				{"question": "What is the capital of France?", "answer": "Paris"},
				{"question": "Where is France?", "answer": "Europe"}
			],
			"edit_directives": "Replace Lyon with Paris."
		}` + "\n```",
	}
	eng := newTestEngine(t, provider, store)

	before, _ := store.Count(context.Background(), "docs")

	result, err := eng.Process(context.Background(), Request{Question: "What is the capital of France?"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.WasCorrected || !result.SelfEditPerformed {
		t.Fatalf("expected corrected self-edited result, got %+v", result)
	}

	after, _ := store.Count(context.Background(), "docs")
	if after != before+4 {
		t.Errorf("expected 4 new chunks (improved + 2 QA + directives), got %d", after-before)
	}

	records, err := store.ExportAll(context.Background(), "docs")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	counts := map[string]int{}
	for _, r := range records {
		counts[r.SourceType]++
		if r.SourceType != "document" && r.OriginQuestion != "What is the capital of France?" {
			t.Errorf("corrective chunk missing origin question: %+v", r)
		}
	}
	if counts["improved_chunk"] != 1 || counts["qa_pair"] != 2 || counts["edit_directives"] != 1 {
		t.Errorf("unexpected chunk type counts: %v", counts)
	}
}

// failingStore wraps a VectorStore and fails all inserts.
type failingStore struct {
	retrieval.VectorStore
}

func (f *failingStore) Insert(ctx context.Context, collection string, records []retrieval.Record) error {
	return errors.New("disk full")
}

func TestProcessSelfEditPersistFailureSwallowed(t *testing.T) {
	inner := openVectorStore(t)
	seedChunks(t, inner, "Some context.")
	store := &failingStore{VectorStore: inner}

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "A wrong answer.",
		critic:     `{"verdict": "INCORRECT", "rationale": "unsupported"}`,
		selfEdit:   `{"improved_chunk": "Better context.", "qa_pairs": [], "edit_directives": ""}`,
	}
	eng := newTestEngine(t, provider, store)

	result, err := eng.Process(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("persistence failure must not fail the query: %v", err)
	}
	if result.Answer != "A wrong answer." {
		t.Errorf("answer must survive self-edit failure, got %q", result.Answer)
	}
	if result.SelfEditPerformed {
		t.Error("expected self_edit_performed=false after persistence failure")
	}
	if !result.WasCorrected {
		t.Error("expected was_corrected=true to survive")
	}
}

func TestProcessSelfEditDirectivesOnlyRejected(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "Some context.")

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "A wrong answer.",
		critic:     `{"verdict": "INCORRECT", "rationale": "unsupported"}`,
		selfEdit:   `{"improved_chunk": "", "qa_pairs": [], "edit_directives": "Rewrite the context from scratch."}`,
	}
	eng := newTestEngine(t, provider, store)

	before, _ := store.Count(context.Background(), "docs")

	result, err := eng.Process(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("degenerate edit must not fail the query: %v", err)
	}
	if result.SelfEditPerformed {
		t.Error("expected self_edit_performed=false for a directives-only edit")
	}

	after, _ := store.Count(context.Background(), "docs")
	if after != before {
		t.Errorf("directives-only edit must not persist chunks, got %d new", after-before)
	}
}

func TestProcessSelfEditParseFailureSwallowed(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "Some context.")

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "A wrong answer.",
		critic:     `{"verdict": "INCORRECT", "rationale": "unsupported"}`,
		selfEdit:   "I could not produce JSON, sorry.",
	}
	eng := newTestEngine(t, provider, store)

	result, err := eng.Process(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("parse failure must not fail the query: %v", err)
	}
	if result.SelfEditPerformed {
		t.Error("expected self_edit_performed=false after parse failure")
	}
}

// ctxAwareProvider surfaces the context's error on every call, the way an
// HTTP-backed provider does once its request is cancelled.
type ctxAwareProvider struct{}

func (ctxAwareProvider) Name() string  { return "stub" }
func (ctxAwareProvider) Model() string { return "stub-model" }

func (ctxAwareProvider) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "unreachable", nil
}

func TestProcessCancelledContext(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "Some context.")
	eng := newTestEngine(t, ctxAwareProvider{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := eng.Process(ctx, Request{Question: "q"})
	if err == nil {
		t.Fatal("expected error from cancelled pipeline")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in the chain, got %v", err)
	}
	// Cancellation must never leak a partial result.
	if result.Answer != "" || len(result.RetrievedDocs) != 0 || result.WasCorrected || result.SelfEditPerformed {
		t.Errorf("expected zero result, got %+v", result)
	}
}

func TestProcessTopKCap(t *testing.T) {
	store := openVectorStore(t)
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("Fact number %d about the subject.", i)
	}
	seedChunks(t, store, texts...)

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "An answer.",
		critic:     `{"verdict": "CORRECT", "rationale": "ok"}`,
	}
	eng := newTestEngine(t, provider, store)

	result, err := eng.Process(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.RetrievedDocs) > 4 {
		t.Errorf("expected at most 4 docs, got %d", len(result.RetrievedDocs))
	}

	seen := map[string]struct{}{}
	for _, doc := range result.RetrievedDocs {
		if _, dup := seen[doc]; dup {
			t.Errorf("duplicate doc in result set: %q", doc)
		}
		seen[doc] = struct{}{}
	}
}

func TestProcessHypothesisPartialFailure(t *testing.T) {
	store := openVectorStore(t)
	seedChunks(t, store, "Some context.")

	provider := &stubProvider{
		hypothesis: "hyp",
		answer:     "An answer.",
		critic:     `{"verdict": "CORRECT", "rationale": "ok"}`,
		hypErrs:    2, // 2 of 3 hypothesis calls fail
	}
	eng := newTestEngine(t, provider, store)

	result, err := eng.Process(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("partial hypothesis failure must degrade, not abort: %v", err)
	}
	if result.Meta.Hypotheses != 1 {
		t.Errorf("expected 1 surviving hypothesis, got %d", result.Meta.Hypotheses)
	}
}

func TestProcessAllHypothesesFail(t *testing.T) {
	provider := &stubProvider{hypErrs: 3}
	eng := newTestEngine(t, provider, openVectorStore(t))

	if _, err := eng.Process(context.Background(), Request{Question: "q"}); err == nil {
		t.Fatal("expected error when every hypothesis call fails")
	}
}

func TestProcessSynthesisFailureFatal(t *testing.T) {
	provider := &stubProvider{
		hypothesis: "hyp",
		answerErr:  errors.New("model overloaded"),
	}
	eng := newTestEngine(t, provider, openVectorStore(t))

	if _, err := eng.Process(context.Background(), Request{Question: "q"}); err == nil {
		t.Fatal("expected error when synthesis fails")
	}
}

func TestProcessProviderSelectionError(t *testing.T) {
	embedder := retrieval.NewEmbedder(hashEmbedClient{}, "test-embed")
	eng := NewEngine(&stubSource{err: llm.ErrUnknownProvider}, embedder, openVectorStore(t), Options{}, discardLogger())

	_, err := eng.Process(context.Background(), Request{Question: "q", Provider: "nope"})
	if !errors.Is(err, llm.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestCritiqueIdempotent(t *testing.T) {
	provider := &stubProvider{
		critic: `{"verdict": "INCORRECT", "rationale": "unsupported"}`,
	}
	logger := discardLogger()

	first := critique(context.Background(), provider, logger, "q", "ctx", "answer")
	second := critique(context.Background(), provider, logger, "q", "ctx", "answer")
	if first != second {
		t.Errorf("critique not idempotent: %+v vs %+v", first, second)
	}
	if first.Verdict != VerdictIncorrect {
		t.Errorf("expected INCORRECT, got %q", first.Verdict)
	}
}

func TestFallbackVerdict(t *testing.T) {
	if v := fallbackVerdict("I don't have enough information to answer."); v.Verdict != VerdictIncorrect {
		t.Errorf("expected INCORRECT for marker answer, got %q", v.Verdict)
	}
	if v := fallbackVerdict("Paris is the capital."); v.Verdict != VerdictCorrect {
		t.Errorf("expected CORRECT for grounded answer, got %q", v.Verdict)
	}
}
