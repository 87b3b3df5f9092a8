package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reasona/reasona/internal/llm"
	"github.com/reasona/reasona/internal/retrieval"
)

// Request is the input triple for one query. Provider and Model are optional
// overrides of the configured defaults.
type Request struct {
	Question string `json:"question"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Result is the externally visible outcome of one query.
type Result struct {
	Answer            string   `json:"answer"`
	RetrievedDocs     []string `json:"retrieved_docs"`
	WasCorrected      bool     `json:"was_corrected"`
	SelfEditPerformed bool     `json:"self_edit_performed"`
	Meta              Meta     `json:"meta"`
}

// Meta carries diagnostic details about one pipeline run.
type Meta struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Hypotheses int    `json:"hypotheses"`
	ChunksUsed int    `json:"chunks_used"`
	Rationale  string `json:"rationale,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// ProviderSource resolves provider/model selectors to Provider instances.
// *llm.Factory is the production implementation.
type ProviderSource interface {
	Provider(name, model string) (llm.Provider, error)
}

// Options configures an Engine.
type Options struct {
	Collection string // chunk collection to search and append to
	TopK       int    // retrieval result cap
	Hypotheses int    // hypothetical answers per query
}

// Engine orchestrates the query pipeline: hypothesis generation, aggregated
// retrieval, answer synthesis, critique, and the conditional self-edit loop.
// It is safe for concurrent use; per-query state lives on the stack.
type Engine struct {
	factory    ProviderSource
	aggregator *retrieval.Aggregator
	editor     *selfEditor
	opts       Options
	logger     *slog.Logger
}

// NewEngine wires the pipeline together. The embedder and store are shared
// with ingestion; the engine only appends self-edit chunks, never mutates.
func NewEngine(factory ProviderSource, embedder *retrieval.Embedder, store retrieval.VectorStore, opts Options, logger *slog.Logger) *Engine {
	if opts.Collection == "" {
		opts.Collection = "docs"
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.Hypotheses <= 0 {
		opts.Hypotheses = 3
	}
	retriever := retrieval.NewRetriever(embedder, store, opts.Collection)
	return &Engine{
		factory:    factory,
		aggregator: retrieval.NewAggregator(retriever),
		editor: &selfEditor{
			embedder:   embedder,
			store:      store,
			collection: opts.Collection,
			logger:     logger,
		},
		opts:   opts,
		logger: logger,
	}
}

// Process runs the full pipeline for one request. Failures in hypothesis
// generation, retrieval, or synthesis abort the query; critique and self-edit
// failures degrade the result flags instead.
func (e *Engine) Process(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	provider, err := e.factory.Provider(req.Provider, req.Model)
	if err != nil {
		return Result{}, fmt.Errorf("selecting provider: %w", err)
	}

	logger := e.logger.With("provider", provider.Name())
	logger.Info("processing query", "question", req.Question)

	hypotheses, err := generateHypotheses(ctx, provider, logger, req.Question, e.opts.Hypotheses)
	if err != nil {
		return Result{}, fmt.Errorf("generating hypotheses: %w", err)
	}

	chunks, err := e.aggregator.Aggregate(ctx, req.Question, hypotheses, e.opts.TopK)
	if err != nil {
		return Result{}, fmt.Errorf("retrieving context: %w", err)
	}
	contextBlock := joinContext(chunks)

	answer, err := synthesizeAnswer(ctx, provider, req.Question, contextBlock)
	if err != nil {
		return Result{}, err
	}

	verdict := critique(ctx, provider, logger, req.Question, contextBlock, answer)
	wasCorrected := verdict.Verdict == VerdictIncorrect

	selfEditPerformed := false
	if wasCorrected && contextBlock != "" {
		selfEditPerformed = e.editor.run(ctx, provider, req.Question, contextBlock, answer)
	}

	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Text
	}

	logger.Info("query complete",
		"hypotheses", len(hypotheses),
		"chunks", len(chunks),
		"was_corrected", wasCorrected,
		"self_edit_performed", selfEditPerformed,
		"elapsed", time.Since(start))

	return Result{
		Answer:            answer,
		RetrievedDocs:     docs,
		WasCorrected:      wasCorrected,
		SelfEditPerformed: selfEditPerformed,
		Meta: Meta{
			Provider:   provider.Name(),
			Model:      provider.Model(),
			Hypotheses: len(hypotheses),
			ChunksUsed: len(chunks),
			Rationale:  verdict.Rationale,
			ElapsedMS:  time.Since(start).Milliseconds(),
		},
	}, nil
}
