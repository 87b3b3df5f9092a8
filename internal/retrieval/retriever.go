package retrieval

import (
	"context"
	"time"
)

// ContextChunk is a retrieved context fragment with its similarity score.
type ContextChunk struct {
	ID             string
	SourceID       string
	SourceType     string
	Text           string
	OriginQuestion string
	Score          float32
	CreatedAt      time.Time
}

// Retriever combines embedding and vector search to find relevant context
// within one named collection.
type Retriever struct {
	embedder   *Embedder
	store      VectorStore
	collection string
}

// NewRetriever creates a Retriever over the given collection.
func NewRetriever(embedder *Embedder, store VectorStore, collection string) *Retriever {
	if collection == "" {
		collection = "docs"
	}
	return &Retriever{embedder: embedder, store: store, collection: collection}
}

// Collection returns the name of the collection this Retriever searches.
func (r *Retriever) Collection() string {
	return r.collection
}

// Retrieve embeds the query and returns the top-K most similar context chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]ContextChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(ctx, r.collection, vec, topK)
	if err != nil {
		return nil, err
	}

	return scoredToChunks(scored), nil
}

func scoredToChunks(scored []ScoredRecord) []ContextChunk {
	chunks := make([]ContextChunk, len(scored))
	for i, s := range scored {
		chunks[i] = ContextChunk{
			ID:             s.ID,
			SourceID:       s.SourceID,
			SourceType:     s.SourceType,
			Text:           s.Text,
			OriginQuestion: s.OriginQuestion,
			Score:          s.Score,
			CreatedAt:      s.CreatedAt,
		}
	}
	return chunks
}
