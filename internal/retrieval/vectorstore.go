package retrieval

import (
	"context"
	"time"
)

// VectorStore is the interface for chunk storage and similarity search
// backends. The default implementation uses SQLite with brute-force cosine
// similarity; the interface leaves room for ANN-capable backends.
type VectorStore interface {
	// Insert adds records to the given collection. All records of one call
	// are written inside a single transaction, so a batch is either fully
	// visible or not at all.
	Insert(ctx context.Context, collection string, records []Record) error

	// Search returns the top-K records of the collection most similar to
	// the query vector, ordered by score descending.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredRecord, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// DeleteBySource removes all records derived from the given source
	// (e.g. every chunk of one uploaded document).
	DeleteBySource(ctx context.Context, sourceID string) (int, error)

	// Count returns the number of records in the given collection.
	Count(ctx context.Context, collection string) (int, error)

	// ExportAll returns all records of a collection in insertion order.
	// Used for data migration between backends.
	ExportAll(ctx context.Context, collection string) ([]Record, error)
}

// Record is one stored chunk with its embedding. Records are immutable once
// inserted; corrections from the self-edit loop are appended as new records,
// never updates.
type Record struct {
	ID             string
	SourceID       string
	SourceType     string // document | improved_chunk | qa_pair | edit_directives
	Collection     string
	Text           string
	OriginQuestion string
	Embedding      []float32
	CreatedAt      time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
