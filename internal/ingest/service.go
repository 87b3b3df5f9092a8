package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reasona/reasona/internal/storage"
)

// JobTypeEmbedChunk is the queue job type for embedding one document chunk.
const JobTypeEmbedChunk = "embed_chunk"

// DocumentStore is the slice of the storage layer ingestion writes to.
type DocumentStore interface {
	SaveDocument(doc storage.Document) error
	EnqueueJob(job storage.Job) error
}

// embedChunkPayload is the job payload for one chunk. The chunk text rides in
// the payload so the worker never has to re-split the document.
type embedChunkPayload struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Service handles document ingestion: extract text, split into chunks, save
// the document, and enqueue one embedding job per chunk. Embedding itself
// happens asynchronously in the Worker.
type Service struct {
	store        DocumentStore
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewService creates an ingestion Service. Zero chunk parameters fall back to
// the defaults.
func NewService(store DocumentStore, chunkSize, chunkOverlap int, logger *slog.Logger) *Service {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Service{store: store, chunkSize: chunkSize, chunkOverlap: chunkOverlap, logger: logger}
}

// Ingest extracts text from the uploaded file, saves the document, and
// enqueues embedding jobs for its chunks. Returns the saved document.
// Unsupported file types surface ErrUnsupportedType.
func (s *Service) Ingest(ctx context.Context, content []byte, filename string) (storage.Document, error) {
	text, err := ExtractText(content, filename)
	if err != nil {
		return storage.Document{}, err
	}

	chunks := SplitText(text, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return storage.Document{}, fmt.Errorf("no text extracted from %s", filename)
	}

	doc := storage.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		Content:    text,
		ChunkCount: len(chunks),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveDocument(doc); err != nil {
		return storage.Document{}, fmt.Errorf("saving document: %w", err)
	}

	for i, chunk := range chunks {
		payload, err := json.Marshal(embedChunkPayload{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       chunk,
		})
		if err != nil {
			return storage.Document{}, fmt.Errorf("encoding chunk payload: %w", err)
		}
		job := storage.Job{
			ID:          uuid.NewString(),
			Type:        JobTypeEmbedChunk,
			PayloadJSON: string(payload),
		}
		if err := s.store.EnqueueJob(job); err != nil {
			return storage.Document{}, fmt.Errorf("enqueueing chunk %d: %w", i, err)
		}
	}

	s.logger.Info("document ingested", "filename", filename, "document_id", doc.ID, "chunks", len(chunks))
	return doc, nil
}
