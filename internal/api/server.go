package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reasona/reasona/internal/pipeline"
	"github.com/reasona/reasona/internal/storage"
)

const maxUploadSize = 20 << 20 // 20MB

// QueryEngine abstracts the pipeline for the HTTP layer.
type QueryEngine interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Ingestor abstracts document ingestion.
type Ingestor interface {
	Ingest(ctx context.Context, content []byte, filename string) (storage.Document, error)
}

// VectorDeleter abstracts vector cleanup for document deletion.
type VectorDeleter interface {
	DeleteBySource(ctx context.Context, sourceID string) (int, error)
}

// Deps holds the collaborators of the HTTP surface.
type Deps struct {
	Engine   QueryEngine
	Ingestor Ingestor
	Store    *storage.Store
	Vectors  VectorDeleter // optional; if nil, vector cleanup is skipped on delete
	Provider string        // default provider name, reported by /health
	Token    string        // bearer token for the documents endpoints; empty disables auth
}

// NewHandler builds the HTTP router. Query, upload, and health are open;
// document management requires the bearer token when one is configured.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Post("/query", handleQuery(deps))
	r.Post("/upload", handleUpload(deps))
	r.Get("/health", handleHealth(deps))

	r.Group(func(g chi.Router) {
		if deps.Token != "" {
			g.Use(BearerAuth(deps.Token))
		}
		g.Get("/documents", handleListDocuments(deps))
		g.Delete("/documents/{id}", handleDeleteDocument(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"provider": deps.Provider,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
