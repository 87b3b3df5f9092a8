package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reasona/reasona/internal/ingest"
	"github.com/reasona/reasona/internal/storage"
)

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing file field: %v", err)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading file: %v", err)
			return
		}

		doc, err := deps.Ingestor.Ingest(r.Context(), content, header.Filename)
		if err != nil {
			if errors.Is(err, ingest.ErrUnsupportedType) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "ingestion failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Document uploaded and queued for indexing",
			"document_id": doc.ID,
			"chunks":      doc.ChunkCount,
		})
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		docs, err := deps.Store.ListDocuments(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := deps.Store.DeleteDocument(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "invalid_request_error", "document %s not found", id)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "deleting document: %v", err)
			return
		}

		deletedChunks := 0
		if deps.Vectors != nil {
			n, err := deps.Vectors.DeleteBySource(r.Context(), id)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "document deleted but vector cleanup failed: %v", err)
				return
			}
			deletedChunks = n
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"deleted":        id,
			"chunks_removed": deletedChunks,
		})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
