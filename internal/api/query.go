package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reasona/reasona/internal/llm"
	"github.com/reasona/reasona/internal/pipeline"
)

const maxQueryBodySize = 1 << 20 // 1MB

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxQueryBodySize)
		defer r.Body.Close()

		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		req.Question = strings.TrimSpace(req.Question)
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		result, err := deps.Engine.Process(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, llm.ErrUnknownProvider):
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			case errors.Is(err, llm.ErrMissingAPIKey):
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			default:
				httpError(w, http.StatusInternalServerError, "api_error", "query failed: %v", err)
			}
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
