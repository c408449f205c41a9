package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/resumer/internal/parser"
	"github.com/dgallion1/resumer/internal/pipeline"
)

type summarizeRequest struct {
	HTML     string `json:"html"`
	Language string `json:"language"`
}

// handleSummarize summarizes a single HTML snippet, retrying the model call
// with the same policy as document runs.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.deps.LLM == nil {
		jsonError(w, "llm unavailable", http.StatusServiceUnavailable)
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "HTML content is required"})
		return
	}

	content, err := parser.HTMLText(strings.NewReader(req.HTML))
	if err != nil || strings.TrimSpace(content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "no text content found in HTML"})
		return
	}

	start := time.Now()
	summary, err := pipeline.Retry(r.Context(), "summarize text", s.deps.Retry, s.log,
		func(ctx context.Context) (string, error) {
			return s.deps.LLM.SummarizeText(ctx, content, req.Language)
		})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"summary":          summary,
		"processingTimeMs": time.Since(start).Milliseconds(),
	})
}
