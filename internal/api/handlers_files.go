package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/resumer/internal/export"
)

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.deps.Files.List()
	if err != nil {
		s.log.Error("list files", "error", err)
		jsonError(w, "failed to list files", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":      files,
		"totalCount": len(files),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	path, err := s.deps.Files.Resolve(name)
	switch {
	case errors.Is(err, export.ErrForbidden):
		jsonError(w, "access denied", http.StatusForbidden)
		return
	case errors.Is(err, export.ErrFileNotFound):
		jsonError(w, "file not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("resolve download", "filename", name, "error", err)
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
