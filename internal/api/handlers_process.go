package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/resumer/internal/outline"
	"github.com/dgallion1/resumer/internal/parser"
	"github.com/dgallion1/resumer/internal/pipeline"
)

type processResponse struct {
	pipeline.Result
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("document")
	if err != nil {
		jsonError(w, "document file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	req := pipeline.Request{
		SectionPattern:    strings.TrimSpace(r.FormValue("sectionPattern")),
		SubSectionPattern: strings.TrimSpace(r.FormValue("subSectionPattern")),
		Title:             strings.TrimSpace(r.FormValue("documentTitle")),
		Filename:          strings.TrimSpace(r.FormValue("filename")),
		Subject:           strings.TrimSpace(r.FormValue("subject")),
		Language:          strings.TrimSpace(r.FormValue("language")),
	}
	if err := validatePatterns(req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	inputPath, err := s.saveUpload(filename, data)
	if err != nil {
		s.log.Error("save upload", "filename", filename, "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	req.InputPath = inputPath

	if r.FormValue("async") == "true" {
		s.submitJob(w, filename, pipeline.ContentHashHex(data), req)
		return
	}

	defer os.Remove(inputPath)
	res := s.deps.Processor.Process(r.Context(), req, nil)
	code := http.StatusOK
	if !res.Success {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, newProcessResponse(res))
}

func (s *Server) submitJob(w http.ResponseWriter, filename, hash string, req pipeline.Request) {
	if s.deps.Orchestrator == nil {
		os.Remove(req.InputPath)
		jsonError(w, "async processing is not enabled", http.StatusServiceUnavailable)
		return
	}

	job := pipeline.NewJob(pipeline.NewJobID(), filename, req)
	job.ContentHash = hash
	if err := s.deps.Orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/process/%s/status", job.ID),
	})
}

func (s *Server) handleProcessStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	job := s.deps.Orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	body := map[string]any{
		"job_id":     snap.ID,
		"status":     snap.Status,
		"phase":      snap.Phase,
		"filename":   snap.Filename,
		"progress":   snap.Progress,
		"created_at": snap.CreatedAt,
		"updated_at": snap.UpdatedAt,
	}
	if snap.Result != nil {
		body["result"] = newProcessResponse(*snap.Result)
	}
	writeJSON(w, http.StatusOK, body)
}

func newProcessResponse(res pipeline.Result) processResponse {
	out := processResponse{Result: res}
	if res.Success && res.OutputPath != "" {
		out.DownloadURL = "/api/files/download/" + filepath.Base(res.OutputPath)
	}
	return out
}

func validatePatterns(req pipeline.Request) error {
	section, sub := req.SectionPattern, req.SubSectionPattern
	if section == "" {
		section = pipeline.DefaultSectionPattern
	}
	if sub == "" {
		sub = pipeline.DefaultSubSectionPattern
	}
	if _, err := outline.NewDetector(section, sub); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

func (s *Server) saveUpload(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDirectory, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(s.cfg.UploadDirectory, "upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
