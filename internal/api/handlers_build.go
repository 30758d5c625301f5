package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/export"
	"github.com/dgallion1/mtlgen/internal/pipeline"
	"github.com/dgallion1/mtlgen/internal/quiz"
	"github.com/go-chi/chi/v5"
)

// definitionRequest is a decoded definition body.
type definitionRequest struct {
	raw    map[string]any
	body   []byte
	source string
}

var errTooLarge = errors.New("definition too large")

// readDefinition decodes the request body as JSON, YAML or XLSX. A multipart
// upload uses the "file" field and picks the decoder from its extension;
// otherwise ?format= or the Content-Type decides.
func (s *Server) readDefinition(w http.ResponseWriter, r *http.Request) (*definitionRequest, error) {
	limit := s.cfg.MaxDefinitionBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1024*1024) // extra 1MB for form overhead

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		src    io.Reader = r.Body
		source           = "request"
		format           = formatFor(r.URL.Query().Get("format"), mediaType)
	)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()
		source = sanitizeFilename(header.Filename)
		format = definition.FormatForFile(source)
		src = file
	}

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	raw, err := definition.Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	return &definitionRequest{raw: raw, body: data, source: source}, nil
}

func formatFor(param, mediaType string) definition.Format {
	switch strings.ToLower(param) {
	case "json":
		return definition.FormatJSON
	case "yaml", "yml":
		return definition.FormatYAML
	case "xlsx":
		return definition.FormatXLSX
	}
	switch mediaType {
	case "application/json":
		return definition.FormatJSON
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return definition.FormatXLSX
	}
	return definition.FormatYAML
}

// documentTypes parses ?types=1,teachback. Empty means every type.
func documentTypes(r *http.Request) ([]definition.DocumentType, error) {
	v := strings.TrimSpace(r.URL.Query().Get("types"))
	if v == "" {
		return append([]definition.DocumentType(nil), definition.DocumentTypes...), nil
	}
	var out []definition.DocumentType
	seen := map[definition.DocumentType]bool{}
	for _, part := range strings.Split(v, ",") {
		dt, err := definition.ParseDocumentType(part)
		if err != nil {
			return nil, err
		}
		if !seen[dt] {
			seen[dt] = true
			out = append(out, dt)
		}
	}
	return out, nil
}

func (s *Server) writeReadError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	if errors.Is(err, errTooLarge) || errors.As(err, &mbe) {
		jsonError(w, fmt.Sprintf("definition exceeds max size (%d bytes)", s.cfg.MaxDefinitionBytes), http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, err := s.readDefinition(w, r)
	if err != nil {
		s.writeReadError(w, err)
		return
	}
	def, report := definition.Load(req.raw)
	resp := map[string]any{
		"valid":      report.Valid(),
		"violations": report.Violations,
		"rewrites":   report.Rewrites,
		"notices":    report.Notices,
	}
	if def != nil {
		resp["identity"] = def.Identity()
		resp["definition"] = def
	}
	code := http.StatusOK
	if !report.Valid() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	types, err := documentTypes(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := s.readDefinition(w, r)
	if err != nil {
		s.writeReadError(w, err)
		return
	}

	// Reject invalid definitions up front so callers get violations
	// synchronously; the worker validates again before rendering.
	if report := definition.Validate(req.raw); !report.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "definition invalid",
			"violations": report.Violations,
		})
		return
	}

	job := pipeline.NewJob(req.raw, types, req.source, req.body)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":         job.ID,
		"status":         pipeline.StatusQueued,
		"document_types": types,
		"content_hash":   job.ContentHash,
		"poll_url":       fmt.Sprintf("/api/build/%s/status", job.ID),
	})
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	dt, err := definition.ParseDocumentType(r.URL.Query().Get("type"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := s.readDefinition(w, r)
	if err != nil {
		s.writeReadError(w, err)
		return
	}
	def, report := definition.Load(req.raw)
	if !report.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "definition invalid",
			"violations": report.Violations,
		})
		return
	}
	page, warnings, err := s.orchestrator.Exporter().Preview(def, dt)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, wn := range warnings {
		w.Header().Add("X-Mtlgen-Warning", string(wn.Kind)+": "+wn.Message)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	req, err := s.readDefinition(w, r)
	if err != nil {
		s.writeReadError(w, err)
		return
	}
	def, report := definition.Load(req.raw)
	if !report.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "definition invalid",
			"violations": report.Violations,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": def.Identity(),
		"items":    quiz.Generate(def),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

// exportWarnings keeps the warnings of one format.
func exportWarnings(ws []export.Warning, f export.Format) []export.Warning {
	out := []export.Warning{}
	for _, w := range ws {
		if w.Format == f {
			out = append(out, w)
		}
	}
	return out
}
