package api

import (
	"net/http"
	"os"
	"time"

	"github.com/dgallion1/mtlgen/internal/export"
	"github.com/go-chi/chi/v5"
)

var contentTypes = map[export.Format]string{
	export.FormatMarkup: "text/markdown; charset=utf-8",
	export.FormatBinary: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	export.FormatPrint:  "application/pdf",
}

// handleListArtifacts lists the artifacts a job has written so far.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	items := make([]map[string]any, 0, len(snap.Artifacts))
	for _, a := range snap.Artifacts {
		items = append(items, map[string]any{
			"name":     a.Name,
			"format":   a.Format,
			"size":     a.Size,
			"url":      "/api/build/" + snap.ID + "/artifacts/" + a.Name,
			"warnings": exportWarnings(snap.Warnings, a.Format),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    snap.ID,
		"status":    snap.Status,
		"artifacts": items,
	})
}

// handleDownloadArtifact streams one artifact. Only names recorded on the
// job are served.
func (s *Server) handleDownloadArtifact(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	a, ok := job.Artifact(chi.URLParam(r, "name"))
	if !ok {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}
	f, err := os.Open(a.Path)
	if err != nil {
		s.log.Error("artifact open failed", "job_id", job.ID, "path", a.Path, "error", err)
		jsonError(w, "artifact unavailable", http.StatusGone)
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if fi, err := f.Stat(); err == nil {
		modTime = fi.ModTime()
	}
	w.Header().Set("Content-Type", contentTypes[a.Format])
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Name+`"`)
	http.ServeContent(w, r, a.Name, modTime, f)
}

// handleDeleteJob drops a finished job and its artifacts.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	found, err := s.orchestrator.DeleteJob(jobID)
	if !found {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "deleted": true})
}
