package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/export"
	"github.com/dgallion1/mtlgen/internal/stats"
)

// Worker processes a single generation job.
type Worker struct {
	exporter  *export.Exporter
	stats     *stats.Window
	outputDir string
	log       *slog.Logger
}

func NewWorker(exporter *export.Exporter, st *stats.Window, outputDir string, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		exporter:  exporter,
		stats:     st,
		outputDir: outputDir,
		log:       log,
	}
}

// JobDir is where a job's artifacts are written.
func JobDir(outputDir, jobID string) string {
	return filepath.Join(outputDir, jobID)
}

// Process validates the job's definition and builds every requested
// document type into the job's output directory.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source)

	// Phase 1: Validate
	job.SetStatus(StatusValidating, "validating")
	def, report := definition.Load(job.Raw())
	for _, rw := range report.Rewrites {
		log.Debug("legacy key rewritten", "from", rw.From, "to", rw.To)
	}
	for _, n := range report.Notices {
		log.Warn("definition notice", "notice", n)
	}
	if !report.Valid() {
		log.Error("definition invalid", "violations", len(report.Violations))
		job.SetInvalid(report.Violations)
		for _, v := range report.Violations {
			job.AddError(fmt.Sprintf("%s: %s", v.Field, v.Message))
		}
		job.SetStatus(StatusFailed, "validating")
		return
	}
	job.SetIdentity(def.Identity())
	log = log.With("identity", def.Identity())

	// Phase 2: Render and write each document type.
	dir := JobDir(w.outputDir, job.ID)
	for _, dt := range job.DocumentTypes {
		if ctx.Err() != nil {
			job.AddFailure(dt, ctx.Err())
			continue
		}
		job.SetStatus(StatusRendering, dt.String())
		start := time.Now()
		res, err := w.exporter.Build(ctx, def, dt, dir)
		elapsed := time.Since(start)
		if err != nil {
			log.Error("build failed", "document_type", dt.String(), "error", err)
			job.AddFailure(dt, err)
			w.record(dt, elapsed, true, 0)
			continue
		}
		job.AddResult(res)
		w.record(dt, elapsed, false, len(res.Warnings))
		log.Info("build complete",
			"document_type", dt.String(),
			"run_id", res.RunID,
			"artifacts", len(res.Artifacts),
			"warnings", len(res.Warnings),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	snap := job.Snapshot()
	switch {
	case snap.Progress.TypesFailed == 0:
		job.SetStatus(StatusCompleted, "done")
	case snap.Progress.TypesBuilt > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "rendering")
	}
}

func (w *Worker) record(dt definition.DocumentType, d time.Duration, failed bool, warnings int) {
	if w.stats != nil {
		w.stats.Record(dt.String(), d, failed, warnings)
	}
}
