package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgallion1/mtlgen/internal/config"
	"github.com/dgallion1/mtlgen/internal/export"
	"github.com/dgallion1/mtlgen/internal/stats"
)

// ErrStopped is returned by Submit once the pipeline is shutting down.
var ErrStopped = errors.New("pipeline stopped")

// Orchestrator manages the generation job queue.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	exporter *export.Exporter
	stats    *stats.Window
	log      *slog.Logger
	cfg      config.Config

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, exporter *export.Exporter, st *stats.Window, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		exporter: exporter,
		stats:    st,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.exporter, o.stats, o.cfg.OutputDir, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.cleanup()
			}
		}
	}()
}

// cleanup evicts expired jobs along with their artifact directories.
func (o *Orchestrator) cleanup() {
	for _, id := range o.jobs.Cleanup() {
		if err := os.RemoveAll(JobDir(o.cfg.OutputDir, id)); err != nil {
			o.log.Warn("artifact cleanup failed", "job_id", id, "error", err)
		}
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// DeleteJob forgets a job and removes its artifacts. Jobs still queued or
// rendering cannot be deleted.
func (o *Orchestrator) DeleteJob(id string) (bool, error) {
	job := o.jobs.Get(id)
	if job == nil {
		return false, nil
	}
	switch job.Snapshot().Status {
	case StatusQueued, StatusValidating, StatusRendering:
		return true, fmt.Errorf("job %s is still running", id)
	}
	o.jobs.Delete(id)
	if err := os.RemoveAll(JobDir(o.cfg.OutputDir, id)); err != nil {
		return true, fmt.Errorf("remove artifacts: %w", err)
	}
	return true, nil
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the generation latency window.
func (o *Orchestrator) Stats() *stats.Window {
	return o.stats
}

// Exporter returns the exporter for synchronous use by API handlers.
func (o *Orchestrator) Exporter() *export.Exporter {
	return o.exporter
}
