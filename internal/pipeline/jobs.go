package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/export"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusValidating JobStatus = "validating"
	StatusRendering  JobStatus = "rendering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Job tracks the generation of one definition into one or more document types.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Identity string `json:"identity"`
	Source   string `json:"source"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	DocumentTypes []definition.DocumentType `json:"document_types"`
	Progress      Progress                  `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	raw        map[string]any
	violations []definition.Violation
	errors     []string
	artifacts  []export.Artifact
	warnings   []export.Warning
	runIDs     []string
}

// Progress tracks how many document types have been built.
type Progress struct {
	TotalTypes  int      `json:"total_types"`
	TypesBuilt  int      `json:"types_built"`
	TypesFailed int      `json:"types_failed"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job for a decoded definition. The content hash is
// taken over the request body so resubmissions can be correlated.
func NewJob(raw map[string]any, types []definition.DocumentType, source string, body []byte) *Job {
	now := time.Now()
	return &Job{
		ID:            uuid.NewString(),
		Source:        source,
		Status:        StatusQueued,
		Phase:         "queued",
		DocumentTypes: append([]definition.DocumentType(nil), types...),
		Progress:      Progress{TotalTypes: len(types)},
		ContentHash:   ContentHashHex(body),
		CreatedAt:     now,
		UpdatedAt:     now,
		raw:           raw,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Delete removes a job and reports whether it existed.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	return ok
}

// Cleanup removes expired jobs and returns their IDs so callers can drop
// their artifacts.
func (s *JobStore) Cleanup() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired []string
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetInvalid records the violations that stopped generation.
func (j *Job) SetInvalid(violations []definition.Violation) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.violations = append([]definition.Violation(nil), violations...)
	j.UpdatedAt = time.Now()
}

// SetIdentity records the definition identity once it has loaded.
func (j *Job) SetIdentity(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Identity = id
	j.UpdatedAt = time.Now()
}

// AddResult records a finished build of one document type.
func (j *Job) AddResult(res *export.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TypesBuilt++
	j.runIDs = append(j.runIDs, res.RunID)
	for _, a := range res.Artifacts {
		a.Data = nil
		j.artifacts = append(j.artifacts, a)
	}
	j.warnings = append(j.warnings, res.Warnings...)
	j.UpdatedAt = time.Now()
}

// AddFailure records a document type whose build produced nothing.
func (j *Job) AddFailure(dt definition.DocumentType, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TypesFailed++
	j.errors = append(j.errors, fmt.Sprintf("%s: %s", dt, err))
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Raw returns the decoded definition input.
func (j *Job) Raw() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.raw
}

// Artifact finds a written artifact by file name.
func (j *Job) Artifact(name string) (export.Artifact, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, a := range j.artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return export.Artifact{}, false
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID            string                    `json:"job_id"`
	Identity      string                    `json:"identity"`
	Source        string                    `json:"source"`
	Status        JobStatus                 `json:"status"`
	Phase         string                    `json:"phase"`
	DocumentTypes []definition.DocumentType `json:"document_types"`
	Progress      Progress                  `json:"progress"`
	RunIDs        []string                  `json:"run_ids"`
	Artifacts     []export.Artifact         `json:"artifacts"`
	Warnings      []export.Warning          `json:"warnings"`
	Violations    []definition.Violation    `json:"violations"`
	ContentHash   string                    `json:"content_hash"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:            j.ID,
		Identity:      j.Identity,
		Source:        j.Source,
		Status:        j.Status,
		Phase:         j.Phase,
		DocumentTypes: append([]definition.DocumentType{}, j.DocumentTypes...),
		Progress: Progress{
			TotalTypes:  j.Progress.TotalTypes,
			TypesBuilt:  j.Progress.TypesBuilt,
			TypesFailed: j.Progress.TypesFailed,
			Errors:      errs,
		},
		RunIDs:      append([]string{}, j.runIDs...),
		Artifacts:   append([]export.Artifact{}, j.artifacts...),
		Warnings:    append([]export.Warning{}, j.warnings...),
		Violations:  append([]definition.Violation{}, j.violations...),
		ContentHash: j.ContentHash,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
