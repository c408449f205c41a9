package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a document job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusExtracting  JobStatus = "extracting"
	StatusSummarizing JobStatus = "summarizing"
	StatusExporting   JobStatus = "exporting"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Job tracks the state of a single asynchronous document run.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash,omitempty"`

	Progress JobProgress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	request Request
	result  *Result
	errors  []string
}

// JobProgress tracks processing progress.
type JobProgress struct {
	TotalSections        int      `json:"total_sections"`
	TotalSubSections     int      `json:"total_subsections"`
	SubSectionsProcessed int      `json:"subsections_processed"`
	SummariesSucceeded   int      `json:"summaries_succeeded"`
	Errors               []string `json:"errors"`
}

// NewJob creates a queued job for req. filename is the name the document
// was uploaded under.
func NewJob(id, filename string, req Request) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
		request:   req,
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

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl && job.Status.Done()
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Done reports whether the status is terminal.
func (st JobStatus) Done() bool {
	return st == StatusCompleted || st == StatusFailed
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
	j.addError(err)
	j.UpdatedAt = time.Now()
}

func (j *Job) addError(err string) {
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
}

// ApplyProgress records a progress update from the processor.
func (j *Job) ApplyProgress(p Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if p.Stage != "" && p.Stage != j.Status {
		j.Status = p.Stage
		j.Phase = string(p.Stage)
	}
	j.Progress.TotalSections = p.TotalSections
	j.Progress.TotalSubSections = p.TotalSubSections
	j.Progress.SubSectionsProcessed = p.Processed
	j.Progress.SummariesSucceeded = p.Succeeded
	j.UpdatedAt = time.Now()
}

// Finish stores the run result and moves the job to its terminal status.
func (j *Job) Finish(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &res
	if res.Success {
		j.Status = StatusCompleted
		j.Phase = "done"
	} else {
		j.Status = StatusFailed
		j.Phase = "failed"
		if res.Error != "" {
			j.addError(res.Error)
		}
	}
	if res.Statistics != nil {
		j.Progress.SummariesSucceeded = res.Statistics.SuccessfulSummaries
	}
	j.UpdatedAt = time.Now()
}

// Request returns the run parameters.
func (j *Job) Request() Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.request
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string      `json:"job_id"`
	Status      JobStatus   `json:"status"`
	Phase       string      `json:"phase"`
	Filename    string      `json:"filename"`
	Title       string      `json:"title"`
	ContentHash string      `json:"content_hash,omitempty"`
	Progress    JobProgress `json:"progress"`
	Result      *Result     `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	snap := JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.request.Title,
		ContentHash: j.ContentHash,
		Progress: JobProgress{
			TotalSections:        j.Progress.TotalSections,
			TotalSubSections:     j.Progress.TotalSubSections,
			SubSectionsProcessed: j.Progress.SubSectionsProcessed,
			SummariesSucceeded:   j.Progress.SummariesSucceeded,
			Errors:               errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.result != nil {
		res := *j.result
		snap.Result = &res
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
