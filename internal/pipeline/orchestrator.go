package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DocumentProcessor runs one document to completion.
type DocumentProcessor interface {
	Process(ctx context.Context, req Request, progress ProgressFunc) Result
}

// OrchestratorConfig sizes the job queue and worker pool.
type OrchestratorConfig struct {
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration
}

// Orchestrator runs queued document jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	proc  DocumentProcessor
	log   *slog.Logger
	cfg   OrchestratorConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex // guards stopped and sends on queue
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg OrchestratorConfig, proc DocumentProcessor, log *slog.Logger) *Orchestrator {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize < 1 {
		cfg.MaxQueueSize = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		proc:  proc,
		log:   log,
		cfg:   cfg,
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
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.run(workerCtx, job)
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
				o.jobs.Cleanup()
			}
		}
	}()
}

func (o *Orchestrator) run(ctx context.Context, job *Job) {
	log := o.log.With("job_id", job.ID, "filename", job.Filename)
	req := job.Request()

	log.Info("job started")
	res := o.proc.Process(ctx, req, job.ApplyProgress)
	if err := os.Remove(req.InputPath); err != nil && !os.IsNotExist(err) {
		log.Warn("remove uploaded input", "path", req.InputPath, "error", err)
		job.AddError(fmt.Sprintf("remove uploaded input: %v", err))
	}
	job.Finish(res)
	log.Info("job finished", "success", res.Success, "status", job.Snapshot().Status)
}

// Stop gracefully shuts down the pipeline. Later submissions are rejected.
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

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("orchestrator is stopped")

// Submit queues a job. The job's input file belongs to the orchestrator
// from here on and is deleted once the job has run.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		job.Finish(Result{Success: false, Message: "Document processing failed", Error: ErrStopped.Error()})
		os.Remove(job.Request().InputPath)
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.Finish(Result{Success: false, Message: "Document processing failed", Error: "job queue is full"})
		os.Remove(job.Request().InputPath)
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// JobCount returns the number of jobs still tracked, finished ones included
// until they expire.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
