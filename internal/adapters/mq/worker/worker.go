// Package worker defines worker contracts for asynchronous evidence
// re-assignment.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/veristep/veristep/internal/adapters/mq/queue"
	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/pkg/logger"
	"github.com/veristep/veristep/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second

	// defaultMaxAttempts bounds queue-level retries when no validator
	// is currently eligible.
	defaultMaxAttempts = 3
)

// Assigner finds a new validator for evidence.
type Assigner interface {
	Assign(ctx context.Context, evidenceID string) (model.Assignment, error)
}

// Escalator flags evidence for manual review when re-assignment gives up.
type Escalator interface {
	Escalate(ctx context.Context, evidenceID string) (model.Evidence, error)
}

// Queue defines how workers receive and requeue jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
	Enqueue(ctx context.Context, j queue.Job) bool
}

// Worker processes re-assignment jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing re-assignment jobs.
type InMemoryWorker struct {
	queue     Queue
	assigner  Assigner
	escalator Escalator
	name      string

	maxAttempts int

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, assigner Assigner, escalator Escalator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		assigner:    assigner,
		escalator:   escalator,
		name:        "worker", // default name
		maxAttempts: defaultMaxAttempts,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob handles a single re-assignment job.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	a, err := w.assigner.Assign(ctx, job.EvidenceID)
	if err == nil {
		w.logger.Info(ctx, "evidence re-assigned",
			logger.String("evidenceID", job.EvidenceID),
			logger.String("validatorID", a.ValidatorID),
			logger.Int("attempt", job.Attempt),
		)
		return nil
	}

	// Evidence already decided or removed: the job is moot.
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidState) {
		w.logger.Debug(ctx, "dropping stale re-assignment job",
			logger.String("evidenceID", job.EvidenceID),
			logger.Error(err),
		)
		return nil
	}

	if !errors.Is(err, model.ErrConflict) {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "assign_error")
		return fmt.Errorf("re-assignment of evidence %s failed: %w", job.EvidenceID, err)
	}

	// No validator currently eligible. Retry while attempts remain,
	// otherwise hand off to manual review.
	if job.Attempt < w.maxAttempts {
		metrics.RecordReassignmentAttempt()
		retried := w.queue.Enqueue(ctx, queue.Job{
			EvidenceID: job.EvidenceID,
			Attempt:    job.Attempt + 1,
			EnqueuedAt: time.Now(),
		})
		if !retried {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "requeue_failed")
			return fmt.Errorf("requeue of evidence %s failed: queue full", job.EvidenceID)
		}
		return nil
	}

	if w.escalator != nil {
		if _, err := w.escalator.Escalate(ctx, job.EvidenceID); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "escalation_error")
			return fmt.Errorf("escalation of evidence %s failed: %w", job.EvidenceID, err)
		}
		w.logger.Warn(ctx, "evidence escalated for manual review",
			logger.String("evidenceID", job.EvidenceID),
			logger.Int("attempts", job.Attempt),
		)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	assigner  Assigner
	escalator Escalator

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, assigner Assigner, escalator Escalator, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		assigner:  assigner,
		escalator: escalator,
		logger:    logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			assigner,
			escalator,
			append(opts, WithName("worker-"+strconv.Itoa(i)))...,
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()

	for _, worker := range p.workers {
		_ = worker.Shutdown(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
