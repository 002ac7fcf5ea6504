package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/ledger-intake/internal/jobs"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultBufferSize = 64
	DefaultWorkers    = 4
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second

	// DefaultMaxBusyWaits bounds how long a job waits on a busy session,
	// roughly a minute with DefaultBackoff.
	DefaultMaxBusyWaits = 60
)

// Config tunes a Queue.
type Config struct {
	BufferSize int
	Workers    int
	MaxRetries int

	// Backoff is multiplied by the retry count before a job is re-enqueued.
	// Jobs that found their session busy wait a flat Backoff.
	Backoff time.Duration

	// MaxBusyWaits caps busy requeues. They do not count toward MaxRetries.
	MaxBusyWaits int
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.MaxBusyWaits <= 0 {
		c.MaxBusyWaits = DefaultMaxBusyWaits
	}
	return c
}

// Queue is a channel-backed Publisher and Consumer for a single process.
type Queue struct {
	cfg       Config
	jobChan   chan *jobs.ExtractionJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
	now       func() time.Time
}

// NewQueue creates a queue. store may be nil if job status is not needed.
func NewQueue(cfg Config, store jobs.JobStore) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		cfg:       cfg,
		jobChan:   make(chan *jobs.ExtractionJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		now:       time.Now,
	}
}

// PublishExtraction enqueues job, assigning an id and defaults where unset.
func (q *Queue) PublishExtraction(ctx context.Context, job *jobs.ExtractionJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("PublishExtraction: queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.cfg.MaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishExtraction: saving job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("PublishExtraction: queue is closed")
	}
}

// Start launches the worker goroutines. Jobs run until ctx is cancelled or
// Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("Start: queue is closed")
	}

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs one attempt and schedules a retry on a transient failure.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExtractionJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	job.Status = jobs.JobStatusRunning
	started := q.now()
	job.StartedAt = &started
	q.save(ctx, job)

	err := handler(ctx, job)

	completed := q.now()
	job.CompletedAt = &completed

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case jobs.IsBusy(err) && job.BusyWaits < q.cfg.MaxBusyWaits:
		job.Error = err.Error()
		job.BusyWaits++
		job.Status = jobs.JobStatusRetrying
		q.requeue(ctx, job, q.cfg.Backoff)
	case !jobs.IsPermanent(err) && !jobs.IsBusy(err) && job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		q.requeue(ctx, job, time.Duration(job.RetryCount)*q.cfg.Backoff)
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Warn().Err(err).Str("job_id", job.JobID).Int("retries", job.RetryCount).Msg("job failed")
	}

	q.save(ctx, job)
}

// requeue publishes a pending copy of job after delay.
func (q *Queue) requeue(ctx context.Context, job *jobs.ExtractionJob, delay time.Duration) {
	retry := *job
	retry.Status = jobs.JobStatusPending
	retry.StartedAt = nil
	retry.CompletedAt = nil
	time.AfterFunc(delay, func() {
		if err := q.PublishExtraction(ctx, &retry); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("job_id", retry.JobID).Msg("failed to re-enqueue job")
		}
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.ExtractionJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", job.JobID).Msg("failed to save job state")
	}
}

// Stop closes the queue and waits for in-flight jobs, or for ctx.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
