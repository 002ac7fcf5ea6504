// Package jobs runs text extraction asynchronously so an HTTP request does not
// wait on the model.
package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtract runs text extraction for a session.
	JobTypeExtract JobType = "extract"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ErrJobNotFound is returned by a JobStore for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// ExtractionJob extracts transactions from free text into a session's batch.
type ExtractionJob struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`

	// Text is the user's input. It is not echoed back in job listings.
	Text string `json:"-"`

	Status JobStatus `json:"status"`

	// Filled in when the job completes.
	Outcome        string   `json:"outcome,omitempty"`
	StagingIDs     []string `json:"staging_ids,omitempty"`
	Rejected       []string `json:"rejected,omitempty"`
	Notice         string   `json:"notice,omitempty"`
	CandidateCount int      `json:"candidate_count"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`

	// BusyWaits counts attempts that found the session busy. They do not
	// use up RetryCount.
	BusyWaits int `json:"busy_waits"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ExtractionJob) GetID() string        { return j.JobID }
func (j *ExtractionJob) GetType() JobType     { return JobTypeExtract }
func (j *ExtractionJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs.
type Publisher interface {
	PublishExtraction(ctx context.Context, job *ExtractionJob) error
	Close() error
}

// Consumer runs queued jobs through a handler.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may record results on the job. A returned
// error makes the job retry unless it is wrapped with Permanent.
type JobHandler func(ctx context.Context, job *ExtractionJob) error

// JobStore keeps job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractionJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractionJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractionJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	SessionID string
	Status    JobStatus
	Limit     int
	Offset    int
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type busyError struct{ err error }

func (e *busyError) Error() string { return e.err.Error() }
func (e *busyError) Unwrap() error { return e.err }

// Busy marks err as a wait on a shared resource rather than a failure.
// Consumers requeue busy jobs without counting a retry.
func Busy(err error) error {
	if err == nil {
		return nil
	}
	return &busyError{err: err}
}

// IsBusy reports whether err was marked with Busy.
func IsBusy(err error) bool {
	var b *busyError
	return errors.As(err, &b)
}
