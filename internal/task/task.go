// Package task provides the in-process job queue and worker pool behind the
// "create PENDING records and return" execution model. Handlers enqueue one
// job per execution; workers hand jobs to a Runner, the seam where the real
// browser-automation collaborator plugs in.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExecutionJob references one pending execution to be carried out.
type ExecutionJob struct {
	ExecutionID uuid.UUID
	RunID       uuid.UUID
	TestID      uuid.UUID
	EnqueuedAt  time.Time
}

// NewExecutionJob builds a job for the given execution.
func NewExecutionJob(executionID, runID, testID uuid.UUID) ExecutionJob {
	return ExecutionJob{
		ExecutionID: executionID,
		RunID:       runID,
		TestID:      testID,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// QueueReader provides read-only access to the job channel, allowing workers
// to consume jobs without the ability to enqueue.
type QueueReader interface {
	// GetChannel returns a read-only channel for consuming jobs.
	GetChannel() <-chan ExecutionJob
}

// QueueWriter provides write access to the job queue, allowing handlers to
// enqueue executions for processing.
type QueueWriter interface {
	// Enqueue adds a job to the queue.
	// Returns an error if the queue is full or closed.
	Enqueue(job ExecutionJob) error

	// Close closes the queue, preventing further submission.
	Close()
}

// Runner executes one job. The production implementation is an external
// collaborator; NoopRunner stands in until it is wired.
type Runner interface {
	Run(ctx context.Context, job ExecutionJob) error
}
