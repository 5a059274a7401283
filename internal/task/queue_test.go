package task_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob() task.ExecutionJob {
	return task.NewExecutionJob(uuid.New(), uuid.New(), uuid.New())
}

func TestQueueEnqueue(t *testing.T) {
	t.Parallel()

	t.Run("enqueued jobs come out in order", func(t *testing.T) {
		t.Parallel()

		queue := task.NewQueue(4, nil)
		first, second := newJob(), newJob()
		require.NoError(t, queue.Enqueue(first))
		require.NoError(t, queue.Enqueue(second))

		assert.Equal(t, first.ExecutionID, (<-queue.GetChannel()).ExecutionID)
		assert.Equal(t, second.ExecutionID, (<-queue.GetChannel()).ExecutionID)
	})

	t.Run("full queue rejects without blocking", func(t *testing.T) {
		t.Parallel()

		queue := task.NewQueue(1, nil)
		require.NoError(t, queue.Enqueue(newJob()))

		err := queue.Enqueue(newJob())
		assert.ErrorIs(t, err, task.ErrQueueFull)
	})

	t.Run("closed queue rejects new jobs", func(t *testing.T) {
		t.Parallel()

		queue := task.NewQueue(4, nil)
		queue.Close()
		assert.ErrorIs(t, queue.Enqueue(newJob()), task.ErrQueueClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		queue := task.NewQueue(1, nil)
		queue.Close()
		assert.NotPanics(t, queue.Close)
	})
}

// recordingRunner collects the jobs it was handed.
type recordingRunner struct {
	mu   sync.Mutex
	jobs []task.ExecutionJob
	done chan struct{}
	want int
}

func (r *recordingRunner) Run(ctx context.Context, job task.ExecutionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	if len(r.jobs) == r.want {
		close(r.done)
	}
	return nil
}

func TestWorkerPoolDrainsQueue(t *testing.T) {
	t.Parallel()

	queue := task.NewQueue(16, nil)
	runner := &recordingRunner{done: make(chan struct{}), want: 5}
	pool := task.NewWorkerPool(queue, runner, 3, nil)
	pool.Start(context.Background())
	defer pool.Stop()

	enqueued := make(map[uuid.UUID]bool, 5)
	for i := 0; i < 5; i++ {
		job := newJob()
		enqueued[job.ExecutionID] = true
		require.NoError(t, queue.Enqueue(job))
	}

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not process all jobs in time")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.jobs, 5)
	for _, job := range runner.jobs {
		assert.True(t, enqueued[job.ExecutionID], "unexpected job %s", job.ExecutionID)
	}
}

func TestWorkerPoolStopsOnQueueClose(t *testing.T) {
	t.Parallel()

	queue := task.NewQueue(4, nil)
	pool := task.NewWorkerPool(queue, task.NewNoopRunner(nil), 2, nil)
	pool.Start(context.Background())

	queue.Close()

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop after queue close")
	}
}
