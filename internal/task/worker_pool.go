package task

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs a fixed number of workers that drain the job queue and
// hand each job to the Runner. Workers exit when the queue closes or the
// pool context is cancelled; runner failures are logged, never fatal.
type WorkerPool struct {
	queue       QueueReader
	runner      Runner
	workerCount int
	logger      *slog.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewWorkerPool creates a pool of workerCount workers over the given queue.
// A non-positive workerCount falls back to 1.
func NewWorkerPool(queue QueueReader, runner Runner, workerCount int, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	return &WorkerPool{
		queue:       queue,
		runner:      runner,
		workerCount: workerCount,
		logger:      logger.With(slog.String("component", "worker_pool")),
	}
}

// Start launches the workers. It returns immediately; call Stop to shut the
// pool down and wait for in-flight jobs.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < p.workerCount; i++ {
		workerID := i
		p.group.Go(func() error {
			p.worker(ctx, workerID)
			return nil
		})
	}

	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Stop cancels the workers and blocks until all of them have returned.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.group != nil {
		_ = p.group.Wait()
	}
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	log := p.logger.With(slog.Int("worker_id", id))
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping: context cancelled")
			return
		case job, ok := <-p.queue.GetChannel():
			if !ok {
				log.Debug("worker stopping: queue closed")
				return
			}
			if err := p.runner.Run(ctx, job); err != nil {
				log.Error("execution job failed",
					"error", err,
					"execution_id", job.ExecutionID,
					"run_id", job.RunID)
			}
		}
	}
}

// NoopRunner is the placeholder Runner used until the browser-automation
// collaborator is wired in. It acknowledges jobs without changing any state;
// executions stay PENDING until the external runner reports results.
type NoopRunner struct {
	logger *slog.Logger
}

// NewNoopRunner creates a NoopRunner.
func NewNoopRunner(logger *slog.Logger) *NoopRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopRunner{logger: logger.With(slog.String("component", "noop_runner"))}
}

// Run implements Runner.
func (r *NoopRunner) Run(ctx context.Context, job ExecutionJob) error {
	r.logger.Info("execution job received",
		"execution_id", job.ExecutionID,
		"run_id", job.RunID,
		"test_id", job.TestID)
	return nil
}
