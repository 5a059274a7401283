// Package service holds the orchestration layer between HTTP handlers and
// stores for flows that span multiple aggregates.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/platform/logger"
	"github.com/qaforge/qaforge/internal/store"
	"github.com/qaforge/qaforge/internal/task"
)

// RunLauncher creates runs with their PENDING executions and enqueues one job
// per execution. It is shared by the run endpoint and webhook ingestion.
type RunLauncher struct {
	runs   store.RunStore
	tests  store.TestStore
	queue  task.QueueWriter
	logger *slog.Logger
}

// NewRunLauncher creates a RunLauncher with the given dependencies.
func NewRunLauncher(runs store.RunStore, tests store.TestStore, queue task.QueueWriter, logger *slog.Logger) *RunLauncher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunLauncher{
		runs:   runs,
		tests:  tests,
		queue:  queue,
		logger: logger.With(slog.String("component", "run_launcher")),
	}
}

// Launch verifies the referenced tests, persists the run and its executions
// atomically, and enqueues execution jobs. A full or closed queue does not
// fail the launch: the executions stay PENDING and are picked up when the
// queue drains or on operator retry.
func (l *RunLauncher) Launch(ctx context.Context, projectID uuid.UUID, name, runType string, testIDs []uuid.UUID, triggeredBy *uuid.UUID) (*domain.Run, []*domain.Execution, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	for _, testID := range testIDs {
		test, err := l.tests.GetByID(ctx, testID)
		if err != nil {
			return nil, nil, err
		}
		if test.ProjectID != projectID {
			return nil, nil, fmt.Errorf("%w: test %s belongs to another project", store.ErrInvalidEntity, testID)
		}
	}

	run, executions, err := domain.NewRun(projectID, name, runType, testIDs, triggeredBy)
	if err != nil {
		return nil, nil, err
	}

	if err := l.runs.CreateWithExecutions(ctx, run, executions); err != nil {
		return nil, nil, err
	}

	enqueued := 0
	for _, execution := range executions {
		job := task.NewExecutionJob(execution.ID, run.ID, execution.TestID)
		if err := l.queue.Enqueue(job); err != nil {
			log.Warn("failed to enqueue execution job, left pending",
				"error", err,
				"execution_id", execution.ID,
				"run_id", run.ID)
			continue
		}
		enqueued++
	}

	log.Info("run launched",
		"run_id", run.ID,
		"project_id", projectID,
		"executions", len(executions),
		"enqueued", enqueued)

	return run, executions, nil
}
