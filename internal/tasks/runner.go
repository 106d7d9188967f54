// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("task runner stopped")

// DefaultMaxConcurrent is the worker limit used when none is configured.
const DefaultMaxConcurrent = 8

// =============================================================================
// TASK RUNNER
// =============================================================================

// Runner executes submitted tasks on goroutines.
type Runner struct {
	queue       *Queue
	wg          sync.WaitGroup
	mu          sync.Mutex    // Orders the stopped check and wg.Add against Stop
	stopped     bool          // Set by Stop to refuse new tasks
	semaphore   chan struct{} // Limits concurrent tasks
	taskTimeout time.Duration // Default per-task timeout (0 = none)
	logger      *slog.Logger
}

// NewRunner creates a runner with DefaultMaxConcurrent workers and no default
// timeout.
func NewRunner(queue *Queue) *Runner {
	return NewRunnerWithOptions(queue, DefaultMaxConcurrent, 0)
}

// NewRunnerWithOptions creates a runner with custom settings.
// maxConcurrent: maximum number of tasks running at once
// taskTimeout: timeout for tasks that do not set their own (0 = none)
func NewRunnerWithOptions(queue *Queue, maxConcurrent int, taskTimeout time.Duration) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if queue == nil {
		queue = NewQueue(0)
	}
	return &Runner{
		queue:       queue,
		semaphore:   make(chan struct{}, maxConcurrent),
		taskTimeout: taskTimeout,
		logger:      slog.Default().With("component", "tasks"),
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Queue returns the runner's task registry.
func (r *Runner) Queue() *Queue {
	return r.queue
}

// =============================================================================
// RUNNER LIFECYCLE
// =============================================================================

// Submit starts task in the background and returns immediately. The task
// waits for a worker slot on its own goroutine.
func (r *Runner) Submit(task *Task) error {
	if task == nil || task.fn == nil {
		return errors.New("task has no function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}

	timeout := task.Timeout
	if timeout <= 0 {
		timeout = r.taskTimeout
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	task.setCancelFunc(cancel)
	r.queue.Add(task)

	r.wg.Add(1)
	go r.executeTask(ctx, cancel, task, timeout)
	return nil
}

// Cancel cancels the task with the given ID.
func (r *Runner) Cancel(id string) bool {
	return r.queue.Cancel(id)
}

// Stop refuses new tasks and waits for submitted ones to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
}

// =============================================================================
// TASK PROCESSING
// =============================================================================

// executeTask waits for a slot, runs the task and records the outcome.
func (r *Runner) executeTask(ctx context.Context, cancel context.CancelFunc, task *Task, timeout time.Duration) {
	defer r.wg.Done()
	defer cancel()

	r.semaphore <- struct{}{}
	defer func() { <-r.semaphore }()

	task.markStarted()
	r.logger.Debug("task started", "task", task.ID, "description", task.Description)

	err := runFunc(ctx, task)

	switch {
	case err == nil:
		task.finish(StatusComplete, nil)
	case errors.Is(ctx.Err(), context.Canceled):
		task.finish(StatusCanceled, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		task.finish(StatusFailed, fmt.Errorf("task timeout after %v: %w", timeout, err))
	default:
		task.finish(StatusFailed, err)
	}
	r.queue.Finished()

	if err != nil {
		r.logger.Warn("task finished with error", "task", task.ID, "description", task.Description,
			"status", task.GetStatus(), "error", err)
	} else {
		r.logger.Debug("task complete", "task", task.ID, "duration", task.Duration())
	}
}

// runFunc invokes the task function, converting a panic into an error so one
// bad task cannot take the process down.
func runFunc(ctx context.Context, task *Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.fn(ctx, task.ID)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// Execute runs task synchronously on the calling goroutine.
func Execute(ctx context.Context, task *Task) error {
	if task == nil || task.fn == nil {
		return errors.New("task has no function")
	}
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	task.setCancelFunc(cancel)
	defer cancel()

	task.markStarted()
	err := runFunc(ctx, task)
	switch {
	case err == nil:
		task.finish(StatusComplete, nil)
	case errors.Is(ctx.Err(), context.Canceled):
		task.finish(StatusCanceled, err)
	default:
		task.finish(StatusFailed, err)
	}
	return err
}
