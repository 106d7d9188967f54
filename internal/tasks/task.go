// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is where a task is in its lifecycle:
// Queued -> Running -> Complete | Failed | Canceled, or Queued -> Canceled.
type Status string

const (
	StatusQueued   Status = "Queued"
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed" // fn returned an error or the deadline passed
	StatusCanceled Status = "Canceled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCanceled
}

// Func is the work a task performs. id is the owning task's ID; the
// orchestrator tags every result it publishes with it.
type Func func(ctx context.Context, id string) error

// Task is one submitted unit of work: a chat request, a related-conversation
// lookup or an analytics refresh.
type Task struct {
	ID          string
	Description string        // "chat", "retrieval", "analytics"
	Timeout     time.Duration // measured from submission; 0 uses the runner default

	Status    Status
	StartTime time.Time
	EndTime   time.Time
	Error     string

	fn     Func
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewTask creates a queued task running fn under a fresh UUID.
func NewTask(description string, timeout time.Duration, fn Func) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		Timeout:     timeout,
		Status:      StatusQueued,
		fn:          fn,
	}
}

func (t *Task) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

func (t *Task) GetError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// IsRunning reports whether a worker is executing the task.
func (t *Task) IsRunning() bool {
	return t.GetStatus() == StatusRunning
}

// IsComplete reports whether the task reached a terminal status.
func (t *Task) IsComplete() bool {
	return t.GetStatus().IsTerminal()
}

// markStarted records the start time. A task canceled while it waited for
// a slot stays canceled.
func (t *Task) markStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.StartTime = time.Now()
	if t.Status == StatusQueued {
		t.Status = StatusRunning
	}
}

func (t *Task) finish(status Status, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusCanceled {
		t.Status = status
	}
	if err != nil {
		t.Error = err.Error()
	}
	t.EndTime = time.Now()
}

func (t *Task) setCancelFunc(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = cancel
}

// Cancel stops an unfinished task. It reports false once the task has
// reached a terminal status.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status.IsTerminal() {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.Status = StatusCanceled
	return true
}

// Duration is the run time so far, or the total once finished. Zero until
// the task starts.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch {
	case t.StartTime.IsZero():
		return 0
	case t.EndTime.IsZero():
		return time.Since(t.StartTime)
	default:
		return t.EndTime.Sub(t.StartTime)
	}
}

// Clone copies the exported fields for callers outside the runner.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &Task{
		ID:          t.ID,
		Description: t.Description,
		Timeout:     t.Timeout,
		Status:      t.Status,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Error:       t.Error,
	}
}
