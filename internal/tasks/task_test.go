// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func noop(context.Context, string) error { return nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewTask(t *testing.T) {
	task := NewTask("chat", time.Minute, noop)

	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.Description != "chat" {
		t.Errorf("Expected description 'chat', got '%s'", task.Description)
	}
	if task.Timeout != time.Minute {
		t.Errorf("Expected timeout 1m, got %v", task.Timeout)
	}
	if task.GetStatus() != StatusQueued {
		t.Errorf("Expected status Queued, got %s", task.GetStatus())
	}

	other := NewTask("chat", 0, noop)
	if other.ID == task.ID {
		t.Error("Task IDs should be unique")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusComplete, StatusFailed, StatusCanceled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	task := NewTask("Test", 0, noop)
	if task.Duration() != 0 {
		t.Error("Unstarted task should have zero duration")
	}
}

func TestTaskCancel(t *testing.T) {
	task := NewTask("Test", 0, noop)
	task.markStarted()

	if !task.Cancel() {
		t.Error("Cancel should succeed for running task")
	}
	if task.GetStatus() != StatusCanceled {
		t.Error("Task should be canceled")
	}
	if task.Cancel() {
		t.Error("Second cancel should fail")
	}
}

func TestQueueOperations(t *testing.T) {
	queue := NewQueue(10)

	task1 := NewTask("Task 1", 0, noop)
	task2 := NewTask("Task 2", 0, noop)
	queue.Add(task1)
	queue.Add(task2)

	if queue.Count() != 2 {
		t.Errorf("Expected 2 tasks, got %d", queue.Count())
	}

	retrieved := queue.Get(task1.ID)
	if retrieved == nil {
		t.Fatal("Should retrieve task by ID")
	}
	if retrieved.Description != "Task 1" {
		t.Errorf("Expected 'Task 1', got '%s'", retrieved.Description)
	}
	if queue.Get("missing") != nil {
		t.Error("Unknown ID should return nil")
	}
}

func TestQueueHistoryLimit(t *testing.T) {
	queue := NewQueue(2)
	for i := 0; i < 5; i++ {
		task := NewTask("t", 0, noop)
		queue.Add(task)
		task.markStarted()
		task.finish(StatusComplete, nil)
		queue.Finished()
	}

	if got := len(queue.Completed()); got != 2 {
		t.Errorf("Expected 2 finished tasks kept, got %d", got)
	}
}

func TestRunnerSubmitRunsTask(t *testing.T) {
	runner := NewRunner(NewQueue(10))
	defer runner.Stop()

	var gotID atomic.Value
	task := NewTask("work", 0, func(_ context.Context, id string) error {
		gotID.Store(id)
		return nil
	})
	if err := runner.Submit(task); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitFor(t, task.IsComplete)
	if task.GetStatus() != StatusComplete {
		t.Errorf("Expected Complete, got %s", task.GetStatus())
	}
	if gotID.Load() != task.ID {
		t.Errorf("Func received id %v, want %s", gotID.Load(), task.ID)
	}
}

func TestRunnerRecordsFailure(t *testing.T) {
	runner := NewRunner(nil)
	defer runner.Stop()

	task := NewTask("fail", 0, func(context.Context, string) error {
		return errors.New("model unreachable")
	})
	if err := runner.Submit(task); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitFor(t, task.IsComplete)
	if task.GetStatus() != StatusFailed {
		t.Errorf("Expected Failed, got %s", task.GetStatus())
	}
	if task.GetError() != "model unreachable" {
		t.Errorf("Unexpected error text %q", task.GetError())
	}
}

func TestRunnerTimeout(t *testing.T) {
	runner := NewRunner(nil)
	defer runner.Stop()

	task := NewTask("slow", 20*time.Millisecond, func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := runner.Submit(task); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitFor(t, task.IsComplete)
	if task.GetStatus() != StatusFailed {
		t.Errorf("Expected Failed after timeout, got %s", task.GetStatus())
	}
}

func TestRunnerCancel(t *testing.T) {
	runner := NewRunner(nil)
	defer runner.Stop()

	started := make(chan struct{})
	var sawCancel atomic.Bool
	task := NewTask("cancel me", 0, func(ctx context.Context, _ string) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(errors.Is(ctx.Err(), context.Canceled))
		return ctx.Err()
	})
	if err := runner.Submit(task); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	<-started
	if !runner.Cancel(task.ID) {
		t.Fatal("Cancel should succeed")
	}
	waitFor(t, func() bool { return task.Duration() > 0 && !task.Clone().EndTime.IsZero() })
	if !sawCancel.Load() {
		t.Error("Func should observe context.Canceled")
	}
	if task.GetStatus() != StatusCanceled {
		t.Errorf("Expected Canceled, got %s", task.GetStatus())
	}
}

// A task canceled while waiting for a slot still runs, with a dead context.
func TestRunnerCancelWhileQueued(t *testing.T) {
	runner := NewRunnerWithOptions(NewQueue(0), 1, 0)
	defer runner.Stop()

	release := make(chan struct{})
	blocker := NewTask("blocker", 0, func(context.Context, string) error {
		<-release
		return nil
	})
	var ranWithErr atomic.Value
	queued := NewTask("queued", 0, func(ctx context.Context, _ string) error {
		ranWithErr.Store(ctx.Err())
		return ctx.Err()
	})

	if err := runner.Submit(blocker); err != nil {
		t.Fatal(err)
	}
	waitFor(t, blocker.IsRunning)
	if err := runner.Submit(queued); err != nil {
		t.Fatal(err)
	}
	if !runner.Cancel(queued.ID) {
		t.Fatal("Cancel of a queued task should succeed")
	}
	close(release)

	waitFor(t, func() bool { return ranWithErr.Load() != nil })
	if !errors.Is(ranWithErr.Load().(error), context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", ranWithErr.Load())
	}
}

func TestRunnerConcurrencyLimit(t *testing.T) {
	const limit = 2
	runner := NewRunnerWithOptions(nil, limit, 0)

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	for i := 0; i < 6; i++ {
		task := NewTask("work", 0, func(context.Context, string) error {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return nil
		})
		if err := runner.Submit(task); err != nil {
			t.Fatal(err)
		}
	}
	runner.Stop()

	if peak > limit {
		t.Errorf("Peak concurrency %d exceeds limit %d", peak, limit)
	}
}

func TestRunnerPanicBecomesFailure(t *testing.T) {
	runner := NewRunner(nil)
	task := NewTask("panics", 0, func(context.Context, string) error {
		panic("boom")
	})
	if err := runner.Submit(task); err != nil {
		t.Fatal(err)
	}
	runner.Stop()

	if task.GetStatus() != StatusFailed {
		t.Errorf("Expected Failed, got %s", task.GetStatus())
	}
}

func TestRunnerRejectsAfterStop(t *testing.T) {
	runner := NewRunner(nil)
	runner.Stop()

	if err := runner.Submit(NewTask("late", 0, noop)); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestRunnerStopRacingSubmit(t *testing.T) {
	runner := NewRunnerWithOptions(nil, 2, 0)

	var ran atomic.Int32
	work := func(context.Context, string) error {
		ran.Add(1)
		return nil
	}

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := runner.Submit(NewTask("work", 0, work)); err != nil {
					if !errors.Is(err, ErrStopped) {
						t.Errorf("Submit() unexpected error: %v", err)
					}
					return
				}
				accepted.Add(1)
			}
		}()
	}

	runner.Stop()
	stoppedAt := ran.Load()
	wg.Wait()

	// Stop waits for everything accepted before it, and nothing after it is accepted.
	if got := accepted.Load(); got != stoppedAt {
		t.Errorf("accepted %d tasks, %d ran before Stop returned", got, stoppedAt)
	}
}

func TestExecute(t *testing.T) {
	task := NewTask("sync", 0, noop)
	if err := Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if task.GetStatus() != StatusComplete {
		t.Errorf("Expected Complete, got %s", task.GetStatus())
	}
}
