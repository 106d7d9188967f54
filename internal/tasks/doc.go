// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks runs background work off the interactive loop.
//
// Each user action (send a prompt, refresh analytics, look up suggestions)
// becomes one Task executed on its own goroutine. A semaphore caps how many
// run at once; Submit itself never blocks.
//
// # Key Types
//
//   - Task: a unit of work with an ID, status, timeout and cancel handle
//   - Queue: thread-safe registry of queued, running and finished tasks
//   - Runner: executes tasks with a concurrency limit and per-task timeout
//
// # Usage
//
//	runner := tasks.NewRunner(tasks.NewQueue(50))
//	task := tasks.NewTask("chat", 2*time.Minute, func(ctx context.Context, id string) error {
//	    return doWork(ctx)
//	})
//	if err := runner.Submit(task); err != nil {
//	    return err
//	}
//	runner.Cancel(task.ID) // optional
//	runner.Stop()          // waits for in-flight tasks
//
// # Cancellation
//
// The task context is created at submission. A task canceled before it
// starts still runs its function, with an already-canceled context, so the
// function can report the cancellation through its usual channel.
package tasks
