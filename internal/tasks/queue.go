// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import "sync"

// Queue is the runner's registry of submitted tasks. Finished tasks are kept
// for inspection up to maxHistory (0 keeps all), oldest dropped first.
type Queue struct {
	mu         sync.RWMutex
	tasks      []*Task
	maxHistory int
}

func NewQueue(maxHistory int) *Queue {
	return &Queue{maxHistory: maxHistory}
}

func (q *Queue) Add(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// Get returns a copy of the task with id, or nil.
func (q *Queue) Get(id string) *Task {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if task := q.findLocked(id); task != nil {
		return task.Clone()
	}
	return nil
}

// Cancel cancels the unfinished task with id.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task := q.findLocked(id); task != nil {
		return task.Cancel()
	}
	return false
}

// Finished trims history; the runner calls it whenever a task ends.
func (q *Queue) Finished() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxHistory <= 0 {
		return
	}

	done := 0
	for _, task := range q.tasks {
		if task.IsComplete() {
			done++
		}
	}
	drop := done - q.maxHistory
	if drop <= 0 {
		return
	}

	kept := q.tasks[:0]
	for _, task := range q.tasks {
		if drop > 0 && task.IsComplete() {
			drop--
			continue
		}
		kept = append(kept, task)
	}
	clear(q.tasks[len(kept):])
	q.tasks = kept
}

// Completed returns copies of the finished tasks still in history.
func (q *Queue) Completed() []*Task {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []*Task
	for _, task := range q.tasks {
		if task.IsComplete() {
			out = append(out, task.Clone())
		}
	}
	return out
}

func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

func (q *Queue) findLocked(id string) *Task {
	for _, task := range q.tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}
