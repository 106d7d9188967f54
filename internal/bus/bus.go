// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bus

import "sync"

// Bus is a mutex-guarded FIFO of results. The zero value is ready to use.
type Bus struct {
	mu    sync.Mutex
	queue []Result
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Post appends results in order. A multi-result post is contiguous in the
// queue.
func (b *Bus) Post(results ...Result) {
	if len(results) == 0 {
		return
	}
	b.mu.Lock()
	b.queue = append(b.queue, results...)
	b.mu.Unlock()
}

// TryDrain removes and returns everything queued without blocking. It reports
// false when a producer holds the lock; the caller should retry later.
func (b *Bus) TryDrain() ([]Result, bool) {
	if !b.mu.TryLock() {
		return nil, false
	}
	defer b.mu.Unlock()
	return b.takeLocked(), true
}

// Drain is the blocking form of TryDrain.
func (b *Bus) Drain() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.takeLocked()
}

// Len returns the number of queued results.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bus) takeLocked() []Result {
	if len(b.queue) == 0 {
		return nil
	}
	out := b.queue
	b.queue = nil
	return out
}
