// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

// DefaultDebounceEvery is how many distinct input values pass between
// suggestion lookups.
const DefaultDebounceEvery = 5

// Debouncer throttles suggestion lookups by edit count rather than time.
// It counts distinct consecutive input values and fires on every Nth.
// The counter is never reset.
type Debouncer struct {
	every   int
	counter int
	last    string
	seen    bool
}

// NewDebouncer creates a debouncer firing every n distinct values.
func NewDebouncer(n int) Debouncer {
	if n <= 0 {
		n = DefaultDebounceEvery
	}
	return Debouncer{every: n}
}

// Observe records input and reports whether a lookup should happen now.
// Repeating the previous value neither counts nor fires.
func (d *Debouncer) Observe(input string) bool {
	if d.seen && input == d.last {
		return false
	}
	d.seen = true
	d.last = input
	d.counter++
	if d.every <= 0 {
		d.every = DefaultDebounceEvery
	}
	return d.counter%d.every == 0
}

// Count returns how many distinct values have been observed.
func (d *Debouncer) Count() int {
	return d.counter
}
