// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import "errors"

// Phase is the chat request state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseCompleted
	PhaseFailed
)

// String returns a display name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned by Send while a chat request is in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrEmptyInput is returned by Send for blank input.
	ErrEmptyInput = errors.New("input is empty")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("orchestrator is closed")
)
