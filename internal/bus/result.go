// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bus

import (
	"time"

	"github.com/jeranaias/rigrun-recall/internal/analytics"
	"github.com/jeranaias/rigrun-recall/internal/storage"
)

// Result is a completed unit of background work. The set of variants is
// closed: Response, AnalyticsUpdated, Suggestions, LoadingComplete, Failure.
type Result interface {
	// Request returns the ID of the task that produced the result.
	Request() string
	isResult()
}

// Source names the kind of task a Failure came from.
type Source string

const (
	SourceChat      Source = "chat"
	SourceStorage   Source = "storage"
	SourceRetrieval Source = "retrieval"
	SourceAnalytics Source = "analytics"
)

// Response carries a model answer.
type Response struct {
	RequestID string
	Text      string
	Model     string
	Elapsed   time.Duration
	EntryID   int64 // zero when the exchange was not persisted
}

// AnalyticsUpdated carries a recomputed snapshot.
type AnalyticsUpdated struct {
	RequestID string
	Snapshot  analytics.Snapshot
}

// Suggestions carries retrieval matches for Input.
type Suggestions struct {
	RequestID string
	Input     string
	Entries   []storage.Entry
}

// LoadingComplete marks the end of a request.
type LoadingComplete struct {
	RequestID string
}

// Failure carries an error from any task.
type Failure struct {
	RequestID string
	Source    Source
	Err       error
}

// Message returns the error text for display.
func (f Failure) Message() string {
	if f.Err == nil {
		return "unknown error"
	}
	return f.Err.Error()
}

func (r Response) Request() string         { return r.RequestID }
func (r AnalyticsUpdated) Request() string { return r.RequestID }
func (r Suggestions) Request() string      { return r.RequestID }
func (r LoadingComplete) Request() string  { return r.RequestID }
func (r Failure) Request() string          { return r.RequestID }

func (Response) isResult()         {}
func (AnalyticsUpdated) isResult() {}
func (Suggestions) isResult()      {}
func (LoadingComplete) isResult()  {}
func (Failure) isResult()          {}
