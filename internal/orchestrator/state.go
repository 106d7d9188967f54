// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"time"

	"github.com/jeranaias/rigrun-recall/internal/analytics"
	"github.com/jeranaias/rigrun-recall/internal/bus"
	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/storage"
)

// =============================================================================
// STATE SNAPSHOT
// =============================================================================

// State is a read-only copy of the orchestrator's display state.
type State struct {
	Busy          bool
	Phase         Phase
	ActiveRequest string
	Elapsed       time.Duration // live while busy, final afterwards

	Messages       []model.ChatMessage
	Suggestions    []storage.Entry
	SuggestionsFor string
	Analytics      analytics.Snapshot
	HasAnalytics   bool
	LastError      string

	Model            string
	Endpoint         string
	RetrievalEnabled bool
	FileName         string
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	elapsed := o.elapsed
	if o.busy {
		elapsed = o.now().Sub(o.started)
	}

	suggestions := make([]storage.Entry, len(o.suggestions))
	copy(suggestions, o.suggestions)

	return State{
		Busy:             o.busy,
		Phase:            o.phase,
		ActiveRequest:    o.activeID,
		Elapsed:          elapsed,
		Messages:         o.transcript.Messages(),
		Suggestions:      suggestions,
		SuggestionsFor:   o.suggestionsFor,
		Analytics:        o.snapshot,
		HasAnalytics:     o.hasSnapshot,
		LastError:        o.lastErr,
		Model:            o.settings.Model,
		Endpoint:         o.settings.Endpoint,
		RetrievalEnabled: o.settings.RetrievalEnabled,
		FileName:         o.fileName,
	}
}

// Transcript returns the live transcript.
func (o *Orchestrator) Transcript() *model.Transcript {
	return o.transcript
}

// =============================================================================
// POLLING
// =============================================================================

// Poll drains the result bus without blocking and applies each result in
// order. Returns whether anything changed. Call once per frame.
func (o *Orchestrator) Poll() bool {
	results, ok := o.bus.TryDrain()
	if !ok || len(results) == 0 {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, r := range results {
		o.apply(r)
	}
	return true
}

// apply updates state for one result. Must be called with mu held.
func (o *Orchestrator) apply(r bus.Result) {
	switch res := r.(type) {
	case bus.Response:
		o.transcript.Add(model.ChatMessage{
			Role:         model.RoleAssistant,
			Content:      res.Text,
			Model:        res.Model,
			ResponseTime: res.Elapsed,
			RequestID:    res.RequestID,
		})
		if res.RequestID == o.activeID {
			o.phase = PhaseCompleted
			o.elapsed = res.Elapsed
		}

	case bus.Suggestions:
		o.suggestions = res.Entries
		o.suggestionsFor = res.Input

	case bus.AnalyticsUpdated:
		o.snapshot = res.Snapshot
		o.hasSnapshot = true

	case bus.Failure:
		msg := failureText(res)
		o.transcript.Add(model.ChatMessage{Role: model.RoleError, Content: msg, RequestID: res.RequestID})
		o.lastErr = msg
		if res.RequestID == o.activeID && o.busy {
			o.phase = PhaseFailed
		}
		o.logger.Warn("background failure", "request", res.RequestID, "source", res.Source, "error", res.Err)

	case bus.LoadingComplete:
		if res.RequestID != o.activeID || !o.busy {
			return
		}
		if o.phase == PhaseSending {
			o.phase = PhaseCompleted
		}
		if o.elapsed == 0 {
			o.elapsed = o.now().Sub(o.started)
		}
		o.busy = false
		o.logger.Debug("chat request finished", "request", res.RequestID, "phase", o.phase, "elapsed", o.elapsed)
		o.phase = PhaseIdle
	}
}

// failureText formats a failure for the transcript.
func failureText(f bus.Failure) string {
	switch f.Source {
	case bus.SourceRetrieval:
		return "Retrieval error: " + f.Message()
	case bus.SourceAnalytics:
		return "Analytics error: " + f.Message()
	case bus.SourceStorage:
		return "Storage error: " + f.Message()
	default:
		return "Error: " + f.Message()
	}
}

// Outcomes returns the non-user transcript messages tagged with requestID, in
// order. A chat request yields its answer and possibly a storage error after it.
func (o *Orchestrator) Outcomes(requestID string) []model.ChatMessage {
	var out []model.ChatMessage
	for _, m := range o.transcript.Messages() {
		if m.RequestID == requestID && m.Role != model.RoleUser {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// RUNTIME CONFIGURATION
// =============================================================================

// SetModel changes the model used by subsequent requests.
func (o *Orchestrator) SetModel(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.Model = name
}

// SetEndpoint changes the generate URL used by subsequent requests.
func (o *Orchestrator) SetEndpoint(url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.Endpoint = url
}

// SetRetrievalEnabled toggles suggestion lookups and prompt context.
func (o *Orchestrator) SetRetrievalEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings.RetrievalEnabled = enabled
}

// SetFileContext attaches a file whose content prefixes subsequent prompts.
func (o *Orchestrator) SetFileContext(name, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fileName = name
	o.fileContent = content
}

// ClearFileContext detaches the current file.
func (o *Orchestrator) ClearFileContext() {
	o.SetFileContext("", "")
}

// ClearChat empties the transcript. The conversation log is untouched.
func (o *Orchestrator) ClearChat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transcript.Clear()
	o.lastErr = ""
}
