// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the list of messages shown in the chat view.
type Transcript struct {
	mu       sync.RWMutex
	messages []ChatMessage
	nextID   int
	now      func() time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// SetClock replaces the clock used to stamp new messages.
func (t *Transcript) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now != nil {
		t.now = now
	}
}

// Add appends msg, assigning its ID and, if unset, its timestamp.
func (t *Transcript) Add(msg ChatMessage) ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	msg.ID = t.nextID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = t.now()
	}
	t.messages = append(t.messages, msg)
	return msg
}

// AddUser appends a user message.
func (t *Transcript) AddUser(content string) ChatMessage {
	return t.Add(ChatMessage{Role: RoleUser, Content: content})
}

// AddAssistant appends a model answer.
func (t *Transcript) AddAssistant(content, model string, elapsed time.Duration) ChatMessage {
	return t.Add(ChatMessage{Role: RoleAssistant, Content: content, Model: model, ResponseTime: elapsed})
}

// AddSystem appends an informational message.
func (t *Transcript) AddSystem(content string) ChatMessage {
	return t.Add(ChatMessage{Role: RoleSystem, Content: content})
}

// AddError appends an error message.
func (t *Transcript) AddError(content string) ChatMessage {
	return t.Add(ChatMessage{Role: RoleError, Content: content})
}

// Messages returns a copy of all messages in order.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return ChatMessage{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastOfRole returns the most recent message with the given role.
func (t *Transcript) LastOfRole(role Role) (ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return t.messages[i], true
		}
	}
	return ChatMessage{}, false
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// IsEmpty returns true if there are no messages.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// Clear removes every message. IDs keep increasing afterwards.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}

// EstimateTokens sums the token estimate of every message.
func (t *Transcript) EstimateTokens() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	for _, m := range t.messages {
		total += m.EstimateTokens()
	}
	return total
}
