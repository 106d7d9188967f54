// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// Role is who a transcript line is from. RoleError lines carry failures
// from background work; they are never stored in the conversation log.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

var roleNames = map[Role]string{
	RoleUser:      "User",
	RoleAssistant: "Assistant",
	RoleSystem:    "System",
	RoleError:     "Error",
}

func (r Role) String() string { return string(r) }

// DisplayName is the label exports use; unknown roles show as-is.
func (r Role) DisplayName() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return string(r)
}

// ChatMessage is a single transcript line. ID orders lines within one
// transcript; RequestID ties a question to the answer or failure it caused.
type ChatMessage struct {
	ID        int       `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Set on assistant messages
	Model        string        `json:"model,omitempty"`
	ResponseTime time.Duration `json:"response_time_ns,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// EstimateTokens approximates the token count at four bytes per token.
func (m ChatMessage) EstimateTokens() int {
	return (len(m.Content) + 3) / 4
}

// FormatStats returns "model | 1.2s" for assistant messages and "" otherwise.
func (m ChatMessage) FormatStats() string {
	if m.Role != RoleAssistant {
		return ""
	}
	stats := formatDuration(m.ResponseTime)
	if m.Model != "" {
		stats = m.Model + " | " + stats
	}
	return stats
}

// formatDuration formats a response time the way the status line shows it.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
