// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"testing"
	"time"
)

func TestTranscript_AddAndMessages(t *testing.T) {
	fixed := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	tr := NewTranscript()
	tr.SetClock(func() time.Time { return fixed })

	u := tr.AddUser("hello")
	a := tr.AddAssistant("hi there", "deepseek-r1:7b", 1500*time.Millisecond)
	e := tr.AddError("Ollama is not running")

	if u.ID != 1 || a.ID != 2 || e.ID != 3 {
		t.Errorf("IDs = %d,%d,%d, want 1,2,3", u.ID, a.ID, e.ID)
	}
	if !u.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", u.Timestamp, fixed)
	}

	msgs := tr.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant || msgs[2].Role != RoleError {
		t.Errorf("Unexpected roles: %s %s %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}

	// Returned slice is a copy
	msgs[0].Content = "mutated"
	if tr.Messages()[0].Content != "hello" {
		t.Error("Messages() should return a copy")
	}
}

func TestTranscript_LastAndClear(t *testing.T) {
	tr := NewTranscript()
	if _, ok := tr.Last(); ok {
		t.Error("Last on empty transcript should report false")
	}

	tr.AddUser("q1")
	tr.AddAssistant("a1", "m", time.Second)
	tr.AddUser("q2")

	last, ok := tr.Last()
	if !ok || last.Content != "q2" {
		t.Errorf("Last = %q, %v", last.Content, ok)
	}
	asst, ok := tr.LastOfRole(RoleAssistant)
	if !ok || asst.Content != "a1" {
		t.Errorf("LastOfRole(assistant) = %q, %v", asst.Content, ok)
	}

	tr.Clear()
	if !tr.IsEmpty() {
		t.Error("Transcript should be empty after Clear")
	}
	if next := tr.AddUser("q3"); next.ID != 4 {
		t.Errorf("ID after Clear = %d, want 4", next.ID)
	}
}

func TestTranscript_ConcurrentAdd(t *testing.T) {
	tr := NewTranscript()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AddSystem("note")
		}()
	}
	wg.Wait()

	if tr.Len() != 50 {
		t.Errorf("Len = %d, want 50", tr.Len())
	}
}

func TestChatMessage_FormatStats(t *testing.T) {
	tests := []struct {
		msg  ChatMessage
		want string
	}{
		{ChatMessage{Role: RoleUser}, ""},
		{ChatMessage{Role: RoleAssistant, ResponseTime: 250 * time.Millisecond}, "250ms"},
		{ChatMessage{Role: RoleAssistant, Model: "llama3", ResponseTime: 2500 * time.Millisecond}, "llama3 | 2.5s"},
	}
	for _, tt := range tests {
		if got := tt.msg.FormatStats(); got != tt.want {
			t.Errorf("FormatStats() = %q, want %q", got, tt.want)
		}
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "User" || RoleError.DisplayName() != "Error" {
		t.Error("Unexpected display names")
	}
	if Role("custom").DisplayName() != "custom" {
		t.Error("Unknown roles should display as-is")
	}
}

func TestTranscript_EstimateTokens(t *testing.T) {
	tr := NewTranscript()
	tr.AddUser("abcd")     // 1
	tr.AddUser("abcdefgh") // 2
	if got := tr.EstimateTokens(); got != 3 {
		t.Errorf("EstimateTokens = %d, want 3", got)
	}
}
