// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the in-memory chat transcript shown to the user.
//
// The transcript is display state only. The durable record of exchanges is
// the conversation log in package storage; clearing the transcript never
// touches it.
//
// # Key Types
//
//   - ChatMessage: one line of the chat (user prompt, answer, or error)
//   - Transcript: append-only, thread-safe list of ChatMessages
//   - Role: user, assistant, system, error
//
// # Usage
//
//	tr := model.NewTranscript()
//	tr.AddUser("hello")
//	tr.AddAssistant("hi there", "deepseek-r1:7b", 850*time.Millisecond)
//	for _, m := range tr.Messages() {
//	    fmt.Println(m.Role.DisplayName(), m.Content)
//	}
package model
