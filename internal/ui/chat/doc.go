// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the interactive bubbletea screen of recall.

The screen keeps no conversation state. On every frame (50ms by default) it
calls Session.Poll to apply finished background work and renders the
session's Snapshot: the transcript, related conversations, the analytics
panel and a live elapsed counter while a request is in flight. Text edits
are reported through Session.InputChanged so related lookups can fire while
the user types.

# Keys

	Enter      send the message, or run a /command
	Tab        complete commands and arguments
	Ctrl+X     cancel the in-flight request
	Ctrl+R     refresh analytics
	Ctrl+E     export the transcript
	Ctrl+L     clear the screen
	Esc        quit

# Usage

	m, err := chat.New(chat.Options{Session: orch, Commands: commands.NewRegistry()})
	if err != nil {
	    return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package chat
