// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the chat UI and the
// line-mode REPL.
//
// # Key Types
//
//   - Registry: command table with the built-in commands
//   - Context: what handlers can touch (the session, plugins, export dir)
//   - Result: what a handler asks the front end to do
//   - Completer: tab completion for command names and arguments
//
// # Built-in Commands
//
//   - /help, /quit
//   - /clear, /cancel, /export, /stats
//   - /model, /endpoint
//   - /rag, /file, /plugins
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res, ok, err := reg.Execute(&commands.Context{Session: orch}, input)
//	if !ok {
//	    orch.Send(input) // plain chat text
//	}
package commands
