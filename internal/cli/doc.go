// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the command line and runs recall's commands.
//
// Every command goes through an App, which loads the config file, points
// slog at <data_dir>/recall.log and wires the conversation log, the model
// server client, retrieval, analytics and plugins. Interactive commands
// (the default full-screen chat and "chat") also start an orchestrator
// session and watch the config file for changes.
//
// # Commands
//
//   - (none), tui: full-screen chat
//   - chat: line-mode chat with history and tab completion
//   - ask: one question, answer on stdout
//   - stats, search, history: read the conversation log
//   - mirrors check|rebuild: per-exchange text files
//   - config show|get|set|path|keys
//   - status: model server and log health
//
// Commands that print data accept --json and emit a JSONResponse envelope.
package cli
