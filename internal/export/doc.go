// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the chat transcript to disk.
//
// # Key Types
//
//   - Format: text, markdown or json
//   - Exporter: renders messages in one format
//   - Options: output directory, file name and metadata switches
//
// # Supported Formats
//
//   - Text: one "[YYYY-MM-DD HH:MM:SS] Role: content" line per message
//   - Markdown: headed sections with per-answer stats
//   - JSON: the full message list with metadata
//
// # Usage
//
//	path, err := export.ToFile(transcript.Messages(), export.FormatMarkdown, nil)
//
// Files are written atomically; an existing export of the same name is
// replaced.
package export
