// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rigrun-recall/internal/storage"
)

// BuildContext prefixes message with up to DefaultContextEntries prior
// exchanges, in the order supplied. With no entries message is returned as is.
func BuildContext(entries []storage.Entry, message string) string {
	return BuildContextN(entries, message, DefaultContextEntries)
}

// BuildContextN is BuildContext with an explicit entry cap.
func BuildContextN(entries []storage.Entry, message string, max int) string {
	if len(entries) == 0 || max <= 0 {
		return message
	}
	if len(entries) > max {
		entries = entries[:max]
	}

	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("Previous context:\nQ: %s\nA: %s\n", e.Prompt, e.Response))
	}
	return strings.Join(blocks, "\n") + "\n\nCurrent question: " + message
}

// WithFileContext prefixes message with the contents of an attached file.
func WithFileContext(fileContent, message string) string {
	if fileContent == "" {
		return message
	}
	return "File context:\n" + fileContent + "\n\nUser message: " + message
}
