// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rigrun-recall/internal/model"
)

// TextExporter writes one line per message:
//
//	[2025-03-14 09:26:53] User: hello
type TextExporter struct{}

// Export converts messages to plain text.
func (e *TextExporter) Export(msgs []model.ChatMessage) ([]byte, error) {
	var sb strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", formatTimestamp(msg.Timestamp), msg.Role.DisplayName(), msg.Content)
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}
