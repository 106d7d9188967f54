// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports the transcript to Markdown.
type MarkdownExporter struct {
	options *Options
}

// Export converts messages to Markdown.
func (e *MarkdownExporter) Export(msgs []model.ChatMessage) ([]byte, error) {
	opts := e.options.normalize()
	now := opts.Now()

	var sb strings.Builder

	if opts.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
		if models := modelsUsed(msgs); len(models) > 0 {
			fmt.Fprintf(&sb, "models: %s\n", escapeYAML(strings.Join(models, ", ")))
		}
		fmt.Fprintf(&sb, "exported: %s\n", now.Format(time.RFC3339))
		sb.WriteString("generator: recall\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString("# Chat Export\n\n")

	for i, msg := range msgs {
		fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", roleLabel(msg.Role), formatShortTimestamp(msg.Timestamp))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.Role == model.RoleAssistant && opts.IncludeMetadata {
			if stats := messageStats(msg); stats != "" {
				sb.WriteString(stats)
				sb.WriteString("\n\n")
			}
		}

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported on %s*\n", now.Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(role model.Role) string {
	if role == "" {
		return "Unknown"
	}
	return "[" + role.DisplayName() + "]"
}

func messageStats(msg model.ChatMessage) string {
	var parts []string
	if msg.Model != "" {
		parts = append(parts, "Model: "+msg.Model)
	}
	if msg.ResponseTime > 0 {
		parts = append(parts, "Duration: "+formatDuration(msg.ResponseTime))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("<sub>Stats: %s</sub>", strings.Join(parts, " | "))
}

// modelsUsed lists distinct assistant models in first-use order.
func modelsUsed(msgs []model.ChatMessage) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range msgs {
		if m.Model == "" || seen[m.Model] {
			continue
		}
		seen[m.Model] = true
		out = append(out, m.Model)
	}
	return out
}

// escapeYAML quotes a value that would otherwise break the front matter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return `"` + s + `"`
	}
	return s
}
