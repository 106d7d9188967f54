// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
	"github.com/jeranaias/rigrun-recall/internal/ui/components"
	"github.com/jeranaias/rigrun-recall/internal/ui/styles"
)

// defaultPollInterval is used when the config leaves the frame interval
// unset.
const defaultPollInterval = 50 * time.Millisecond

// awaitRequest polls orch until the chat request id has finished and returns
// every non-user message it produced. Ctrl+C cancels the request; the
// cancellation failure is still collected.
func awaitRequest(orch *orchestrator.Orchestrator, id string, interval time.Duration) []model.ChatMessage {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	canceled := false
	for {
		orch.Poll()
		s := orch.Snapshot()
		if !s.Busy || s.ActiveRequest != id {
			return orch.Outcomes(id)
		}

		select {
		case <-sigCtx.Done():
			if !canceled {
				orch.Cancel()
				canceled = true
			}
		case <-ticker.C:
		}
	}
}

// awaitBackground polls until a background request has either updated the
// analytics snapshot or produced a transcript message, or ctx ends.
func awaitBackground(ctx context.Context, orch *orchestrator.Orchestrator, id string, before time.Time, interval time.Duration) (orchestrator.State, bool) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		orch.Poll()
		s := orch.Snapshot()
		if s.HasAnalytics && s.Analytics.ComputedAt.After(before) {
			return s, true
		}
		if len(orch.Outcomes(id)) > 0 {
			return s, false
		}

		select {
		case <-ctx.Done():
			return s, false
		case <-ticker.C:
		}
	}
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders content for the terminal when stdout is a TTY. With
// markdown disabled only fenced code is highlighted. Falls back to the raw
// text.
func renderMarkdown(content string, enabled bool) string {
	if !IsStdoutTTY() {
		return content
	}
	if !enabled {
		return components.HighlightCodeBlocks(content, styles.NewTheme("").ChromaStyle())
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
