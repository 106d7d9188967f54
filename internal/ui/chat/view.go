// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/ui/components"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

const (
	maxSuggestionPreview = 60
	maxCompletionRows    = 8
)

// View renders the screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}
	if panel := m.renderPanels(); panel != "" {
		sections = append(sections, panel)
	}
	if popup := m.renderCompletion(); popup != "" {
		sections = append(sections, popup)
	}
	sections = append(sections,
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatus(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// chromeHeight is the number of rows outside the transcript viewport.
func (m *Model) chromeHeight() int {
	// header, input with border, status line, plus room for the panels
	return 1 + 2 + 1 + 6
}

// =============================================================================
// HEADER
// =============================================================================

func (m *Model) renderHeader() string {
	s := m.state
	t := m.theme

	rag := t.BadgeOff.Render("rag off")
	if s.RetrievalEnabled {
		rag = t.BadgeOn.Render("rag on")
	}

	parts := []string{
		t.HeaderTitle.Render("recall"),
		t.HeaderInfo.Render(orDash(s.Model)),
		t.HeaderInfo.Render(orDash(s.Endpoint)),
		rag,
	}
	if s.FileName != "" {
		parts = append(parts, t.HeaderInfo.Render("file: "+s.FileName))
	}
	return t.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	t := m.theme
	if len(m.state.Messages) == 0 {
		return t.Notice.Render("No messages yet. Type a question and press Enter.")
	}

	var sb strings.Builder
	for i, msg := range m.state.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch msg.Role {
		case model.RoleUser:
			sb.WriteString(t.UserLabel.Render("You") + "\n")
			sb.WriteString(t.MessageBody.Render(msg.Content) + "\n")
		case model.RoleAssistant:
			sb.WriteString(t.AssistantLabel.Render("Assistant") + "\n")
			sb.WriteString(t.MessageBody.Render(strings.TrimRight(m.messageText(msg), "\n")) + "\n")
			if stats := msg.FormatStats(); stats != "" {
				sb.WriteString(t.MessageStats.Render(stats) + "\n")
			}
		case model.RoleError:
			sb.WriteString(t.ErrorText.Render(msg.Content) + "\n")
		default:
			sb.WriteString(t.SystemText.Render(msg.Content) + "\n")
		}
	}
	return sb.String()
}

// =============================================================================
// PANELS
// =============================================================================

// renderPanels shows related conversations and the analytics snapshot side by
// side.
func (m *Model) renderPanels() string {
	var panels []string
	if p := m.renderSuggestions(); p != "" {
		panels = append(panels, p)
	}
	if p := m.renderAnalytics(); p != "" {
		panels = append(panels, p)
	}
	if len(panels) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

func (m *Model) renderSuggestions() string {
	s := m.state
	if len(s.Suggestions) == 0 {
		return ""
	}
	t := m.theme

	lines := []string{t.PanelTitle.Render("Related conversations")}
	for _, e := range s.Suggestions {
		lines = append(lines, t.PanelItem.Render("- "+util.Preview(e.Prompt, maxSuggestionPreview)))
	}
	return t.Panel.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderAnalytics() string {
	s := m.state
	if !s.HasAnalytics {
		return ""
	}
	t := m.theme

	lines := []string{t.PanelTitle.Render("Analytics")}
	for _, l := range s.Analytics.Lines() {
		lines = append(lines, t.PanelLabel.Render(util.PadRight(l.Label+":", 23))+t.PanelValue.Render(l.Value))
	}
	return t.Panel.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// COMPLETION POPUP
// =============================================================================

func (m *Model) renderCompletion() string {
	cs := m.completion
	if !cs.Visible || len(cs.Completions) == 0 {
		return ""
	}
	t := m.theme

	start := 0
	if cs.Selected >= maxCompletionRows {
		start = cs.Selected - maxCompletionRows + 1
	}
	end := min(start+maxCompletionRows, len(cs.Completions))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := cs.Completions[i]
		label := c.Display
		if c.Description != "" {
			label += "  " + t.CompletionDesc.Render(c.Description)
		}
		if i == cs.Selected {
			rows = append(rows, t.CompletionSelected.Render(label))
		} else {
			rows = append(rows, t.CompletionItem.Render(label))
		}
	}
	return t.CompletionPopup.Render(strings.Join(rows, "\n"))
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatus() string {
	t := m.theme
	s := m.state

	var left string
	switch {
	case s.Busy:
		left = m.spinner.View() + " " + t.Busy.Render(fmt.Sprintf("Thinking... %.1fs", s.Elapsed.Seconds()))
	case m.notice != "" && m.noticeErr:
		left = t.ErrorText.Render(util.SingleLine(m.notice))
	case m.notice != "":
		left = t.Notice.Render(util.SingleLine(m.notice))
	case s.LastError != "":
		left = t.ErrorText.Render(util.SingleLine(s.LastError))
		if hint := components.Suggest(s.LastError); hint != "" {
			left += " " + t.MessageStats.Render("("+hint+")")
		}
	}

	var help []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(help, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return t.StatusBar.Render(left)
	}
	return t.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
