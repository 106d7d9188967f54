// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigrun-recall/internal/commands"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
)

// =============================================================================
// MESSAGES
// =============================================================================

// FrameMsg drives one poll of the session.
type FrameMsg time.Time

// NoticeMsg shows text in the status line. Callers outside the program (the
// config watcher, for one) deliver it with tea.Program.Send.
type NoticeMsg struct {
	Text  string
	Error bool
}

func (m *Model) frameCmd() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return FrameMsg(t) })
}

// =============================================================================
// BUBBLETEA
// =============================================================================

// Init starts the frame loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.frameCmd(), m.spinner.Tick)
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshContent()
		return m, nil

	case FrameMsg:
		m.poll()
		return m, m.frameCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case NoticeMsg:
		m.setNotice(msg.Text, msg.Error)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// poll applies pending background results and takes a fresh snapshot.
func (m *Model) poll() {
	changed := m.session.Poll()
	prevLen := len(m.state.Messages)
	m.state = m.session.Snapshot()
	if changed || len(m.state.Messages) != prevLen {
		m.refreshContent()
	}
}

func (m *Model) refreshContent() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.state.Busy {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.completion.Visible {
		if handled, cmd := m.handleCompletionKey(msg); handled {
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()
	case key.Matches(msg, m.keys.Cancel):
		return m, m.runCommand("/cancel")
	case key.Matches(msg, m.keys.Analytics):
		return m, m.runCommand("/stats")
	case key.Matches(msg, m.keys.Export):
		return m, m.runCommand("/export")
	case key.Matches(msg, m.keys.Clear):
		return m, m.runCommand("/clear")
	case key.Matches(msg, m.keys.Complete):
		m.startCompletion()
		return m, nil
	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.inputChanged()
	return m, cmd
}

// inputChanged reports text edits to the session for related lookups.
func (m *Model) inputChanged() {
	v := m.input.Value()
	if v == m.lastInput {
		return
	}
	m.lastInput = v
	if !commands.IsCommand(v) {
		m.session.InputChanged(v)
	}
}

func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	if commands.IsCommand(text) {
		m.input.SetValue("")
		m.inputChanged()
		return m.runCommand(text)
	}

	if _, err := m.session.Send(text); err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrEmptyInput):
		case errors.Is(err, orchestrator.ErrBusy):
			m.setNotice("Still waiting on the previous answer (Ctrl+X cancels).", true)
		default:
			m.setNotice(err.Error(), true)
		}
		return nil
	}

	m.input.SetValue("")
	m.inputChanged()
	m.notice = ""
	m.state = m.session.Snapshot()
	m.refreshContent()
	return nil
}

// runCommand executes a slash command line.
func (m *Model) runCommand(line string) tea.Cmd {
	res, _, err := m.commands.Execute(m.cmdCtx, line)
	if err != nil {
		m.setNotice(err.Error(), true)
		return nil
	}
	if res.Quit {
		m.quitting = true
		return tea.Quit
	}
	if res.Cleared {
		clear(m.rendered)
		m.setNotice("Chat cleared.", false)
	}
	if res.Output != "" {
		m.setNotice(res.Output, false)
	}
	m.state = m.session.Snapshot()
	m.refreshContent()
	return nil
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// =============================================================================
// COMPLETION
// =============================================================================

func (m *Model) startCompletion() {
	v := m.input.Value()
	comps := m.completer.Complete(v)
	switch len(comps) {
	case 0:
		return
	case 1:
		m.acceptCompletion(v, comps[0].Value)
	default:
		m.completion.Update(comps)
	}
}

func (m *Model) handleCompletionKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Complete):
		m.completion.Next()
		return true, nil
	case key.Matches(msg, m.keys.CompletePrev):
		m.completion.Prev()
		return true, nil
	case key.Matches(msg, m.keys.Submit):
		m.acceptCompletion(m.input.Value(), m.completion.Accept())
		m.completion.Clear()
		return true, nil
	case msg.Type == tea.KeyEsc:
		m.completion.Clear()
		return true, nil
	}
	m.completion.Clear()
	return false, nil
}

// acceptCompletion replaces the token under the cursor with value.
func (m *Model) acceptCompletion(input, value string) {
	if value == "" {
		return
	}
	prefix := ""
	if i := strings.LastIndex(input, " "); i >= 0 {
		prefix = input[:i+1]
	}
	line := prefix + value
	if !strings.HasSuffix(value, "/") {
		line += " "
	}
	m.input.SetValue(line)
	m.input.CursorEnd()
	m.inputChanged()
}
