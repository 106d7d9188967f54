// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rigrun-recall/internal/commands"
	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
	"github.com/jeranaias/rigrun-recall/internal/ui/components"
	"github.com/jeranaias/rigrun-recall/internal/ui/styles"
)

// DefaultFrameInterval is how often the screen polls for background results.
const DefaultFrameInterval = 50 * time.Millisecond

// Session is the orchestrator surface the chat screen drives.
type Session interface {
	commands.Session
	Send(input string) (string, error)
	Poll() bool
	InputChanged(input string) bool
}

// Options configures a chat Model.
type Options struct {
	Session  Session
	Commands *commands.Registry
	Plugins  *plugins.Registry
	Theme    *styles.Theme

	// FrameInterval between polls (default: DefaultFrameInterval)
	FrameInterval time.Duration

	// Markdown renders assistant answers with glamour
	Markdown bool

	// ExportDir receives Ctrl+E and /export output
	ExportDir string

	// Models feeds /model completion
	Models []string
}

// Model is the bubbletea model of the chat screen. It owns no conversation
// state of its own: every frame it polls the session and renders its
// snapshot.
type Model struct {
	session  Session
	commands *commands.Registry
	cmdCtx   *commands.Context
	theme    *styles.Theme
	keys     KeyMap
	frame    time.Duration
	markdown bool

	completer  *commands.Completer
	completion commands.CompletionState

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	rendered map[int]string // assistant message ID -> display text

	state     orchestrator.State
	lastInput string
	notice    string
	noticeErr bool

	width, height int
	ready         bool
	quitting      bool
}

// New creates the chat screen.
func New(opts Options) (*Model, error) {
	if opts.Session == nil {
		return nil, errors.New("chat: session is required")
	}
	if opts.Commands == nil {
		opts.Commands = commands.NewRegistry()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("")
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}

	ti := textinput.New()
	ti.Placeholder = "Ask something, or /help"
	ti.Prompt = "> "
	ti.PromptStyle = opts.Theme.InputPrompt
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Spinner

	completer := commands.NewCompleter(opts.Commands)
	models := append([]string(nil), opts.Models...)
	completer.ModelsFn = func() []string { return models }
	if opts.Plugins != nil {
		completer.PluginsFn = opts.Plugins.Names
	}

	m := &Model{
		session:  opts.Session,
		commands: opts.Commands,
		cmdCtx: &commands.Context{
			Session:   opts.Session,
			Plugins:   opts.Plugins,
			Registry:  opts.Commands,
			ExportDir: opts.ExportDir,
		},
		theme:     opts.Theme,
		keys:      DefaultKeyMap(),
		frame:     opts.FrameInterval,
		markdown:  opts.Markdown,
		completer: completer,
		input:     ti,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		rendered:  make(map[int]string),
		state:     opts.Session.Snapshot(),
	}
	return m, nil
}

// State returns the last snapshot the screen rendered.
func (m *Model) State() orchestrator.State {
	return m.state
}

// Notice returns the status line text.
func (m *Model) Notice() string {
	return m.notice
}

// Quitting reports whether the screen asked to exit.
func (m *Model) Quitting() bool {
	return m.quitting
}

// messageText returns the display body of msg. Assistant answers are rendered
// as markdown, or only code-highlighted, once per message and width.
func (m *Model) messageText(msg model.ChatMessage) string {
	if msg.Role != model.RoleAssistant {
		return msg.Content
	}
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	var out string
	if m.markdown && m.renderer != nil {
		var err error
		if out, err = m.renderer.Render(msg.Content); err != nil {
			out = msg.Content
		}
	} else {
		out = components.HighlightCodeBlocks(msg.Content, m.theme.ChromaStyle())
	}
	m.rendered[msg.ID] = out
	return out
}

// resize fits the components to the terminal and rebuilds the renderer.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-4, 10)
	m.viewport.Width = width
	m.viewport.Height = max(height-m.chromeHeight(), 3)

	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(max(width-6, 20)),
		)
		if err == nil {
			m.renderer = r
		}
		clear(m.rendered)
	}
	m.ready = true
}
