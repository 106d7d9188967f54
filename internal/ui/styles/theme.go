// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the chat screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style
	BadgeOn     lipgloss.Style
	BadgeOff    lipgloss.Style

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemText     lipgloss.Style
	ErrorText      lipgloss.Style
	MessageBody    lipgloss.Style
	MessageStats   lipgloss.Style

	// Side panels
	Panel      lipgloss.Style
	PanelTitle lipgloss.Style
	PanelItem  lipgloss.Style
	PanelLabel lipgloss.Style
	PanelValue lipgloss.Style

	// Input and status
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	Spinner        lipgloss.Style
	Busy           lipgloss.Style
	Notice         lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	// Completion popup
	CompletionPopup    lipgloss.Style
	CompletionItem     lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDesc     lipgloss.Style
}

// NewTheme builds a theme for name ("dark", "light" or "" to detect). A named
// theme also fixes how adaptive colors resolve.
func NewTheme(name string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch strings.ToLower(name) {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the markdown style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// ChromaStyle names the code highlighting style matching the theme.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderInfo = lipgloss.NewStyle().Foreground(TextSecondary)
	t.BadgeOn = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.BadgeOff = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.SystemText = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.MessageStats = lipgloss.NewStyle().Foreground(TextMuted).PaddingLeft(2)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.PanelItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.PanelLabel = lipgloss.NewStyle().Foreground(TextMuted)
	t.PanelValue = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Busy = lipgloss.NewStyle().Foreground(Amber)
	t.Notice = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.CompletionPopup = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple)
	t.CompletionItem = lipgloss.NewStyle().Foreground(TextPrimary).Padding(0, 1)
	t.CompletionSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		Padding(0, 1)
	t.CompletionDesc = lipgloss.NewStyle().Foreground(TextMuted)
}
