// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigrun-recall/internal/ui/chat"
	"github.com/jeranaias/rigrun-recall/internal/ui/styles"
)

// HandleTUI runs the full-screen chat.
func HandleTUI(args Args) error {
	if err := RequiresTTY("start the chat screen"); err != nil {
		return err
	}

	app, err := OpenApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	orch, err := app.Session()
	if err != nil {
		return err
	}
	if args.File != "" {
		name, content, err := readAttachment(args.File)
		if err != nil {
			return NewCommandError("tui", "attach", err)
		}
		orch.SetFileContext(name, content)
	}

	cfg := app.CurrentConfig()
	screen, err := chat.New(chat.Options{
		Session:       orch,
		Plugins:       app.Plugins,
		Theme:         styles.NewTheme(cfg.UI.Theme),
		FrameInterval: cfg.Orchestrator.FrameInterval.Duration,
		Markdown:      cfg.UI.Markdown,
		Models:        app.ModelNames(context.Background()),
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(screen, tea.WithAltScreen())

	w, err := app.WatchConfig(args, func(text string, isErr bool) {
		p.Send(chat.NoticeMsg{Text: text, Error: isErr})
	})
	if err != nil {
		app.logger.Warn("config watch unavailable", "error", err)
	} else if w != nil {
		defer w.Close()
	}

	_, err = p.Run()
	return err
}

// ModelNames lists installed models for completion. Returns nil when the
// server cannot be reached.
func (a *App) ModelNames(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	models, err := a.Client.ListModels(ctx)
	if err != nil {
		a.logger.Debug("model list unavailable", "error", err)
		return nil
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}
