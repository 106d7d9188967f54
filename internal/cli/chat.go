// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/rigrun-recall/internal/commands"
	"github.com/jeranaias/rigrun-recall/internal/config"
	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
	"github.com/jeranaias/rigrun-recall/internal/ui/components"
)

// HistoryFileName holds line-mode input history in the config directory.
const HistoryFileName = "chat_history"

// analyticsWait bounds how long /stats waits in line mode.
const analyticsWait = 30 * time.Second

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with persisted history and slash-command completion.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(completer *commands.Completer) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(completer.Lines)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(dir, HistoryFileName)}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history and restores the terminal.
func (r *lineReader) close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the line-mode chat loop.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
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
			return NewCommandError("chat", "attach", err)
		}
		orch.SetFileContext(name, content)
	}

	w, err := app.WatchConfig(args, func(text string, isErr bool) {
		if isErr {
			fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render(text))
		}
	})
	if err != nil {
		app.logger.Warn("config watch unavailable", "error", err)
	} else if w != nil {
		defer w.Close()
	}

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)
	models := app.ModelNames(context.Background())
	completer.ModelsFn = func() []string { return models }
	completer.PluginsFn = app.Plugins.Names
	reader := newLineReader(completer)
	defer reader.close()

	repl := &chatLoop{
		app:      app,
		orch:     orch,
		registry: registry,
		out:      os.Stdout,
		cmdCtx: &commands.Context{
			Session:  orch,
			Plugins:  app.Plugins,
			Registry: registry,
		},
	}
	repl.banner()

	for {
		input, err := reader.read(PromptStyle.Render("recall> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(repl.out)
				return nil
			}
			return err
		}
		if !repl.handle(strings.TrimSpace(input)) {
			return nil
		}
	}
}

// chatLoop executes one line of input at a time against the session.
type chatLoop struct {
	app      *App
	orch     *orchestrator.Orchestrator
	registry *commands.Registry
	cmdCtx   *commands.Context
	out      io.Writer
}

func (c *chatLoop) banner() {
	s := c.orch.Snapshot()
	rag := "off"
	if s.RetrievalEnabled {
		rag = "on"
	}
	fmt.Fprintln(c.out, TitleStyle.Render("recall")+" "+DimStyle.Render(fmt.Sprintf("%s | rag %s", s.Model, rag)))
	fmt.Fprintln(c.out, DimStyle.Render("Type /help for commands, Ctrl+D to quit, Ctrl+C cancels a running request."))
}

// handle processes one input line and reports whether to keep going.
func (c *chatLoop) handle(input string) bool {
	if input == "" {
		return true
	}

	res, isCmd, err := c.registry.Execute(c.cmdCtx, input)
	if isCmd {
		if err != nil {
			fmt.Fprintln(c.out, ErrorStyle.Render("Error:")+" "+err.Error())
			return true
		}
		return c.commandResult(res)
	}

	c.send(input)
	return true
}

func (c *chatLoop) commandResult(res commands.Result) bool {
	if res.Quit {
		return false
	}
	if res.Cleared {
		fmt.Fprintln(c.out, DimStyle.Render("Chat cleared."))
		return true
	}
	if res.Await == "" {
		if res.Output != "" {
			fmt.Fprintln(c.out, res.Output)
		}
		return true
	}

	fmt.Fprintln(c.out, DimStyle.Render(res.Output))
	// Results are only applied by Poll, so this is still the previous snapshot.
	before := c.orch.Snapshot().Analytics.ComputedAt
	ctx, cancel := context.WithTimeout(context.Background(), analyticsWait)
	defer cancel()
	s, ok := awaitBackground(ctx, c.orch, res.Await, before, c.interval())
	if !ok {
		for _, m := range c.orch.Outcomes(res.Await) {
			fmt.Fprintln(c.out, ErrorStyle.Render(m.Content))
		}
		return true
	}
	fmt.Fprintln(c.out, SectionStyle.Render("Analytics"))
	for _, line := range s.Analytics.Lines() {
		fmt.Fprintln(c.out, RenderField(line.Label, line.Value))
	}
	return true
}

func (c *chatLoop) send(input string) {
	if err := c.orch.Prefetch(context.Background(), input); err != nil {
		fmt.Fprintln(c.out, WarningStyle.Render("Retrieval error: "+err.Error()))
	}

	id, err := c.orch.Send(input)
	if err != nil {
		fmt.Fprintln(c.out, ErrorStyle.Render("Error:")+" "+err.Error())
		return
	}

	for _, m := range awaitRequest(c.orch, id, c.interval()) {
		switch m.Role {
		case model.RoleAssistant:
			fmt.Fprintln(c.out, AssistantStyle.Render("assistant"))
			fmt.Fprintln(c.out, strings.TrimRight(renderMarkdown(m.Content, c.app.CurrentConfig().UI.Markdown), "\n"))
			fmt.Fprintln(c.out, DimStyle.Render(fmt.Sprintf("%s | %s", m.Model, formatDuration(m.ResponseTime))))
		case model.RoleError:
			fmt.Fprintln(c.out, ErrorStyle.Render(m.Content))
			if hint := components.Suggest(m.Content); hint != "" {
				fmt.Fprintln(c.out, DimStyle.Render("Hint: "+hint))
			}
		}
	}
}

func (c *chatLoop) interval() time.Duration {
	return c.app.CurrentConfig().Orchestrator.FrameInterval.Duration
}
