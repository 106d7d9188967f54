// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/commands"
	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/ollama"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

// preflightTimeout bounds the server check before a one-shot question.
const preflightTimeout = 5 * time.Second

// AskResult is the --json payload of the ask command.
type AskResult struct {
	RequestID  string   `json:"request_id"`
	Model      string   `json:"model"`
	Response   string   `json:"response"`
	DurationMs int64    `json:"duration_ms"`
	File       string   `json:"file,omitempty"`
	Related    int      `json:"related"`
	Warnings   []string `json:"warnings,omitempty"`
}

// HandleAsk sends one question, waits for the answer and prints it.
func HandleAsk(args Args) error {
	app, err := OpenApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Ask(args.Query, args.File)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("ask", res).Print()
	}
	printAnswer(os.Stdout, res, app.CurrentConfig().UI.Markdown)
	return nil
}

// Ask runs a single question through the session. A failed request is
// returned as an error; a storage failure after a good answer is reported as
// a warning.
func (a *App) Ask(query, file string) (*AskResult, error) {
	orch, err := a.Session()
	if err != nil {
		return nil, err
	}

	if err := a.preflight(orch.Snapshot().Model); err != nil {
		return nil, err
	}

	if file != "" {
		name, content, err := readAttachment(file)
		if err != nil {
			return nil, NewCommandError("ask", "attach", err)
		}
		orch.SetFileContext(name, content)
	}

	if err := orch.Prefetch(context.Background(), query); err != nil {
		a.logger.Warn("related conversation lookup failed", "error", err)
	}

	id, err := orch.Send(query)
	if err != nil {
		return nil, err
	}

	msgs := awaitRequest(orch, id, a.CurrentConfig().Orchestrator.FrameInterval.Duration)
	s := orch.Snapshot()

	res := &AskResult{
		RequestID: id,
		File:      s.FileName,
		Related:   len(s.Suggestions),
	}
	var failure string
	for _, m := range msgs {
		switch m.Role {
		case model.RoleAssistant:
			res.Response = m.Content
			res.Model = m.Model
			res.DurationMs = m.ResponseTime.Milliseconds()
		case model.RoleError:
			if failure == "" {
				failure = m.Content
			}
			res.Warnings = append(res.Warnings, m.Content)
		}
	}

	if res.Response == "" {
		if failure == "" {
			failure = "no response"
		}
		return nil, NewCommandError("ask", "request", errors.New(failure))
	}
	return res, nil
}

// preflight checks that the server is up and name is installed. Ctrl+C aborts
// it. A model list the server will not give is logged and skipped.
func (a *App) preflight(name string) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, preflightTimeout)
	defer cancel()

	if err := a.Client.CheckRunning(ctx); err != nil {
		return err
	}
	if name == "" {
		return nil
	}

	models, err := a.Client.ListModels(ctx)
	if err != nil {
		if errors.Is(err, ollama.ErrCanceled) {
			return err
		}
		a.logger.Warn("model list unavailable", "error", err)
		return nil
	}
	if !slices.ContainsFunc(models, func(m ollama.ModelInfo) bool { return modelMatches(m, name) }) {
		return fmt.Errorf("model %q is not installed: %w", name, ollama.ErrModelNotFound)
	}
	return nil
}

// printAnswer writes the answer and its stats line.
func printAnswer(w io.Writer, res *AskResult, markdown bool) {
	fmt.Fprintln(w, strings.TrimRight(renderMarkdown(res.Response, markdown), "\n"))

	stats := fmt.Sprintf("%s | %s", res.Model, formatDuration(time.Duration(res.DurationMs)*time.Millisecond))
	if res.Related > 0 {
		stats += fmt.Sprintf(" | %d related", res.Related)
	}
	fmt.Fprintln(w, DimStyle.Render(stats))

	for _, warn := range res.Warnings {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(warn))
	}
}

// readAttachment loads a file for use as prompt context.
func readAttachment(path string) (string, string, error) {
	expanded, err := util.ExpandHome(path)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > commands.MaxFileSize {
		return "", "", fmt.Errorf("%s is larger than %d bytes", path, commands.MaxFileSize)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", "", err
	}
	return filepath.Base(expanded), string(data), nil
}
