// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigrun-recall/internal/export"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Session is the part of the orchestrator that commands drive.
type Session interface {
	Snapshot() orchestrator.State
	SetModel(name string)
	SetEndpoint(url string)
	SetRetrievalEnabled(enabled bool)
	SetFileContext(name, content string)
	ClearFileContext()
	ClearChat()
	Cancel() bool
	RefreshAnalytics() string
}

// MaxFileSize caps attached files.
const MaxFileSize = 1 << 20

// Context gives handlers access to the running application.
type Context struct {
	Session  Session
	Plugins  *plugins.Registry
	Registry *Registry

	// ExportDir receives /export output (default: current directory)
	ExportDir string

	// ReadFile loads /file attachments (default: os.ReadFile)
	ReadFile func(path string) ([]byte, error)
}

// Result tells the front end what a command did.
type Result struct {
	// Output is text to show the user
	Output string

	// Quit asks the front end to exit
	Quit bool

	// Cleared means the chat window was emptied
	Cleared bool

	// Await is a background request ID whose result the front end should
	// wait for before showing Output
	Await string
}

// ErrUnknownCommand is returned for an unregistered slash command.
var ErrUnknownCommand = errors.New("unknown command")

// Execute parses input and runs the matching command. ok is false when input
// is not a slash command at all.
func (r *Registry) Execute(ctx *Context, input string) (res Result, ok bool, err error) {
	parsed := NewParser(r).Parse(input)
	if !parsed.IsCommand {
		return Result{}, false, nil
	}
	if parsed.Command == nil {
		return Result{}, true, fmt.Errorf("%w: %s (try /help)", ErrUnknownCommand, parsed.CommandName)
	}
	if err := ValidateArgs(parsed.Command, parsed.Args); err != nil {
		return Result{}, true, err
	}
	if ctx.Registry == nil {
		ctx.Registry = r
	}
	res, err = parsed.Command.Handler(ctx, parsed.Args)
	return res, true, err
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelp(ctx *Context, _ []string) (Result, error) {
	if ctx.Registry == nil {
		return Result{Output: "No commands registered."}, nil
	}
	return Result{Output: HelpText(ctx.Registry)}, nil
}

// HelpText renders the command list grouped by category.
func HelpText(r *Registry) string {
	groups := r.ByCategory()

	var sb strings.Builder
	for _, category := range categoryOrder {
		cmds := groups[category]
		if len(cmds) == 0 {
			continue
		}
		sb.WriteString(category + ":\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&sb, "  %s %s\n", util.PadRight(usage, 24), cmd.Description)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func handleQuit(_ *Context, _ []string) (Result, error) {
	return Result{Quit: true}, nil
}

func handleClear(ctx *Context, _ []string) (Result, error) {
	ctx.Session.ClearChat()
	return Result{Cleared: true}, nil
}

func handleCancel(ctx *Context, _ []string) (Result, error) {
	if ctx.Session.Cancel() {
		return Result{Output: "Request canceled."}, nil
	}
	return Result{Output: "Nothing to cancel."}, nil
}

func handleExport(ctx *Context, args []string) (Result, error) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return Result{}, err
	}

	msgs := ctx.Session.Snapshot().Messages
	path, err := export.ToFile(msgs, format, &export.Options{OutputDir: ctx.ExportDir, IncludeMetadata: true})
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("Exported %d messages to %s", len(msgs), path)}, nil
}

func handleStats(ctx *Context, _ []string) (Result, error) {
	id := ctx.Session.RefreshAnalytics()
	if id == "" {
		return Result{}, errors.New("analytics are not available")
	}
	return Result{Output: "Refreshing analytics...", Await: id}, nil
}

func handleModel(ctx *Context, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Output: "Current model: " + orNone(ctx.Session.Snapshot().Model)}, nil
	}
	ctx.Session.SetModel(args[0])
	return Result{Output: "Switched to model " + args[0]}, nil
}

func handleEndpoint(ctx *Context, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{Output: "Current endpoint: " + orNone(ctx.Session.Snapshot().Endpoint)}, nil
	}
	ctx.Session.SetEndpoint(args[0])
	return Result{Output: "Endpoint set to " + args[0]}, nil
}

func handleRAG(ctx *Context, args []string) (Result, error) {
	enabled := !ctx.Session.Snapshot().RetrievalEnabled
	if len(args) > 0 {
		enabled = strings.EqualFold(args[0], "on")
	}
	ctx.Session.SetRetrievalEnabled(enabled)
	if enabled {
		return Result{Output: "Related-conversation context on."}, nil
	}
	return Result{Output: "Related-conversation context off."}, nil
}

func handleFile(ctx *Context, args []string) (Result, error) {
	if len(args) == 0 {
		ctx.Session.ClearFileContext()
		return Result{Output: "File context cleared."}, nil
	}

	path, err := util.ExpandHome(args[0])
	if err != nil {
		return Result{}, err
	}
	if info, err := os.Stat(path); err == nil && info.Size() > MaxFileSize {
		return Result{}, fmt.Errorf("%s is larger than %d bytes", args[0], MaxFileSize)
	}

	read := ctx.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", args[0], err)
	}

	name := filepath.Base(path)
	ctx.Session.SetFileContext(name, string(data))
	return Result{Output: fmt.Sprintf("Attached %s (%d bytes).", name, len(data))}, nil
}

func handlePlugins(ctx *Context, args []string) (Result, error) {
	if ctx.Plugins == nil {
		return Result{Output: "No plugins configured."}, nil
	}
	if len(args) == 0 {
		return Result{Output: "Plugins: " + ctx.Plugins.Describe()}, nil
	}
	if len(args) < 2 {
		return Result{}, fmt.Errorf("usage: /plugins <name> on|off")
	}

	kind, err := plugins.ParseKind(args[0])
	if err != nil {
		return Result{}, err
	}
	name := kind.String()
	enabled := strings.EqualFold(args[1], "on")
	if !ctx.Plugins.SetEnabled(name, enabled) {
		ctx.Plugins.Register(defaultPlugin(kind, enabled))
	}
	return Result{Output: "Plugins: " + ctx.Plugins.Describe()}, nil
}

// defaultPlugin builds an unregistered plugin with stock settings.
func defaultPlugin(kind plugins.Kind, enabled bool) plugins.Plugin {
	var p plugins.Plugin
	switch kind {
	case plugins.KindTranslator:
		p = plugins.Translator(plugins.DefaultLanguage)
	default:
		p = plugins.Summarizer(plugins.DefaultMaxLength)
	}
	p.Enabled = enabled
	return p
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
