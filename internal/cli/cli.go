// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdStats
	CmdSearch
	CmdHistory
	CmdMirrors
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdStats:
		return "stats"
	case CmdSearch:
		return "search"
	case CmdHistory:
		return "history"
	case CmdMirrors:
		return "mirrors"
	case CmdConfig:
		return "config"
	case CmdStatus:
		return "status"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// DefaultListLimit bounds history and search output.
const DefaultListLimit = 10

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Model      string
	Endpoint   string
	DataDir    string
	NoRAG      bool
	File       string
	JSON       bool
	Limit      int

	// Command-specific
	Query      string
	Subcommand string
	Positional []string
}

var boolFlags = []string{"no-rag", "json", "help", "h", "version", "v"}

var commandNames = map[string]Command{
	"tui":       CmdTUI,
	"chat":      CmdChat,
	"ask":       CmdAsk,
	"stats":     CmdStats,
	"analytics": CmdStats,
	"search":    CmdSearch,
	"history":   CmdHistory,
	"mirrors":   CmdMirrors,
	"config":    CmdConfig,
	"status":    CmdStatus,
	"s":         CmdStatus,
	"version":   CmdVersion,
	"help":      CmdHelp,
}

const usageText = `recall - chat with a local model and recall past conversations

Usage:
  recall                        Start the interactive screen (default)
  recall chat                   Line-mode chat with history and completion
  recall ask "question"         Ask a single question
  recall stats                  Show usage analytics
  recall search <words>         Find past conversations by keyword
  recall history                List recent conversations
  recall mirrors check|rebuild  Check or regenerate per-conversation files
  recall config [show|get|set|path|keys]
                                View and modify configuration
  recall status                 Check the model server
  recall version                Show version information
  recall help                   Show this help

Global flags:
  --config PATH       Config file (default: ~/.recall/config.toml)
  -m, --model NAME    Model to use
  --endpoint URL      Generate endpoint
  --data-dir DIR      Conversation log directory
  --no-rag            Do not add related conversations to prompts
  -f, --file PATH     Attach a file to the first question
  --limit N           Rows for history and search (default: 10)
  --json              Machine-readable output

Environment:
  RECALL_CONFIG, RECALL_MODEL, RECALL_ENDPOINT, RECALL_DATA_DIR,
  RECALL_RAG, RECALL_LOG_LEVEL

Examples:
  recall ask "how do I rotate nginx logs?"
  recall ask -f nginx.conf "what does this config do?"
  recall search nginx --limit 5
  recall config set server.model llama3
`

// Usage returns the help text.
func Usage() string {
	return usageText
}

// VersionString returns the version line.
func VersionString() string {
	return fmt.Sprintf("recall %s (commit %s, built %s, %s/%s)",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments (without the program name). Global
// flags may appear anywhere.
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	limit, err := p.FlagInt("limit", DefaultListLimit)
	if err != nil {
		return CmdHelp, Args{}, NewUsageError(err.Error())
	}

	args := Args{
		ConfigPath: p.Flag("config"),
		Model:      p.Flag("model", "m"),
		Endpoint:   p.Flag("endpoint"),
		DataDir:    p.Flag("data-dir"),
		NoRAG:      p.BoolFlag("no-rag"),
		File:       p.Flag("file", "f"),
		JSON:       p.BoolFlag("json"),
		Limit:      limit,
	}

	if p.BoolFlag("help", "h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version", "v") {
		return CmdVersion, args, nil
	}
	if p.PositionalCount() == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(p.Subcommand())
	cmd, ok := commandNames[name]
	if !ok {
		msg := fmt.Sprintf("unknown command %q", name)
		if s := SuggestCommand(name); s != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return CmdHelp, args, NewUsageError(msg)
	}

	rest := p.PositionalFrom(1)
	args.Positional = rest
	if len(rest) > 0 {
		args.Subcommand = strings.ToLower(rest[0])
	}

	switch cmd {
	case CmdAsk, CmdSearch:
		args.Query = strings.TrimSpace(strings.Join(rest, " "))
		args.Subcommand = ""
		if args.Query == "" {
			return cmd, args, NewUsageError(fmt.Sprintf("%s needs a query", cmd))
		}
	case CmdMirrors:
		if args.Subcommand == "" {
			args.Subcommand = "check"
		}
		if args.Subcommand != "check" && args.Subcommand != "rebuild" {
			return cmd, args, NewUsageError("mirrors takes check or rebuild")
		}
	case CmdConfig:
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
	}
	return cmd, args, nil
}
