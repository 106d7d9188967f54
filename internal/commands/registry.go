// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"slices"
	"strings"

	"github.com/jeranaias/rigrun-recall/internal/export"
)

// Handler runs a command with its arguments, already split and validated.
type Handler func(ctx *Context, args []string) (Result, error)

// Command is one slash command of the chat input.
type Command struct {
	Name        string   // "/model"
	Aliases     []string // "/m"
	Description string
	Usage       string // "/model [name]", defaults to Name in help
	Args        []ArgDef
	Handler     Handler
	Hidden      bool   // left out of help and completion
	Category    string // help section, "General" when empty
}

// ArgDef describes one positional argument. Type drives completion; enum
// values are also enforced by ValidateArgs.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string
	Values      []string
}

type ArgType int

const (
	ArgTypeString ArgType = iota
	ArgTypeModel          // installed model names
	ArgTypeFile           // filesystem path
	ArgTypeEnum           // one of ArgDef.Values
	ArgTypePlugin         // registered plugin names
)

// Registry maps names and aliases to commands. It is populated before the
// chat loop starts and read-only afterwards.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry returns a registry holding the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	for _, cmd := range builtins() {
		r.Register(cmd)
	}
	return r
}

// Register adds cmd. A command with the same name is replaced.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get looks name up as a command name first, then as an alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	return r.aliases[name]
}

// All returns every command ordered by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return cmds
}

// ByCategory groups the visible commands by help section.
func (r *Registry) ByCategory() map[string][]*Command {
	groups := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		groups[category] = append(groups[category], cmd)
	}
	return groups
}

// categoryOrder is the order of sections in /help.
var categoryOrder = []string{"Conversation", "Model", "Context", "General"}

var onOff = []string{"on", "off"}

func builtins() []*Command {
	return []*Command{
		// Conversation
		{Name: "/clear", Aliases: []string{"/c"}, Category: "Conversation",
			Description: "Clear the chat window (the log is kept)", Handler: handleClear},
		{Name: "/cancel", Category: "Conversation",
			Description: "Cancel the request in flight", Handler: handleCancel},
		{Name: "/export", Category: "Conversation", Usage: "/export [txt|md|json]",
			Description: "Export the chat to a file", Handler: handleExport,
			Args: []ArgDef{{Name: "format", Type: ArgTypeEnum, Values: export.Formats, Description: "Export format"}}},
		{Name: "/stats", Aliases: []string{"/analytics"}, Category: "Conversation",
			Description: "Refresh and show usage analytics", Handler: handleStats},

		// Model
		{Name: "/model", Aliases: []string{"/m"}, Category: "Model", Usage: "/model [name]",
			Description: "Show or switch the model", Handler: handleModel,
			Args: []ArgDef{{Name: "name", Type: ArgTypeModel, Description: "Model to switch to"}}},
		{Name: "/endpoint", Category: "Model", Usage: "/endpoint [url]",
			Description: "Show or change the generate URL", Handler: handleEndpoint,
			Args: []ArgDef{{Name: "url", Description: "Generate endpoint URL"}}},

		// Context
		{Name: "/rag", Category: "Context", Usage: "/rag [on|off]",
			Description: "Toggle related-conversation context", Handler: handleRAG,
			Args: []ArgDef{{Name: "state", Type: ArgTypeEnum, Values: onOff, Description: "Enable or disable"}}},
		{Name: "/file", Category: "Context", Usage: "/file [path]",
			Description: "Attach a file as context, or detach with no argument", Handler: handleFile,
			Args: []ArgDef{{Name: "path", Type: ArgTypeFile, Description: "File to attach"}}},
		{Name: "/plugins", Category: "Context", Usage: "/plugins [name on|off]",
			Description: "List plugins or toggle one", Handler: handlePlugins,
			Args: []ArgDef{
				{Name: "name", Type: ArgTypePlugin, Description: "Plugin name"},
				{Name: "state", Type: ArgTypeEnum, Values: onOff, Description: "Enable or disable"},
			}},

		// General
		{Name: "/help", Aliases: []string{"/h", "/?"}, Category: "General",
			Description: "Show available commands", Handler: handleHelp},
		{Name: "/quit", Aliases: []string{"/q", "/exit"}, Category: "General",
			Description: "Exit recall", Handler: handleQuit},
	}
}
