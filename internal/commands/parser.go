// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// ParseResult is one line of chat input split into a command and arguments.
// Command is nil for an unregistered name.
type ParseResult struct {
	IsCommand   bool
	Command     *Command
	CommandName string // lowercased, as typed: "/m"
	Args        []string
}

// Parser resolves command names against a registry.
type Parser struct {
	registry *Registry
}

func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse splits input. Only input whose first non-blank character is '/' is a
// command; anything else is a question for the model.
func (p *Parser) Parse(input string) ParseResult {
	if !IsCommand(input) {
		return ParseResult{}
	}
	res := ParseResult{IsCommand: true}
	tokens := splitCommandLine(strings.TrimSpace(input))
	if len(tokens) == 0 {
		return res
	}
	res.CommandName = strings.ToLower(tokens[0])
	res.Args = tokens[1:]
	if p.registry != nil {
		res.Command = p.registry.Get(res.CommandName)
	}
	return res
}

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// splitCommandLine tokenizes on whitespace. Quotes group words, so
// /file "my notes.txt" is one argument; inside quotes a backslash escapes
// the next quote or backslash. An empty pair of quotes yields "".
func splitCommandLine(input string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune // the open quote character, 0 outside quotes
		quoted bool // cur came from quotes, keep it even when empty
	)
	emit := func() {
		if cur.Len() > 0 || quoted {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		quoted = false
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote, quoted = r, true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0 && r == '\\' && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			i++
			cur.WriteRune(runes[i])
		case quote == 0 && unicode.IsSpace(r):
			emit()
		default:
			cur.WriteRune(r)
		}
	}
	emit()
	return tokens
}

// ValidationError reports a missing required argument or an enum value
// outside the allowed set.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s for argument '%s'", e.Command, e.Message, e.Arg)
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += ", expected: " + e.Expected
	}
	return msg
}

// ValidateArgs checks args against cmd's argument definitions. Enum values
// compare case-insensitively. Extra arguments are left to the handler.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}
	for i, def := range cmd.Args {
		if i >= len(args) {
			if def.Required {
				return &ValidationError{Command: cmd.Name, Arg: def.Name, Message: "required argument missing", Expected: def.Description}
			}
			continue
		}
		if def.Type != ArgTypeEnum || len(def.Values) == 0 {
			continue
		}
		got := args[i]
		if !slices.ContainsFunc(def.Values, func(v string) bool { return strings.EqualFold(v, got) }) {
			return &ValidationError{
				Command:  cmd.Name,
				Arg:      def.Name,
				Message:  "invalid value",
				Got:      got,
				Expected: strings.Join(def.Values, ", "),
			}
		}
	}
	return nil
}
