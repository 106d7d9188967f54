// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// maxFileCompletions caps directory listings.
const maxFileCompletions = 20

// Completion is one candidate for the word being typed. Value replaces the
// word; Display is what the popup shows.
type Completion struct {
	Value       string
	Display     string
	Description string
	Score       int
}

// Completer completes slash commands and their arguments. ModelsFn and
// PluginsFn supply the dynamic candidate lists; a nil func offers nothing.
type Completer struct {
	registry  *Registry
	ModelsFn  func() []string
	PluginsFn func() []string
}

func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns candidates for the last word of input, best first. Plain
// chat text yields nil.
func (c *Completer) Complete(input string) []Completion {
	if !IsCommand(input) {
		return nil
	}

	words := splitCommandLine(input)
	atNewWord := strings.HasSuffix(input, " ")
	if len(words) == 1 && !atNewWord {
		return c.completeCommands(words[0])
	}
	if len(words) == 0 {
		return c.completeCommands("")
	}

	cmd := c.registry.Get(strings.ToLower(words[0]))
	if cmd == nil {
		return nil
	}
	if atNewWord {
		return c.completeArg(cmd, len(words)-1, "")
	}
	return c.completeArg(cmd, len(words)-2, words[len(words)-1])
}

// Lines returns whole replacement lines for input, the form liner's
// completer wants.
func (c *Completer) Lines(input string) []string {
	comps := c.Complete(input)
	if len(comps) == 0 {
		return nil
	}
	head := input
	if !strings.HasSuffix(input, " ") {
		head = input[:strings.LastIndex(input, " ")+1]
	}
	out := make([]string, len(comps))
	for i, comp := range comps {
		out[i] = head + comp.Value
	}
	return out
}

func (c *Completer) completeCommands(partial string) []Completion {
	partial = strings.ToLower(partial)
	var out []Completion
	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			out = append(out, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       score(cmd.Name, partial),
			})
		}
		// a bare "/" lists each command once
		if len(partial) < 2 {
			continue
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(alias, partial) {
				out = append(out, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       score(alias, partial) - 10,
				})
			}
		}
	}
	rank(out)
	return out
}

func (c *Completer) completeArg(cmd *Command, index int, partial string) []Completion {
	if index < 0 || index >= len(cmd.Args) {
		return nil
	}
	def := cmd.Args[index]

	var values []string
	switch def.Type {
	case ArgTypeFile:
		return completeFiles(partial)
	case ArgTypeEnum:
		values = def.Values
	case ArgTypeModel:
		if c.ModelsFn != nil {
			values = c.ModelsFn()
		}
	case ArgTypePlugin:
		if c.PluginsFn != nil {
			values = c.PluginsFn()
		}
	}

	lower := strings.ToLower(partial)
	var out []Completion
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), lower) {
			out = append(out, Completion{Value: v, Display: v, Score: score(v, partial)})
		}
	}
	rank(out)
	return out
}

// completeFiles lists the entries of partial's directory that start with its
// last element. Dot files show only once the user types the dot.
func completeFiles(partial string) []Completion {
	dir, prefix := filepath.Split(partial)
	entries, err := os.ReadDir(cmp.Or(dir, "."))
	if err != nil {
		return nil
	}

	lower := strings.ToLower(prefix)
	var out []Completion
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), lower) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		comp := Completion{Value: dir + name, Display: name, Description: "file", Score: score(name, prefix)}
		if entry.IsDir() {
			comp.Value += string(os.PathSeparator)
			comp.Description = "directory"
			comp.Score += 5
		}
		out = append(out, comp)
	}

	rank(out)
	if len(out) > maxFileCompletions {
		out = out[:maxFileCompletions]
	}
	return out
}

// score ranks an exact match highest, then shorter candidates.
func score(value, partial string) int {
	if strings.EqualFold(value, partial) {
		return 200
	}
	return 100 - len(value)
}

// rank orders by score, then alphabetically.
func rank(comps []Completion) {
	slices.SortStableFunc(comps, func(a, b Completion) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.Value, b.Value)
	})
}

// CompletionState is the completion popup of the chat input.
type CompletionState struct {
	Completions []Completion
	Selected    int
	Visible     bool
}

// Update shows comps with the first selected.
func (cs *CompletionState) Update(comps []Completion) {
	cs.Completions = comps
	cs.Selected = 0
	cs.Visible = len(comps) > 0
}

// Next and Prev move the selection, wrapping at either end.
func (cs *CompletionState) Next() { cs.move(1) }
func (cs *CompletionState) Prev() { cs.move(-1) }

func (cs *CompletionState) move(delta int) {
	n := len(cs.Completions)
	if n == 0 {
		return
	}
	cs.Selected = ((cs.Selected+delta)%n + n) % n
}

// Accept returns the selected value, or "" with no candidates.
func (cs *CompletionState) Accept() string {
	if len(cs.Completions) == 0 {
		return ""
	}
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return cs.Completions[0].Value
	}
	return cs.Completions[cs.Selected].Value
}

// Clear hides and empties the popup.
func (cs *CompletionState) Clear() {
	*cs = CompletionState{}
}
