// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgParser splits command arguments into flags and positionals.
//
//	--flag value | --flag=value | -f value   valued flag
//	--flag                                   switch
//	--                                       everything after is positional
//
// Names passed as switches never consume the following argument, so
// "recall ask --json what is go" keeps "what is go" positional.
type ArgParser struct {
	values     map[string]string
	switches   map[string]bool
	positional []string
}

// NewArgParser parses raw. switches names the flags that take no value.
func NewArgParser(raw []string, switches ...string) *ArgParser {
	p := &ArgParser{
		values:   make(map[string]string),
		switches: make(map[string]bool),
	}
	isSwitch := make(map[string]bool, len(switches))
	for _, name := range switches {
		isSwitch[name] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		switch {
		case arg == "--":
			p.positional = append(p.positional, raw[i+1:]...)
			return p
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if isSwitch[k] || v == "true" || v == "false" {
				on, err := ParseBoolString(v)
				p.switches[k] = err == nil && on
			} else {
				p.values[k] = v
			}
			continue
		}
		if !isSwitch[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			i++
			p.values[name] = raw[i]
			continue
		}
		p.switches[name] = true
	}
	return p
}

// Subcommand is the first positional argument.
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of the first of names that was given.
func (p *ArgParser) Flag(names ...string) string {
	for _, name := range names {
		if v, ok := p.values[strings.TrimLeft(name, "-")]; ok {
			return v
		}
	}
	return ""
}

// FlagInt returns a flag as a positive integer, or def when unset.
func (p *ArgParser) FlagInt(name string, def int) (int, error) {
	v := p.Flag(name)
	if v == "" {
		return def, nil
	}
	return ParseIntWithValidation(v, "--"+name)
}

// BoolFlag reports whether any of names was switched on.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, name := range names {
		if p.switches[strings.TrimLeft(name, "-")] {
			return true
		}
	}
	return false
}

func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positionals from index on, never nil.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// ParseIntWithValidation parses a positive integer; fieldName labels errors.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", fieldName)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", fieldName, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", fieldName, n)
	}
	return n, nil
}

// ParseBoolString accepts true/false, yes/no, y/n, 1/0 and on/off.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}
