// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Output is wrapped to the terminal width, never narrower than
// MinTerminalWidth; DefaultTerminalWidth applies when stdout is not a TTY.
const (
	DefaultTerminalWidth = 80
	MinTerminalWidth     = 40
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsStdoutTTY reports whether stdout is a terminal. Markdown rendering and
// highlighting are skipped otherwise so piped answers stay plain.
func IsStdoutTTY() bool {
	return isTerminal(os.Stdout)
}

// GetTerminalWidth returns the column count of stdout.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return max(width, MinTerminalWidth)
}

var colorProfile = sync.OnceValue(func() termenv.Profile {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return termenv.Ascii
	case os.Getenv("FORCE_COLOR") != "":
		return termenv.ColorProfile()
	case !IsStdoutTTY():
		return termenv.Ascii
	default:
		return termenv.ColorProfile()
	}
})

// GetColorProfile is the profile CLI styles render with. NO_COLOR beats
// FORCE_COLOR, which beats TTY detection.
func GetColorProfile() termenv.Profile {
	return colorProfile()
}

// TTYRequiredError is returned by interactive commands run without a
// terminal on stdin.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	return "stdin is not a terminal; cannot " + e.Operation + " interactively"
}

// RequiresTTY fails with a TTYRequiredError unless stdin is a terminal.
func RequiresTTY(operation string) error {
	if !isTerminal(os.Stdin) {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}
