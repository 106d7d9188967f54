// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/rigrun-recall/internal/apperr"
	"github.com/jeranaias/rigrun-recall/internal/config"
	"github.com/jeranaias/rigrun-recall/internal/ollama"
	"github.com/jeranaias/rigrun-recall/internal/ui/components"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	ExitInterrupted   = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a UsageError.
func NewUsageError(msg string) error {
	return &UsageError{Message: msg}
}

// CommandError wraps a failure with the command and action that hit it.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err, or returns nil for a nil err.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var verrs config.ValidateErrors
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verrs):
		return ExitConfigError
	case errors.Is(err, context.DeadlineExceeded), apperr.Is(err, apperr.KindTimeout), ollama.IsTimeout(err):
		return ExitTimeoutError
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	case ollama.IsModelNotFound(err):
		return ExitNotFoundError
	case errors.Is(err, ollama.ErrCanceled), errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitGeneralError
	}
}

// DisplayError prints err to stderr, or as a JSON error document on stdout
// in JSON mode.
func DisplayError(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print()
		return
	}
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	if hint := components.Suggest(err.Error()); hint != "" {
		fmt.Fprintln(os.Stderr, DimStyle.Render("Hint: "+hint))
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, DimStyle.Render("Run 'recall help' for usage."))
	}
}
