// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperr defines the single error shape shared by the conversation core.
package apperr

import (
	"context"
	"errors"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind categorizes an AppError.
type Kind int

const (
	KindUnknown Kind = iota
	KindStorage
	KindIO
	KindParse
	KindGeneration
	KindTimeout
	KindCanceled
	KindNotFound
	KindInvalid
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindGeneration:
		return "generation"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// =============================================================================
// APP ERROR
// =============================================================================

// AppError is the common error shape of the core.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError with the same kind and message, which lets
// the sentinel values below be used with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Sentinel errors.
var (
	ErrNotFound     = &AppError{Kind: KindNotFound, Message: "conversation not found"}
	ErrEmptyModel   = &AppError{Kind: KindInvalid, Message: "model name is empty"}
	ErrEmptyAddress = &AppError{Kind: KindInvalid, Message: "server endpoint is empty"}
)

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// New creates an AppError without a cause.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an AppError around cause. A nil cause yields nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

// Storage wraps a backing-store failure for the named operation.
func Storage(op string, err error) error {
	return Wrap(KindStorage, op, err)
}

// IO wraps a filesystem failure for the named operation.
func IO(op string, err error) error {
	return Wrap(KindIO, op, err)
}

// Parse wraps a decoding failure (timestamps, config values).
func Parse(op string, err error) error {
	return Wrap(KindParse, op, err)
}

// Generation wraps a model-server failure. Context errors are mapped to
// KindTimeout and KindCanceled so the presentation layer can tell a stuck
// request apart from a server error.
func Generation(err error) error {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Kind: KindTimeout, Message: "request timed out", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Kind: KindCanceled, Message: "request canceled", Cause: err}
	}
	return &AppError{Kind: KindGeneration, Message: "generation failed", Cause: err}
}

// =============================================================================
// INSPECTION
// =============================================================================

// KindOf returns the kind of the first AppError in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var app *AppError
	if errors.As(err, &app) {
		return app.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the display text for err. AppErrors render their full
// chain; other errors are returned verbatim.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
