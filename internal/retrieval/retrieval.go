// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigrun-recall/internal/storage"
)

const (
	// MaxKeywords is how many leading words of a query are searched.
	MaxKeywords = 3

	// DefaultLimit is the number of suggestions fetched per refresh.
	DefaultLimit = 3

	// DefaultContextEntries is how many suggestions are injected into a prompt.
	DefaultContextEntries = 2

	// DefaultMinQueryLength is the input length a query must exceed before
	// suggestions are fetched.
	DefaultMinQueryLength = 10
)

// Searcher is the slice of the conversation store retrieval reads from.
type Searcher interface {
	Matching(ctx context.Context, keywords []string, limit int) ([]storage.Entry, error)
}

// Engine looks up related exchanges in the log.
type Engine struct {
	store Searcher
}

// NewEngine creates an engine over store.
func NewEngine(store Searcher) *Engine {
	return &Engine{store: store}
}

// Keywords returns the first MaxKeywords whitespace-separated words of query,
// in Unicode NFC.
func Keywords(query string) []string {
	words := strings.Fields(norm.NFC.String(query))
	if len(words) > MaxKeywords {
		words = words[:MaxKeywords]
	}
	return words
}

// Find returns up to limit entries matching any keyword of query, newest
// first. An empty query or no match yields an empty slice.
func (e *Engine) Find(ctx context.Context, query string, limit int) ([]storage.Entry, error) {
	kw := Keywords(query)
	if len(kw) == 0 {
		return []storage.Entry{}, nil
	}
	return e.store.Matching(ctx, kw, limit)
}

// ShouldRefresh reports whether input is worth a suggestion lookup: it must be
// non-blank after trimming and longer than minLen bytes.
func ShouldRefresh(input string, minLen int) bool {
	trimmed := strings.TrimSpace(input)
	return trimmed != "" && len(trimmed) > minLen
}
