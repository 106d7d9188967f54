// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"runtime"
	"strings"
	"sync"
)

// =============================================================================
// ERROR CATEGORIES
// =============================================================================

// Category groups failures for display.
type Category string

const (
	CategoryNetwork Category = "Network"
	CategoryModel   Category = "Model"
	CategoryTimeout Category = "Timeout"
	CategoryStorage Category = "Storage"
	CategoryConfig  Category = "Config"
	CategoryInput   Category = "Input"
	CategoryUnknown Category = "Error"
)

// =============================================================================
// HINT MATCHER
// =============================================================================

// Pattern maps failure text to advice.
type Pattern struct {
	// Keywords are matched case-insensitively; any one triggers the pattern
	Keywords []string

	Category    Category
	Title       string
	Suggestions []string
}

// Hint is the advice for one failure.
type Hint struct {
	Category    Category
	Title       string
	Suggestions []string
}

// Matcher finds the first pattern whose keywords occur in a failure message.
type Matcher struct {
	mu       sync.RWMutex
	patterns []Pattern
}

var (
	defaultMatcher     *Matcher
	defaultMatcherOnce sync.Once
)

// DefaultMatcher returns the shared matcher with the built-in patterns.
func DefaultMatcher() *Matcher {
	defaultMatcherOnce.Do(func() {
		defaultMatcher = NewMatcher()
	})
	return defaultMatcher
}

// NewMatcher creates a matcher with the built-in patterns.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.registerDefaults()
	return m
}

// Add appends p. Earlier patterns win.
func (m *Matcher) Add(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, p)
}

// Match returns the hint for msg.
func (m *Matcher) Match(msg string) (Hint, bool) {
	lower := strings.ToLower(msg)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patterns {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Hint{Category: p.Category, Title: p.Title, Suggestions: p.Suggestions}, true
			}
		}
	}
	return Hint{Category: CategoryUnknown}, false
}

// Suggest returns the first suggestion for msg, or "".
func Suggest(msg string) string {
	h, ok := DefaultMatcher().Match(msg)
	if !ok || len(h.Suggestions) == 0 {
		return ""
	}
	return h.Suggestions[0]
}

// registerDefaults adds the built-in patterns, most specific first.
func (m *Matcher) registerDefaults() {
	m.Add(Pattern{
		Keywords:    []string{"ollama is not running", "connection refused", "no such host"},
		Category:    CategoryNetwork,
		Title:       "Model server not reachable",
		Suggestions: serverStartSuggestions(),
	})

	m.Add(Pattern{
		Keywords: []string{"model not found", "' not found", "\" not found", "try pulling it"},
		Category: CategoryModel,
		Title:    "Model not installed",
		Suggestions: []string{
			"Pull it: ollama pull <model>, or switch with /model",
			"List installed models: recall status",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"model name is empty"},
		Category: CategoryInput,
		Title:    "No model selected",
		Suggestions: []string{
			"Pick one with /model <name> or set server.model",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"server endpoint is empty"},
		Category: CategoryInput,
		Title:    "No endpoint set",
		Suggestions: []string{
			"Set one with /endpoint <url> or server.endpoint",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"timed out", "deadline exceeded"},
		Category: CategoryTimeout,
		Title:    "Request timed out",
		Suggestions: []string{
			"Raise orchestrator.request_timeout or try a smaller model",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"database is locked", "sqlite_busy"},
		Category: CategoryStorage,
		Title:    "Conversation log busy",
		Suggestions: []string{
			"Another recall may be writing; retry in a moment",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"no space left", "disk full", "enospc"},
		Category: CategoryStorage,
		Title:    "Disk full",
		Suggestions: []string{
			"Free space in the data directory (recall config get storage.data_dir)",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"permission denied"},
		Category: CategoryStorage,
		Title:    "Permission denied",
		Suggestions: []string{
			"Check ownership of the data directory and config file",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"unknown keys in", "unknown key:"},
		Category: CategoryConfig,
		Title:    "Unknown config key",
		Suggestions: []string{
			"List valid keys: recall config keys",
		},
	})

	m.Add(Pattern{
		Keywords: []string{"invalid config", "invalid flags", "failed to decode"},
		Category: CategoryConfig,
		Title:    "Configuration error",
		Suggestions: []string{
			"Check the file: recall config path",
		},
	})
}

// serverStartSuggestions returns how to start Ollama on this platform.
func serverStartSuggestions() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			"Start Ollama: ollama serve",
			"Verify Ollama is in your PATH",
		}
	case "darwin":
		return []string{
			"Start Ollama: ollama serve, or launch Ollama.app",
			"Check the endpoint: recall config get server.endpoint",
		}
	default:
		return []string{
			"Start Ollama: ollama serve (or sudo systemctl start ollama)",
			"Check the endpoint: recall config get server.endpoint",
		}
	}
}
