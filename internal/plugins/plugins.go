// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// PLUGIN DEFINITION
// =============================================================================

// Kind identifies a plugin variant.
type Kind int

const (
	KindTranslator Kind = iota + 1
	KindSummarizer
)

// String returns the registry name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTranslator:
		return "translator"
	case KindSummarizer:
		return "summarizer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Defaults for plugin settings.
const (
	DefaultLanguage  = "Spanish"
	DefaultMaxLength = 500
)

// Plugin is one configured transform.
type Plugin struct {
	Kind    Kind
	Enabled bool

	// Language is the translator's target language
	Language string

	// MaxLength is the summarizer's rune limit
	MaxLength int
}

// Name returns the key the plugin is registered under.
func (p Plugin) Name() string {
	return p.Kind.String()
}

// Process applies the plugin to input.
func (p Plugin) Process(_ context.Context, input string) (string, error) {
	switch p.Kind {
	case KindTranslator:
		lang := p.Language
		if lang == "" {
			lang = DefaultLanguage
		}
		return fmt.Sprintf("[Translated to %s]: %s", lang, input), nil
	case KindSummarizer:
		max := p.MaxLength
		if max <= 0 {
			max = DefaultMaxLength
		}
		if len([]rune(input)) <= max {
			return input, nil
		}
		return string([]rune(input)[:max]) + "...", nil
	default:
		return "", fmt.Errorf("unknown plugin kind %d", int(p.Kind))
	}
}

// Translator returns an enabled translator plugin.
func Translator(language string) Plugin {
	return Plugin{Kind: KindTranslator, Enabled: true, Language: language}
}

// Summarizer returns an enabled summarizer plugin.
func Summarizer(maxLength int) Plugin {
	return Plugin{Kind: KindSummarizer, Enabled: true, MaxLength: maxLength}
}

// ParseKind resolves a plugin name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "translator":
		return KindTranslator, nil
	case "summarizer":
		return KindSummarizer, nil
	default:
		return 0, fmt.Errorf("unknown plugin %q (available: translator, summarizer)", name)
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds plugins keyed by name.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds or replaces p. A replaced plugin keeps its position.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.plugins[name]; !exists {
		r.order = append(r.order, name)
	}
	r.plugins[name] = p
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[strings.ToLower(name)]
	return p, ok
}

// SetEnabled toggles a registered plugin. Returns false if name is unknown.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(name)
	p, ok := r.plugins[key]
	if !ok {
		return false
	}
	p.Enabled = enabled
	r.plugins[key] = p
	return true
}

// Names returns registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled returns the enabled plugins in registration order.
func (r *Registry) Enabled() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Plugin
	for _, name := range r.order {
		if p := r.plugins[name]; p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Apply runs every enabled plugin over input, each seeing the previous
// plugin's output. The first error stops the chain.
func (r *Registry) Apply(ctx context.Context, input string) (string, error) {
	result := input
	for _, p := range r.Enabled() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := p.Process(ctx, result)
		if err != nil {
			return "", fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		result = out
	}
	return result, nil
}

// Describe returns a one-line summary such as "summarizer (on), translator (off)".
func (r *Registry) Describe() string {
	names := r.Names()
	if len(names) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		p, _ := r.Get(name)
		state := "off"
		if p.Enabled {
			state = "on"
		}
		parts = append(parts, name+" ("+state+")")
	}
	return strings.Join(parts, ", ")
}

// FromNames builds a registry holding both plugin kinds, enabling those listed
// in enabled.
func FromNames(enabled []string, language string, maxLength int) (*Registry, error) {
	r := NewRegistry()
	tr := Translator(language)
	tr.Enabled = false
	sm := Summarizer(maxLength)
	sm.Enabled = false

	for _, name := range enabled {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindTranslator:
			tr.Enabled = true
		case KindSummarizer:
			sm.Enabled = true
		}
	}

	// Summarizer runs before translator.
	r.Register(sm)
	r.Register(tr)
	return r, nil
}
