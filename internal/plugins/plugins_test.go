// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugins

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslator(t *testing.T) {
	out, err := Translator("French").Process(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "[Translated to French]: hello", out)

	out, err = Plugin{Kind: KindTranslator}.Process(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "[Translated to Spanish]: hi", out)
}

func TestSummarizer(t *testing.T) {
	p := Summarizer(5)

	out, err := p.Process(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, "short", out)

	out, err = p.Process(context.Background(), "longer text")
	require.NoError(t, err)
	assert.Equal(t, "longe...", out)

	// Runes, not bytes
	out, err = p.Process(context.Background(), "日本語のテキスト")
	require.NoError(t, err)
	assert.Equal(t, "日本語のテ...", out)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Summarizer ")
	require.NoError(t, err)
	assert.Equal(t, KindSummarizer, k)

	_, err = ParseKind("shouter")
	assert.Error(t, err)
}

func TestRegistry_ApplyInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Summarizer(4))
	r.Register(Translator("German"))

	out, err := r.Apply(context.Background(), "abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, "[Translated to German]: abcd...", out)
}

func TestRegistry_DisabledPluginsSkipped(t *testing.T) {
	r := NewRegistry()
	r.Register(Summarizer(4))
	r.Register(Translator("German"))
	require.True(t, r.SetEnabled("translator", false))
	assert.False(t, r.SetEnabled("missing", true))

	out, err := r.Apply(context.Background(), "abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, "abcd...", out)
}

func TestRegistry_EmptyIsIdentity(t *testing.T) {
	out, err := NewRegistry().Apply(context.Background(), "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(Translator("German"))
	r.Register(Summarizer(100))
	r.Register(Translator("Italian"))

	enabled := r.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, KindTranslator, enabled[0].Kind)
	assert.Equal(t, "Italian", enabled[0].Language)
}

func TestFromNames(t *testing.T) {
	r, err := FromNames([]string{"summarizer"}, "Spanish", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"summarizer", "translator"}, r.Names())
	assert.Equal(t, "summarizer (on), translator (off)", r.Describe())

	out, err := r.Apply(context.Background(), strings.Repeat("x", 20))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 10)+"...", out)

	_, err = FromNames([]string{"bogus"}, "", 0)
	assert.Error(t, err)
}

func TestApply_CanceledContext(t *testing.T) {
	r := NewRegistry()
	r.Register(Translator("German"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Apply(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
