// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// CODE BLOCK HIGHLIGHTING
// =============================================================================

// HighlightCodeBlocks colors the fenced code blocks in text and leaves the
// rest untouched. Fence lines are kept so the answer still reads as markdown.
// An unclosed fence is highlighted up to the end of text.
func HighlightCodeBlocks(text, style string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var code []string
	var language string
	inBlock := false

	flush := func() {
		out = append(out, highlight(strings.Join(code, "\n"), language, style))
		code = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```") && inBlock:
			flush()
			out = append(out, line)
			inBlock = false
		case strings.HasPrefix(trimmed, "```"):
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			out = append(out, line)
			inBlock = true
		case inBlock:
			code = append(code, line)
		default:
			out = append(out, line)
		}
	}
	if inBlock && len(code) > 0 {
		flush()
	}
	return strings.Join(out, "\n")
}

// highlight returns code colored for a 256-color terminal, or code itself
// when no lexer or formatter applies.
func highlight(code, language, style string) string {
	if code == "" {
		return code
	}

	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return code
	}
	s := chromaStyles.Get(style)
	if s == nil {
		s = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, s, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
