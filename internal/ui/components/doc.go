// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components holds presentation helpers shared by the chat screen
// and the command line.
//
// Matcher turns failure text ("Error: ...", "Storage error: ...") into a
// short, actionable hint:
//
//	if hint := components.Suggest(state.LastError); hint != "" {
//	    fmt.Println("hint:", hint)
//	}
//
// HighlightCodeBlocks colors fenced code in answers shown without markdown
// rendering.
package components
