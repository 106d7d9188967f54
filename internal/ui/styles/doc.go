// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the chat screen.
//
// Colors are lipgloss AdaptiveColors and resolve against the terminal
// background. NewTheme("dark") or NewTheme("light") pins the background
// instead of detecting it.
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.ErrorText.Render("Error: model name is empty"))
package styles
