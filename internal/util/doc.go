// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small file and string helpers shared by recall.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe replace with fsync + rename
//   - AtomicCreateFile: crash-safe create that never clobbers an existing file
//   - ExpandHome: resolves a leading "~" to the user's home directory
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation (CJK aware, via go-runewidth)
//   - SingleLine: collapses newlines for one-line previews
//
// # Usage
//
//	err := util.AtomicCreateFile(path, data, 0644)
//	if errors.Is(err, fs.ErrExist) {
//	    // already written
//	}
package util
