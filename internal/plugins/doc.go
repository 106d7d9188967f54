// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package plugins post-processes model answers before they are displayed.
//
// The set of plugin kinds is closed (translator, summarizer). A Registry holds
// configured instances keyed by name and applies the enabled ones in
// registration order. The stored log always keeps the raw answer.
package plugins
