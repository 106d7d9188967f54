// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analytics derives usage metrics from the conversation log.
//
// A Snapshot is recomputed wholesale on every refresh from a handful of
// independent read-only queries. Nothing is cached between refreshes, and a
// snapshot taken while another goroutine appends may mix before and after
// values.
package analytics
