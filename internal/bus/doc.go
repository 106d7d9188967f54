// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bus carries results from background tasks to the interactive loop.
//
// Producers (worker goroutines) Post results; the single consumer drains the
// queue once per frame with TryDrain, which never blocks. If a producer holds
// the lock at that instant the consumer simply tries again next frame.
//
// # Result Variants
//
//   - Response: a model answer for a chat request
//   - AnalyticsUpdated: a fresh analytics snapshot
//   - Suggestions: retrieval matches for the current input
//   - LoadingComplete: the request is finished (always posted last)
//   - Failure: any error, tagged with the source that produced it
package bus
