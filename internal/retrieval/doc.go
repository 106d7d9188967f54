// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retrieval finds earlier exchanges related to the text being typed
// and folds them into the outgoing prompt.
//
// Retrieval is a lexical heuristic: the first three words of the query are
// used as substring keywords against the conversation log, and the most
// recent matches win. There is no ranking beyond recency.
package retrieval
