// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable conversation log for recall.
//
// Every completed prompt/response exchange is appended to a SQLite database
// (pure Go driver, modernc.org/sqlite) and mirrored to a human-readable text
// file in the same directory. The database is the source of truth; mirror
// files are a write-once export that can be regenerated from the log.
//
// # Key Types
//
//   - ConversationStore: append-only log with recent/keyword queries
//   - Entry: one exchange (prompt, response, model, latency, file context)
//
// # Usage
//
//	store, err := storage.Open("~/.recall")
//	stored, err := store.Append(ctx, storage.Entry{
//	    Prompt:   "hello",
//	    Response: "hi there",
//	    Model:    "deepseek-r1:7b",
//	})
//	recent, err := store.Recent(ctx, 10)
//	hits, err := store.Matching(ctx, []string{"hello"}, 3)
//
// # Concurrency
//
// The database is opened per operation; there is no long-lived handle shared
// between goroutines. Concurrent readers and writers rely on SQLite's own
// locking (WAL journal plus a busy timeout).
//
// # Storage Location
//
// The default directory is ~/.recall, holding conversations.db and one
// response_YYYYMMDD_HHMMSS_NNNNNN.txt file per exchange.
package storage
