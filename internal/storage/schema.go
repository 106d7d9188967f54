// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable conversation log for recall.
package storage

const (
	// DatabaseFile is the log's file name inside the store directory.
	DatabaseFile = "conversations.db"

	// TimestampLayout is the on-disk timestamp encoding. Timestamps are
	// stored in UTC with a fixed-width fraction so that text order equals
	// chronological order.
	TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Schema creates the log tables. Every statement is idempotent, so it runs on
// each process start without touching existing rows.
//
// embeddings_cache is reserved for similarity retrieval and is not read or
// written by the current code.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    prompt TEXT NOT NULL,
    response TEXT NOT NULL,
    model_used TEXT NOT NULL,
    response_time_ms INTEGER NOT NULL,
    file_context TEXT
);

CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations(timestamp);

CREATE TABLE IF NOT EXISTS embeddings_cache (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    prompt_hash TEXT UNIQUE NOT NULL,
    prompt TEXT NOT NULL,
    response TEXT NOT NULL,
    similarity_score REAL DEFAULT 0.0
);
`

// entryColumns is the select list matching scanEntry.
const entryColumns = `id, timestamp, prompt, response, model_used, response_time_ms, file_context`
