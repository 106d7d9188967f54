// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable conversation log for recall.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/apperr"
)

// =============================================================================
// AGGREGATE QUERIES
// =============================================================================

// Each aggregate is its own read-only operation with its own handle. A caller
// combining several of them does not get a point-in-time snapshot.

// AverageResponseTime returns the mean response time in milliseconds, or 0
// for an empty log.
func (s *ConversationStore) AverageResponseTime(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := s.withDB(ctx, func(db *sql.DB) error {
		if err := db.QueryRowContext(ctx, `SELECT AVG(response_time_ms) FROM conversations`).Scan(&avg); err != nil {
			return apperr.Storage("average response time", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

// MostUsedModel returns the model with the most entries, or "" for an empty
// log. Ties resolve to whichever row SQLite returns first.
func (s *ConversationStore) MostUsedModel(ctx context.Context) (string, error) {
	var model string
	err := s.withDB(ctx, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT model_used, COUNT(*) AS count FROM conversations
			 GROUP BY model_used ORDER BY count DESC LIMIT 1`).Scan(&model, new(int))
		if errors.Is(err, sql.ErrNoRows) {
			model = ""
			return nil
		}
		if err != nil {
			return apperr.Storage("most used model", err)
		}
		return nil
	})
	return model, err
}

// CountBetween returns the number of entries with start <= timestamp < end.
func (s *ConversationStore) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.withDB(ctx, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM conversations WHERE timestamp >= ? AND timestamp < ?`,
			formatTimestamp(start), formatTimestamp(end)).Scan(&n)
		if err != nil {
			return apperr.Storage("count conversations in range", err)
		}
		return nil
	})
	return n, err
}

// TotalChars returns the combined length of every prompt and response.
// SQLite's LENGTH counts characters for text values.
func (s *ConversationStore) TotalChars(ctx context.Context) (int, error) {
	var total sql.NullInt64
	err := s.withDB(ctx, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT SUM(LENGTH(prompt) + LENGTH(response)) FROM conversations`).Scan(&total)
		if err != nil {
			return apperr.Storage("total characters", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
