// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CharsPerToken is the rough character-to-token ratio used for estimates.
const CharsPerToken = 4

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot holds derived metrics over the whole log. The zero value is the
// snapshot of an empty log.
type Snapshot struct {
	TotalRequests     int       `json:"total_requests"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
	MostUsedModel     string    `json:"most_used_model"`
	TotalTokensApprox int       `json:"total_tokens_approx"`
	RequestsToday     int       `json:"requests_today"`
	ComputedAt        time.Time `json:"computed_at"`
}

// Line is one label/value row for display.
type Line struct {
	Label string
	Value string
}

// Lines renders the snapshot for the presentation layer.
func (s Snapshot) Lines() []Line {
	model := s.MostUsedModel
	if model == "" {
		model = "-"
	}
	return []Line{
		{Label: "Total Requests", Value: fmt.Sprintf("%d", s.TotalRequests)},
		{Label: "Avg Response Time", Value: fmt.Sprintf("%.0fms", s.AvgResponseTimeMs)},
		{Label: "Most Used Model", Value: model},
		{Label: "Total Tokens (approx)", Value: fmt.Sprintf("%d", s.TotalTokensApprox)},
		{Label: "Requests Today", Value: fmt.Sprintf("%d", s.RequestsToday)},
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Source is the set of log queries a refresh runs.
type Source interface {
	Count(ctx context.Context) (int, error)
	AverageResponseTime(ctx context.Context) (float64, error)
	MostUsedModel(ctx context.Context) (string, error)
	CountBetween(ctx context.Context, start, end time.Time) (int, error)
	TotalChars(ctx context.Context) (int, error)
}

// Aggregator computes snapshots from a Source.
type Aggregator struct {
	src    Source
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator creates an aggregator reading src.
func NewAggregator(src Source) *Aggregator {
	return &Aggregator{
		src:    src,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics"),
	}
}

// WithClock replaces the clock that defines "today". Returns a for chaining.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	if now != nil {
		a.now = now
	}
	return a
}

// Refresh recomputes every metric. Any query failure aborts the refresh.
func (a *Aggregator) Refresh(ctx context.Context) (Snapshot, error) {
	now := a.now()
	var (
		snap Snapshot
		err  error
	)

	if snap.TotalRequests, err = a.src.Count(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("total requests: %w", err)
	}
	if snap.AvgResponseTimeMs, err = a.src.AverageResponseTime(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("average response time: %w", err)
	}
	if snap.MostUsedModel, err = a.src.MostUsedModel(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("most used model: %w", err)
	}

	start, end := DayBounds(now)
	if snap.RequestsToday, err = a.src.CountBetween(ctx, start, end); err != nil {
		return Snapshot{}, fmt.Errorf("requests today: %w", err)
	}

	chars, err := a.src.TotalChars(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("total tokens: %w", err)
	}
	snap.TotalTokensApprox = chars / CharsPerToken

	snap.ComputedAt = now
	a.logger.Debug("analytics refreshed", "total", snap.TotalRequests, "today", snap.RequestsToday)
	return snap, nil
}

// DayBounds returns the start of the local calendar day containing t and the
// start of the next one.
func DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}
