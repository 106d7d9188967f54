// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperr defines the single error shape shared by the conversation
// core.
//
// Storage, filesystem, timestamp-parse and generation failures are all
// converted to an *AppError at package boundaries so callers never branch on
// a specific backend. Each error carries a Kind for coarse handling and a
// human-readable message for display.
//
// # Usage
//
//	if err := db.QueryRowContext(ctx, q).Scan(&n); err != nil {
//	    return 0, apperr.Storage("count conversations", err)
//	}
//
//	if apperr.Is(err, apperr.KindNotFound) {
//	    ...
//	}
package apperr
