// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the transcript as a single JSON document.
// JSON exports always carry every message field regardless of options.
type JSONExporter struct {
	options *Options
}

type jsonDocument struct {
	ExportedAt time.Time           `json:"exported_at"`
	Messages   []model.ChatMessage `json:"messages"`
}

// Export converts messages to indented JSON.
func (e *JSONExporter) Export(msgs []model.ChatMessage) ([]byte, error) {
	now := time.Now
	if e.options != nil && e.options.Now != nil {
		now = e.options.Now
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return json.MarshalIndent(jsonDocument{ExportedAt: now(), Messages: msgs}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
