// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves the recall configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RECALL_*)
//   - ~/.recall/config.toml (or the file named by RECALL_CONFIG)
//   - Built-in defaults
//
// # Sections
//
//   - server: endpoint, model, requests_per_second
//   - storage: data_dir
//   - retrieval: enabled, limit, context_entries, min_query_length, debounce_every
//   - orchestrator: request_timeout, background_timeout, max_workers, frame_interval
//   - plugins: enabled, summarizer_max_length, translator_language
//   - logging: level
//   - ui: theme, markdown
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = cfg.Set("server.model", "llama3")
//	_ = config.Save(cfg)
//
// Watch reloads the file on change and reports the new config to a callback.
package config
