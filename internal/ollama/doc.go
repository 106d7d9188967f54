// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the Ollama generate API.
//
// Generation is a single non-streaming POST of {model, prompt, stream:false}
// to the configured endpoint; the reply's "response" field is the answer.
// There are no retries. An optional rate limiter paces outbound calls.
//
// # Key Types
//
//   - Client: HTTP client for generate, health check and model listing
//   - ClientError: typed transport/protocol failure
//   - GenerateRequest / GenerateResponse: wire types for /api/generate
//
// # Usage
//
//	client := ollama.NewClient()
//	answer, err := client.Generate(ctx, "", "deepseek-r1:7b", "Why is the sky blue?")
//	if ollama.IsNotRunning(err) {
//	    // start the server
//	}
//
// An empty endpoint argument uses the configured default
// (http://localhost:11434/api/generate).
package ollama
