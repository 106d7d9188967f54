// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator coordinates chat requests, suggestion lookups and
// analytics refreshes for an interactive front end.
//
// Every slow operation runs as a task on a bounded worker pool and reports
// back through a result bus. The front end calls Poll once per frame, which
// drains the bus without blocking and folds results into display state. Only
// one chat request is in flight at a time; background lookups are not
// limited that way.
//
// A chat request always ends with a LoadingComplete result, after any
// Response or Failure for it. A finished exchange is persisted before its
// Response is posted.
//
// # Usage
//
//	o, err := orchestrator.New(orchestrator.Options{
//	    Generator: ollama.NewClient(),
//	    Store:     store,
//	    Finder:    retrieval.NewEngine(store),
//	    Refresher: analytics.NewAggregator(store),
//	})
//	id, err := o.Send("why is the sky blue?")
//	for o.Snapshot().Busy {
//	    o.Poll()
//	    time.Sleep(50 * time.Millisecond)
//	}
package orchestrator
