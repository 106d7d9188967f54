// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/analytics"
	"github.com/jeranaias/rigrun-recall/internal/apperr"
	"github.com/jeranaias/rigrun-recall/internal/bus"
	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/ollama"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
	"github.com/jeranaias/rigrun-recall/internal/retrieval"
	"github.com/jeranaias/rigrun-recall/internal/storage"
	"github.com/jeranaias/rigrun-recall/internal/tasks"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Generator produces a model answer for prompt.
type Generator interface {
	Generate(ctx context.Context, endpoint, model, prompt string) (string, error)
}

// Recorder persists completed exchanges.
type Recorder interface {
	Append(ctx context.Context, e storage.Entry) (storage.Entry, error)
}

// Finder looks up related exchanges for the text being typed.
type Finder interface {
	Find(ctx context.Context, query string, limit int) ([]storage.Entry, error)
}

// Refresher recomputes analytics.
type Refresher interface {
	Refresh(ctx context.Context) (analytics.Snapshot, error)
}

// Settings are the tunables of an Orchestrator.
type Settings struct {
	Model            string
	Endpoint         string
	RetrievalEnabled bool

	SuggestionLimit int // suggestions fetched per lookup
	ContextEntries  int // suggestions injected into a prompt
	MinQueryLength  int // input must be longer than this to trigger a lookup
	DebounceEvery   int // distinct inputs between lookups

	RequestTimeout    time.Duration // chat requests
	BackgroundTimeout time.Duration // retrieval and analytics
	StoreTimeout      time.Duration // persisting a finished exchange
	MaxWorkers        int
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		Model:             ollama.DefaultModel,
		Endpoint:          ollama.DefaultEndpoint,
		RetrievalEnabled:  true,
		SuggestionLimit:   retrieval.DefaultLimit,
		ContextEntries:    retrieval.DefaultContextEntries,
		MinQueryLength:    retrieval.DefaultMinQueryLength,
		DebounceEvery:     DefaultDebounceEvery,
		RequestTimeout:    2 * time.Minute,
		BackgroundTimeout: 30 * time.Second,
		StoreTimeout:      10 * time.Second,
		MaxWorkers:        tasks.DefaultMaxConcurrent,
	}
}

// Options wires an Orchestrator. Generator and Store are required.
type Options struct {
	Generator Generator
	Store     Recorder
	Finder    Finder
	Refresher Refresher
	Plugins   *plugins.Registry
	Bus       *bus.Bus
	Runner    *tasks.Runner
	Settings  Settings
	Logger    *slog.Logger
	Clock     func() time.Time
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator drives chat requests and background lookups.
type Orchestrator struct {
	gen       Generator
	store     Recorder
	finder    Finder
	refresher Refresher
	plugins   *plugins.Registry
	bus       *bus.Bus
	runner    *tasks.Runner
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	settings   Settings
	transcript *model.Transcript
	debouncer  Debouncer
	closed     bool

	// Active chat request
	busy     bool
	phase    Phase
	activeID string
	started  time.Time
	elapsed  time.Duration

	// Latest background results
	suggestions    []storage.Entry
	suggestionsFor string
	snapshot       analytics.Snapshot
	hasSnapshot    bool
	lastErr        string

	// Attached file
	fileName    string
	fileContent string
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Generator == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	if opts.Store == nil {
		return nil, errors.New("orchestrator: store is required")
	}

	s := fillDefaults(opts.Settings)

	o := &Orchestrator{
		gen:        opts.Generator,
		store:      opts.Store,
		finder:     opts.Finder,
		refresher:  opts.Refresher,
		plugins:    opts.Plugins,
		bus:        opts.Bus,
		runner:     opts.Runner,
		logger:     opts.Logger,
		now:        opts.Clock,
		settings:   s,
		transcript: model.NewTranscript(),
		debouncer:  NewDebouncer(s.DebounceEvery),
	}
	if o.bus == nil {
		o.bus = bus.New()
	}
	if o.runner == nil {
		o.runner = tasks.NewRunnerWithOptions(tasks.NewQueue(100), s.MaxWorkers, 0)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "orchestrator")
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.transcript.SetClock(o.now)
	return o, nil
}

// fillDefaults replaces zero tunables with defaults. Model and endpoint are
// left alone: emptiness is reported per request.
func fillDefaults(s Settings) Settings {
	d := DefaultSettings()
	if s.SuggestionLimit <= 0 {
		s.SuggestionLimit = d.SuggestionLimit
	}
	if s.ContextEntries <= 0 {
		s.ContextEntries = d.ContextEntries
	}
	if s.MinQueryLength < 0 {
		s.MinQueryLength = d.MinQueryLength
	}
	if s.DebounceEvery <= 0 {
		s.DebounceEvery = d.DebounceEvery
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = d.RequestTimeout
	}
	if s.BackgroundTimeout <= 0 {
		s.BackgroundTimeout = d.BackgroundTimeout
	}
	if s.StoreTimeout <= 0 {
		s.StoreTimeout = d.StoreTimeout
	}
	if s.MaxWorkers <= 0 {
		s.MaxWorkers = d.MaxWorkers
	}
	return s
}

// Bus returns the result bus.
func (o *Orchestrator) Bus() *bus.Bus {
	return o.bus
}

// Close stops the worker pool, waiting for in-flight tasks.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.runner.Stop()
}

// =============================================================================
// CHAT REQUESTS
// =============================================================================

type chatRequest struct {
	input    string
	prompt   string
	model    string
	endpoint string
	fileName string
}

// Send starts a chat request for input and returns its request ID.
func (o *Orchestrator) Send(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return "", ErrClosed
	}
	if o.busy {
		return "", ErrBusy
	}

	prompt := retrieval.WithFileContext(o.fileContent, input)
	if o.settings.RetrievalEnabled && len(o.suggestions) > 0 {
		prompt = retrieval.BuildContextN(o.suggestions, prompt, o.settings.ContextEntries)
	}

	req := chatRequest{
		input:    input,
		prompt:   prompt,
		model:    o.settings.Model,
		endpoint: o.settings.Endpoint,
		fileName: o.fileName,
	}

	task := tasks.NewTask("chat", o.settings.RequestTimeout, o.chatTask(req))
	if err := o.runner.Submit(task); err != nil {
		return "", err
	}

	o.transcript.Add(model.ChatMessage{Role: model.RoleUser, Content: input, RequestID: task.ID})
	o.busy = true
	o.phase = PhaseSending
	o.activeID = task.ID
	o.started = o.now()
	o.elapsed = 0
	o.lastErr = ""

	o.logger.Info("chat request submitted", "request", task.ID, "model", req.model,
		"suggestions", len(o.suggestions), "file", req.fileName != "")
	return task.ID, nil
}

// chatTask generates, persists, then posts. Persistence happens before any
// result is posted, and LoadingComplete is always posted last.
func (o *Orchestrator) chatTask(req chatRequest) tasks.Func {
	return func(ctx context.Context, id string) (err error) {
		posted := false
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("chat task panicked: %v", p)
				if !posted {
					o.failChat(id, err)
				}
			}
		}()

		if req.model == "" {
			return o.failChat(id, apperr.ErrEmptyModel)
		}
		if req.endpoint == "" {
			return o.failChat(id, apperr.ErrEmptyAddress)
		}

		start := time.Now()
		answer, err := o.gen.Generate(ctx, req.endpoint, req.model, req.prompt)
		elapsed := time.Since(start)
		if err != nil {
			return o.failChat(id, apperr.Generation(err))
		}

		// The answer exists even if the request is canceled from here on.
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.settings.StoreTimeout)
		defer cancel()

		stored, storeErr := o.store.Append(storeCtx, storage.Entry{
			Timestamp:      o.now(),
			Prompt:         req.input,
			Response:       answer,
			Model:          req.model,
			ResponseTimeMs: elapsed.Milliseconds(),
			FileContext:    req.fileName,
		})

		display := answer
		if o.plugins != nil {
			if out, perr := o.plugins.Apply(storeCtx, answer); perr != nil {
				o.logger.Warn("plugin chain failed, showing raw answer", "request", id, "error", perr)
			} else {
				display = out
			}
		}

		resp := bus.Response{
			RequestID: id,
			Text:      display,
			Model:     req.model,
			Elapsed:   elapsed,
			EntryID:   stored.ID,
		}
		posted = true
		if storeErr != nil {
			o.logger.Error("failed to persist exchange", "request", id, "error", storeErr)
			o.bus.Post(resp, bus.Failure{RequestID: id, Source: bus.SourceStorage, Err: storeErr}, bus.LoadingComplete{RequestID: id})
			return storeErr
		}

		o.bus.Post(resp, bus.LoadingComplete{RequestID: id})
		return nil
	}
}

func (o *Orchestrator) failChat(id string, err error) error {
	o.bus.Post(bus.Failure{RequestID: id, Source: bus.SourceChat, Err: err}, bus.LoadingComplete{RequestID: id})
	return err
}

// Cancel aborts the in-flight chat request. The request still finishes with
// a Failure and LoadingComplete. Returns false when nothing is in flight.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	id := o.activeID
	busy := o.busy
	o.mu.Unlock()

	if !busy || id == "" {
		return false
	}
	ok := o.runner.Cancel(id)
	if ok {
		o.logger.Info("chat request canceled", "request", id)
	}
	return ok
}

// =============================================================================
// BACKGROUND LOOKUPS
// =============================================================================

// InputChanged feeds the debouncer with the current input text. When a lookup
// is due and the input qualifies, a retrieval task is submitted. Returns
// whether a lookup was issued.
func (o *Orchestrator) InputChanged(input string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.debouncer.Observe(input) {
		return false
	}
	if o.closed || o.finder == nil || !o.settings.RetrievalEnabled {
		return false
	}
	if !retrieval.ShouldRefresh(input, o.settings.MinQueryLength) {
		return false
	}

	limit := o.settings.SuggestionLimit
	task := tasks.NewTask("retrieval", o.settings.BackgroundTimeout, func(ctx context.Context, id string) error {
		entries, err := o.finder.Find(ctx, input, limit)
		if err != nil {
			o.bus.Post(bus.Failure{RequestID: id, Source: bus.SourceRetrieval, Err: err})
			return err
		}
		o.bus.Post(bus.Suggestions{RequestID: id, Input: input, Entries: entries})
		return nil
	})
	if err := o.runner.Submit(task); err != nil {
		o.logger.Warn("retrieval not submitted", "error", err)
		return false
	}
	return true
}

// Prefetch looks up related exchanges for input right away, bypassing the
// debouncer. Line-mode front ends call it before Send since they never see
// individual keystrokes.
func (o *Orchestrator) Prefetch(ctx context.Context, input string) error {
	o.mu.Lock()
	enabled := o.settings.RetrievalEnabled && o.finder != nil && !o.closed
	limit := o.settings.SuggestionLimit
	minLen := o.settings.MinQueryLength
	timeout := o.settings.BackgroundTimeout
	o.mu.Unlock()

	if !enabled || !retrieval.ShouldRefresh(input, minLen) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	entries, err := o.finder.Find(ctx, input, limit)
	if err != nil {
		return apperr.Storage("find related conversations", err)
	}

	o.mu.Lock()
	o.suggestions = entries
	o.suggestionsFor = input
	o.mu.Unlock()
	return nil
}

// RefreshAnalytics submits an analytics recomputation and returns its
// request ID, or "" when analytics are not configured.
func (o *Orchestrator) RefreshAnalytics() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.refresher == nil {
		return ""
	}

	task := tasks.NewTask("analytics", o.settings.BackgroundTimeout, func(ctx context.Context, id string) error {
		snap, err := o.refresher.Refresh(ctx)
		if err != nil {
			o.bus.Post(bus.Failure{RequestID: id, Source: bus.SourceAnalytics, Err: err})
			return err
		}
		o.bus.Post(bus.AnalyticsUpdated{RequestID: id, Snapshot: snap})
		return nil
	})
	if err := o.runner.Submit(task); err != nil {
		o.logger.Warn("analytics not submitted", "error", err)
		return ""
	}
	return task.ID
}
