// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-recall/internal/analytics"
	"github.com/jeranaias/rigrun-recall/internal/bus"
	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
	"github.com/jeranaias/rigrun-recall/internal/retrieval"
	"github.com/jeranaias/rigrun-recall/internal/storage"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeGenerator records prompts and answers through fn.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, endpoint, model, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	fn := g.fn
	g.mu.Unlock()

	if fn == nil {
		return "answer to " + prompt, nil
	}
	return fn(ctx, prompt)
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func answering(text string) *fakeGenerator {
	return &fakeGenerator{fn: func(context.Context, string) (string, error) { return text, nil }}
}

// blockingGenerator waits for release or context cancellation.
func blockingGenerator(release <-chan struct{}) *fakeGenerator {
	return &fakeGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		select {
		case <-release:
			return "released", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
}

type failingRecorder struct{}

func (failingRecorder) Append(context.Context, storage.Entry) (storage.Entry, error) {
	return storage.Entry{}, errors.New("disk full")
}

type countingFinder struct {
	calls   atomic.Int32
	entries []storage.Entry
	err     error
}

func (f *countingFinder) Find(context.Context, string, int) ([]storage.Entry, error) {
	f.calls.Add(1)
	return f.entries, f.err
}

// =============================================================================
// HELPERS
// =============================================================================

func newStore(t *testing.T) *storage.ConversationStore {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	return store
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	o, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

// pollUntil polls o until cond holds or the deadline passes.
func pollUntil(t *testing.T, o *Orchestrator, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		o.Poll()
		if s := o.Snapshot(); cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
	return State{}
}

func idle(s State) bool { return !s.Busy }

func roles(msgs []model.ChatMessage) []model.Role {
	out := make([]model.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNew_RequiresGeneratorAndStore(t *testing.T) {
	_, err := New(Options{Store: failingRecorder{}})
	assert.Error(t, err)

	_, err = New(Options{Generator: answering("x")})
	assert.Error(t, err)
}

func TestNew_FillsDefaults(t *testing.T) {
	o := newOrchestrator(t, Options{
		Generator: answering("x"),
		Store:     failingRecorder{},
		Settings:  Settings{Model: "m", Endpoint: "http://localhost:11434/api/generate"},
	})

	d := DefaultSettings()
	assert.Equal(t, d.DebounceEvery, o.settings.DebounceEvery)
	assert.Equal(t, d.RequestTimeout, o.settings.RequestTimeout)
	assert.Equal(t, d.SuggestionLimit, o.settings.SuggestionLimit)
	assert.NotNil(t, o.Bus())
}

// =============================================================================
// CHAT REQUEST TESTS
// =============================================================================

func TestSend_Success(t *testing.T) {
	store := newStore(t)
	o := newOrchestrator(t, Options{Generator: answering("Paris."), Store: store})

	id, err := o.Send("capital of France?")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s := o.Snapshot()
	assert.True(t, s.Busy)
	assert.Equal(t, PhaseSending, s.Phase)
	assert.Equal(t, id, s.ActiveRequest)

	s = pollUntil(t, o, idle)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Empty(t, s.LastError)
	require.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(s.Messages))
	assert.Equal(t, "capital of France?", s.Messages[0].Content)
	assert.Equal(t, "Paris.", s.Messages[1].Content)
	assert.Equal(t, ollamaDefaultModel(), s.Messages[1].Model)
	assert.Equal(t, id, s.Messages[1].RequestID)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "capital of France?", entries[0].Prompt)
	assert.Equal(t, "Paris.", entries[0].Response)
}

func ollamaDefaultModel() string { return DefaultSettings().Model }

func TestSend_PersistsBeforePosting(t *testing.T) {
	store := newStore(t)
	o := newOrchestrator(t, Options{Generator: answering("ok"), Store: store})

	_, err := o.Send("remember this")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return o.Bus().Len() >= 2 }, 5*time.Second, 5*time.Millisecond)

	// Both results are visible only after the entry is on disk.
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results := o.Bus().Drain()
	require.Len(t, results, 2)
	resp, ok := results[0].(bus.Response)
	require.True(t, ok)
	assert.NotZero(t, resp.EntryID)
	assert.IsType(t, bus.LoadingComplete{}, results[1])
}

func TestSend_RejectsBlankInput(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t)})

	_, err := o.Send("   \n")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, o.Transcript().Len())
}

func TestSend_BusyWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	o := newOrchestrator(t, Options{Generator: blockingGenerator(release), Store: newStore(t)})

	_, err := o.Send("first")
	require.NoError(t, err)

	_, err = o.Send("second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	s := pollUntil(t, o, idle)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(s.Messages))

	_, err = o.Send("third")
	assert.NoError(t, err)
	pollUntil(t, o, idle)
}

func TestSend_EmptyModelFails(t *testing.T) {
	store := newStore(t)
	gen := answering("never")
	settings := DefaultSettings()
	settings.Model = ""
	o := newOrchestrator(t, Options{Generator: gen, Store: store, Settings: settings})

	_, err := o.Send("hello")
	require.NoError(t, err)

	s := pollUntil(t, o, idle)
	require.Equal(t, []model.Role{model.RoleUser, model.RoleError}, roles(s.Messages))
	assert.Equal(t, "Error: model name is empty", s.Messages[1].Content)
	assert.Equal(t, s.Messages[1].Content, s.LastError)
	assert.Empty(t, gen.lastPrompt())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSend_EmptyEndpointFails(t *testing.T) {
	settings := DefaultSettings()
	settings.Endpoint = ""
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t), Settings: settings})

	_, err := o.Send("hello")
	require.NoError(t, err)

	s := pollUntil(t, o, idle)
	assert.Equal(t, "Error: server endpoint is empty", s.LastError)
}

func TestSend_GenerationError(t *testing.T) {
	store := newStore(t)
	gen := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}}
	o := newOrchestrator(t, Options{Generator: gen, Store: store})

	_, err := o.Send("hello")
	require.NoError(t, err)

	s := pollUntil(t, o, idle)
	require.Equal(t, []model.Role{model.RoleUser, model.RoleError}, roles(s.Messages))
	assert.Equal(t, "Error: generation failed: connection refused", s.Messages[1].Content)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "failed generations are not recorded")
}

func TestSend_StorageFailureStillShowsAnswer(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("42"), Store: failingRecorder{}})

	_, err := o.Send("meaning of life")
	require.NoError(t, err)

	s := pollUntil(t, o, idle)
	require.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant, model.RoleError}, roles(s.Messages))
	assert.Equal(t, "42", s.Messages[1].Content)
	assert.Equal(t, "Storage error: disk full", s.Messages[2].Content)
}

func TestSend_PanickingGeneratorFails(t *testing.T) {
	gen := &fakeGenerator{fn: func(context.Context, string) (string, error) {
		panic("boom")
	}}
	o := newOrchestrator(t, Options{Generator: gen, Store: newStore(t)})

	_, err := o.Send("hello")
	require.NoError(t, err)

	s := pollUntil(t, o, idle)
	assert.Contains(t, s.LastError, "boom")
}

func TestCancel(t *testing.T) {
	store := newStore(t)
	release := make(chan struct{})
	defer close(release)
	o := newOrchestrator(t, Options{Generator: blockingGenerator(release), Store: store})

	assert.False(t, o.Cancel(), "nothing in flight")

	_, err := o.Send("slow question")
	require.NoError(t, err)
	assert.True(t, o.Cancel())

	s := pollUntil(t, o, idle)
	require.Equal(t, []model.Role{model.RoleUser, model.RoleError}, roles(s.Messages))
	assert.Equal(t, "Error: request canceled: context canceled", s.Messages[1].Content)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	settings := DefaultSettings()
	settings.RequestTimeout = 30 * time.Millisecond
	o := newOrchestrator(t, Options{Generator: blockingGenerator(release), Store: newStore(t), Settings: settings})

	_, err := o.Send("slow question")
	require.NoError(t, err)

	s := pollUntil(t, o, idle)
	assert.Equal(t, "Error: request timed out: context deadline exceeded", s.LastError)
}

func TestSend_ClosedOrchestrator(t *testing.T) {
	o, err := New(Options{Generator: answering("x"), Store: newStore(t)})
	require.NoError(t, err)
	o.Close()
	o.Close()

	_, err = o.Send("hello")
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, o.InputChanged("anything"))
	assert.Empty(t, o.RefreshAnalytics())
}

// =============================================================================
// PROMPT ASSEMBLY TESTS
// =============================================================================

func TestSend_InjectsSuggestions(t *testing.T) {
	finder := &countingFinder{entries: []storage.Entry{
		{Prompt: "what is go", Response: "a language"},
		{Prompt: "who made go", Response: "google"},
		{Prompt: "third", Response: "dropped"},
	}}
	gen := answering("ok")
	settings := DefaultSettings()
	settings.DebounceEvery = 1
	o := newOrchestrator(t, Options{Generator: gen, Store: newStore(t), Finder: finder, Settings: settings})

	require.True(t, o.InputChanged("tell me more about go"))
	s := pollUntil(t, o, func(s State) bool { return len(s.Suggestions) > 0 })
	assert.Equal(t, "tell me more about go", s.SuggestionsFor)

	_, err := o.Send("tell me more about go")
	require.NoError(t, err)
	pollUntil(t, o, idle)

	want := retrieval.BuildContextN(finder.entries, "tell me more about go", 2)
	assert.Equal(t, want, gen.lastPrompt())
	assert.NotContains(t, gen.lastPrompt(), "dropped")
}

func TestSend_RetrievalDisabledUsesRawInput(t *testing.T) {
	finder := &countingFinder{entries: []storage.Entry{{Prompt: "q", Response: "a"}}}
	gen := answering("ok")
	settings := DefaultSettings()
	settings.DebounceEvery = 1
	o := newOrchestrator(t, Options{Generator: gen, Store: newStore(t), Finder: finder, Settings: settings})

	require.True(t, o.InputChanged("some longer question"))
	pollUntil(t, o, func(s State) bool { return len(s.Suggestions) > 0 })

	o.SetRetrievalEnabled(false)
	_, err := o.Send("some longer question")
	require.NoError(t, err)
	pollUntil(t, o, idle)

	assert.Equal(t, "some longer question", gen.lastPrompt())
}

func TestSend_FileContext(t *testing.T) {
	store := newStore(t)
	gen := answering("summary")
	o := newOrchestrator(t, Options{Generator: gen, Store: store})

	o.SetFileContext("notes.txt", "line one\nline two")
	assert.Equal(t, "notes.txt", o.Snapshot().FileName)

	_, err := o.Send("summarize")
	require.NoError(t, err)
	pollUntil(t, o, idle)

	assert.Equal(t, "File context:\nline one\nline two\n\nUser message: summarize", gen.lastPrompt())

	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "summarize", entries[0].Prompt)
	assert.Equal(t, "notes.txt", entries[0].FileContext)

	o.ClearFileContext()
	_, err = o.Send("again")
	require.NoError(t, err)
	pollUntil(t, o, idle)
	assert.Equal(t, "again", gen.lastPrompt())
}

func TestSend_PluginsTransformDisplayOnly(t *testing.T) {
	store := newStore(t)
	reg := plugins.NewRegistry()
	reg.Register(plugins.Summarizer(5))
	o := newOrchestrator(t, Options{Generator: answering("a very long answer"), Store: store, Plugins: reg})

	_, err := o.Send("question")
	require.NoError(t, err)
	s := pollUntil(t, o, idle)

	assert.Equal(t, "a ver...", s.Messages[1].Content)

	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a very long answer", entries[0].Response)
}

// =============================================================================
// BACKGROUND LOOKUP TESTS
// =============================================================================

func TestInputChanged_Debounced(t *testing.T) {
	finder := &countingFinder{}
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t), Finder: finder})

	inputs := []string{"how do I", "how do I c", "how do I co", "how do I con"}
	for _, in := range inputs {
		assert.False(t, o.InputChanged(in))
	}
	assert.False(t, o.InputChanged("how do I con"), "repeat does not count")
	assert.True(t, o.InputChanged("how do I conf"))

	require.Eventually(t, func() bool { return finder.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
}

func TestInputChanged_ShortInputSkipped(t *testing.T) {
	finder := &countingFinder{}
	settings := DefaultSettings()
	settings.DebounceEvery = 1
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t), Finder: finder, Settings: settings})

	assert.False(t, o.InputChanged("short"))
	assert.False(t, o.InputChanged("          "))
	assert.Zero(t, finder.calls.Load())
}

func TestInputChanged_FailureReported(t *testing.T) {
	finder := &countingFinder{err: errors.New("database is locked")}
	settings := DefaultSettings()
	settings.DebounceEvery = 1
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t), Finder: finder, Settings: settings})

	require.True(t, o.InputChanged("a sufficiently long query"))
	s := pollUntil(t, o, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, "Retrieval error: database is locked", s.LastError)
	assert.False(t, s.Busy)
}

func TestPrefetch(t *testing.T) {
	finder := &countingFinder{entries: []storage.Entry{{Prompt: "earlier", Response: "reply"}}}
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t), Finder: finder})

	require.NoError(t, o.Prefetch(context.Background(), "what did we say earlier"))
	s := o.Snapshot()
	assert.Equal(t, "what did we say earlier", s.SuggestionsFor)
	assert.Len(t, s.Suggestions, 1)
	assert.Equal(t, int32(1), finder.calls.Load())

	o.SetRetrievalEnabled(false)
	require.NoError(t, o.Prefetch(context.Background(), "another question entirely"))
	assert.Equal(t, int32(1), finder.calls.Load())
}

func TestPrefetch_Error(t *testing.T) {
	finder := &countingFinder{err: errors.New("database is locked")}
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t), Finder: finder})

	err := o.Prefetch(context.Background(), "a sufficiently long query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestRefreshAnalytics(t *testing.T) {
	store := newStore(t)
	o := newOrchestrator(t, Options{
		Generator: answering("four chars"),
		Store:     store,
		Refresher: analytics.NewAggregator(store),
	})

	_, err := o.Send("hello")
	require.NoError(t, err)
	pollUntil(t, o, idle)

	id := o.RefreshAnalytics()
	require.NotEmpty(t, id)

	s := pollUntil(t, o, func(s State) bool { return s.HasAnalytics })
	assert.Equal(t, 1, s.Analytics.TotalRequests)
	assert.Equal(t, 1, s.Analytics.RequestsToday)
	assert.Equal(t, ollamaDefaultModel(), s.Analytics.MostUsedModel)
}

func TestRefreshAnalytics_NothingPostedAfterClose(t *testing.T) {
	store := newStore(t)
	o, err := New(Options{
		Generator: answering("x"),
		Store:     store,
		Refresher: analytics.NewAggregator(store),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				o.RefreshAnalytics()
			}
		}()
	}
	o.Close()
	o.Bus().Drain()
	wg.Wait()

	assert.Zero(t, o.Bus().Len(), "refresh accepted after Close")
	assert.Empty(t, o.RefreshAnalytics())
}

func TestRefreshAnalytics_NotConfigured(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t)})
	assert.Empty(t, o.RefreshAnalytics())
}

// =============================================================================
// STATE TESTS
// =============================================================================

func TestPoll_NothingPending(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t)})
	assert.False(t, o.Poll())
}

func TestPoll_IgnoresStaleCompletion(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t)})

	o.Bus().Post(bus.LoadingComplete{RequestID: "someone-else"})
	assert.True(t, o.Poll())
	assert.False(t, o.Snapshot().Busy)
	assert.Equal(t, PhaseIdle, o.Snapshot().Phase)
}

func TestSetters(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: newStore(t)})

	o.SetModel("llama3:8b")
	o.SetEndpoint("http://gpu-box:11434/api/generate")
	o.SetRetrievalEnabled(false)

	s := o.Snapshot()
	assert.Equal(t, "llama3:8b", s.Model)
	assert.Equal(t, "http://gpu-box:11434/api/generate", s.Endpoint)
	assert.False(t, s.RetrievalEnabled)
}

func TestClearChat(t *testing.T) {
	store := newStore(t)
	o := newOrchestrator(t, Options{Generator: answering("x"), Store: store})

	_, err := o.Send("hello")
	require.NoError(t, err)
	pollUntil(t, o, idle)
	require.Equal(t, 2, o.Transcript().Len())

	o.ClearChat()
	assert.Zero(t, o.Transcript().Len())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "clearing the chat keeps the log")
}

func TestOutcomes(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("done"), Store: newStore(t)})

	id, err := o.Send("go")
	require.NoError(t, err)
	pollUntil(t, o, idle)

	msgs := o.Outcomes(id)
	require.Len(t, msgs, 1)
	assert.Equal(t, "done", msgs[0].Content)

	assert.Empty(t, o.Outcomes("missing"))
}

func TestOutcomes_AnswerThenStorageError(t *testing.T) {
	o := newOrchestrator(t, Options{Generator: answering("42"), Store: failingRecorder{}})

	id, err := o.Send("meaning of life")
	require.NoError(t, err)
	pollUntil(t, o, idle)

	msgs := o.Outcomes(id)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Storage error: disk full", msgs[1].Content)
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseIdle:      "idle",
		PhaseSending:   "sending",
		PhaseCompleted: "completed",
		PhaseFailed:    "failed",
		Phase(99):      "unknown",
	} {
		assert.Equal(t, want, p.String())
	}
	assert.True(t, strings.HasPrefix(ErrBusy.Error(), "a request"))
}
