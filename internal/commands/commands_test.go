// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
)

// fakeSession records what handlers asked for.
type fakeSession struct {
	state       orchestrator.State
	cleared     bool
	canceled    bool
	fileName    string
	fileContent string
	analyticsID string
}

func (f *fakeSession) Snapshot() orchestrator.State { return f.state }
func (f *fakeSession) SetModel(name string)         { f.state.Model = name }
func (f *fakeSession) SetEndpoint(url string)       { f.state.Endpoint = url }
func (f *fakeSession) SetRetrievalEnabled(on bool)  { f.state.RetrievalEnabled = on }
func (f *fakeSession) SetFileContext(name, content string) {
	f.fileName, f.fileContent = name, content
}
func (f *fakeSession) ClearFileContext()        { f.fileName, f.fileContent = "", "" }
func (f *fakeSession) ClearChat()               { f.cleared = true }
func (f *fakeSession) Cancel() bool             { f.canceled = true; return f.state.Busy }
func (f *fakeSession) RefreshAnalytics() string { return f.analyticsID }

func newContext(s *fakeSession) *Context {
	return &Context{Session: s, ExportDir: ""}
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/model qwen", true},
		{"  /help", true},
		{"hello", false},
		{"hello /help", false},
		{"", false},
		{"/", true},
	}
	for _, tc := range tests {
		if got := IsCommand(tc.input); got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/file notes.txt", []string{"/file", "notes.txt"}},
		{`/file "my notes.txt"`, []string{"/file", "my notes.txt"}},
		{`/file 'a b' c`, []string{"/file", "a b", "c"}},
		{`/x "say \"hi\""`, []string{"/x", `say "hi"`}},
		{`/x ""`, []string{"/x", ""}},
		{"  /help   ", []string{"/help"}},
		{"/model café", []string{"/model", "café"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, splitCommandLine(tc.input), tc.input)
	}
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(NewRegistry())

	res := p.Parse("/M llama3")
	assert.True(t, res.IsCommand)
	assert.Equal(t, "/m", res.CommandName)
	require.NotNil(t, res.Command)
	assert.Equal(t, "/model", res.Command.Name)
	assert.Equal(t, []string{"llama3"}, res.Args)

	res = p.Parse("what is /model")
	assert.False(t, res.IsCommand)

	res = p.Parse("/nope")
	assert.True(t, res.IsCommand)
	assert.Nil(t, res.Command)
}

func TestValidateArgs(t *testing.T) {
	reg := NewRegistry()

	assert.NoError(t, ValidateArgs(reg.Get("/rag"), nil))
	assert.NoError(t, ValidateArgs(reg.Get("/rag"), []string{"ON"}))

	err := ValidateArgs(reg.Get("/rag"), []string{"maybe"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "maybe", ve.Got)
	assert.Contains(t, err.Error(), "expected: on, off")

	required := &Command{Name: "/x", Args: []ArgDef{{Name: "thing", Required: true}}}
	assert.Error(t, ValidateArgs(required, nil))
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_Builtins(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"/help", "/quit", "/clear", "/cancel", "/export", "/stats", "/model", "/endpoint", "/rag", "/file", "/plugins"} {
		assert.NotNil(t, reg.Get(name), name)
	}
	assert.Equal(t, reg.Get("/quit"), reg.Get("/q"))
	assert.Nil(t, reg.Get("/missing"))

	all := reg.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

func TestHelpText(t *testing.T) {
	text := HelpText(NewRegistry())
	assert.True(t, strings.HasPrefix(text, "Conversation:"))
	assert.Contains(t, text, "/model [name]")
	assert.Contains(t, text, "General:")
}

// =============================================================================
// EXECUTE TESTS
// =============================================================================

func TestExecute_NotACommand(t *testing.T) {
	_, ok, err := NewRegistry().Execute(newContext(&fakeSession{}), "hello there")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestExecute_Unknown(t *testing.T) {
	_, ok, err := NewRegistry().Execute(newContext(&fakeSession{}), "/frobnicate")
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExecute_Quit(t *testing.T) {
	res, ok, err := NewRegistry().Execute(newContext(&fakeSession{}), "/exit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, res.Quit)
}

func TestExecute_Model(t *testing.T) {
	s := &fakeSession{state: orchestrator.State{Model: "deepseek-r1:7b"}}
	reg := NewRegistry()

	res, _, err := reg.Execute(newContext(s), "/model")
	require.NoError(t, err)
	assert.Equal(t, "Current model: deepseek-r1:7b", res.Output)

	_, _, err = reg.Execute(newContext(s), "/model llama3:8b")
	require.NoError(t, err)
	assert.Equal(t, "llama3:8b", s.state.Model)
}

func TestExecute_Endpoint(t *testing.T) {
	s := &fakeSession{}
	res, _, err := NewRegistry().Execute(newContext(s), "/endpoint")
	require.NoError(t, err)
	assert.Equal(t, "Current endpoint: (none)", res.Output)

	_, _, err = NewRegistry().Execute(newContext(s), "/endpoint http://gpu:11434/api/generate")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu:11434/api/generate", s.state.Endpoint)
}

func TestExecute_RAG(t *testing.T) {
	s := &fakeSession{state: orchestrator.State{RetrievalEnabled: true}}
	reg := NewRegistry()

	_, _, err := reg.Execute(newContext(s), "/rag")
	require.NoError(t, err)
	assert.False(t, s.state.RetrievalEnabled, "no argument toggles")

	_, _, err = reg.Execute(newContext(s), "/rag on")
	require.NoError(t, err)
	assert.True(t, s.state.RetrievalEnabled)

	_, _, err = reg.Execute(newContext(s), "/rag sideways")
	assert.Error(t, err)
}

func TestExecute_ClearAndCancel(t *testing.T) {
	s := &fakeSession{}
	reg := NewRegistry()

	res, _, err := reg.Execute(newContext(s), "/clear")
	require.NoError(t, err)
	assert.True(t, res.Cleared)
	assert.True(t, s.cleared)

	res, _, err = reg.Execute(newContext(s), "/cancel")
	require.NoError(t, err)
	assert.True(t, s.canceled)
	assert.Equal(t, "Nothing to cancel.", res.Output)
}

func TestExecute_Stats(t *testing.T) {
	s := &fakeSession{analyticsID: "req-1"}
	res, _, err := NewRegistry().Execute(newContext(s), "/stats")
	require.NoError(t, err)
	assert.Equal(t, "req-1", res.Await)

	s.analyticsID = ""
	_, _, err = NewRegistry().Execute(newContext(s), "/stats")
	assert.Error(t, err)
}

func TestExecute_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("remember the milk"), 0644))

	s := &fakeSession{}
	reg := NewRegistry()

	res, _, err := reg.Execute(newContext(s), "/file "+path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", s.fileName)
	assert.Equal(t, "remember the milk", s.fileContent)
	assert.Contains(t, res.Output, "17 bytes")

	_, _, err = reg.Execute(newContext(s), "/file")
	require.NoError(t, err)
	assert.Empty(t, s.fileName)

	_, _, err = reg.Execute(newContext(s), "/file "+filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestExecute_Export(t *testing.T) {
	dir := t.TempDir()
	s := &fakeSession{state: orchestrator.State{Messages: []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi", Timestamp: time.Now()},
		{Role: model.RoleAssistant, Content: "hello", Timestamp: time.Now()},
	}}}
	ctx := &Context{Session: s, ExportDir: dir}

	res, _, err := NewRegistry().Execute(ctx, "/export md")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Exported 2 messages")
	assert.FileExists(t, filepath.Join(dir, "chat_export.md"))

	_, _, err = NewRegistry().Execute(ctx, "/export pdf")
	assert.Error(t, err)
}

func TestExecute_Plugins(t *testing.T) {
	reg := NewRegistry()
	ctx := newContext(&fakeSession{})

	res, _, err := reg.Execute(ctx, "/plugins")
	require.NoError(t, err)
	assert.Equal(t, "No plugins configured.", res.Output)

	ctx.Plugins = plugins.NewRegistry()
	res, _, err = reg.Execute(ctx, "/plugins summarizer on")
	require.NoError(t, err)
	assert.Equal(t, "Plugins: summarizer (on)", res.Output)

	res, _, err = reg.Execute(ctx, "/plugins summarizer off")
	require.NoError(t, err)
	assert.Equal(t, "Plugins: summarizer (off)", res.Output)

	_, _, err = reg.Execute(ctx, "/plugins telepathy on")
	assert.Error(t, err)
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestComplete_CommandNames(t *testing.T) {
	c := NewCompleter(NewRegistry())

	comps := c.Complete("/mo")
	require.NotEmpty(t, comps)
	assert.Equal(t, "/model", comps[0].Value)

	assert.Nil(t, c.Complete("plain text"))
	assert.Len(t, c.Complete("/"), len(NewRegistry().All()))
}

func TestComplete_EnumArgs(t *testing.T) {
	c := NewCompleter(NewRegistry())

	comps := c.Complete("/rag o")
	require.Len(t, comps, 2)

	comps = c.Complete("/export ")
	values := make([]string, len(comps))
	for i, comp := range comps {
		values[i] = comp.Value
	}
	assert.ElementsMatch(t, []string{"txt", "md", "json"}, values)
}

func TestComplete_Models(t *testing.T) {
	c := NewCompleter(NewRegistry())
	assert.Nil(t, c.Complete("/model "))

	c.ModelsFn = func() []string { return []string{"llama3:8b", "deepseek-r1:7b"} }
	comps := c.Complete("/model dee")
	require.Len(t, comps, 1)
	assert.Equal(t, "deepseek-r1:7b", comps[0].Value)

	assert.Equal(t, []string{"/model deepseek-r1:7b"}, c.Lines("/model dee"))
}

func TestComplete_Files(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	comps := completeFiles(dir + string(os.PathSeparator))
	var names []string
	for _, comp := range comps {
		names = append(names, comp.Display)
	}
	assert.Equal(t, []string{"sub", "alpha.txt"}, names, "directories rank first, hidden skipped")
}

func TestCompletionState(t *testing.T) {
	var cs CompletionState
	assert.Equal(t, "", cs.Accept())

	cs.Update([]Completion{{Value: "a"}, {Value: "b"}, {Value: "c"}})
	assert.True(t, cs.Visible)
	cs.Prev()
	assert.Equal(t, "c", cs.Accept())
	cs.Next()
	assert.Equal(t, "a", cs.Accept())

	cs.Clear()
	assert.False(t, cs.Visible)
}
