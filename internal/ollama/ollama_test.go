// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// GENERATE TESTS
// =============================================================================

func newGenerateServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/generate"})
	return srv, client
}

func TestGenerate_Success(t *testing.T) {
	var got GenerateRequest
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(GenerateResponse{Model: got.Model, Response: "The sky scatters blue light.", Done: true})
	})

	answer, err := client.Generate(context.Background(), "", "deepseek-r1:7b", "why is the sky blue")
	require.NoError(t, err)
	assert.Equal(t, "The sky scatters blue light.", answer)

	assert.Equal(t, "deepseek-r1:7b", got.Model)
	assert.Equal(t, "why is the sky blue", got.Prompt)
	assert.False(t, got.Stream)
}

func TestGenerate_ExplicitEndpointOverridesConfig(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{Endpoint: "http://127.0.0.1:1/api/generate"})
	answer, err := client.Generate(context.Background(), srv.URL+"/api/generate", "m", "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGenerate_ServerErrorMessage(t *testing.T) {
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model failed to load"}`))
	})

	_, err := client.Generate(context.Background(), "", "m", "p")
	require.Error(t, err)

	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
	assert.Equal(t, "model failed to load", ce.Message)
}

func TestGenerate_StatusWithoutBody(t *testing.T) {
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Generate(context.Background(), "", "m", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGenerate_ModelNotFound(t *testing.T) {
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	})

	_, err := client.Generate(context.Background(), "", "nope", "p")
	require.Error(t, err)
	assert.True(t, IsModelNotFound(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestGenerate_BadJSON(t *testing.T) {
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.Generate(context.Background(), "", "m", "p")
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

func TestGenerate_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/api/generate"
	srv.Close()

	client := NewClientWithConfig(&ClientConfig{Endpoint: endpoint})
	_, err := client.Generate(context.Background(), "", "m", "p")
	require.Error(t, err)
	assert.True(t, IsNotRunning(err))
}

func TestGenerate_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "", "m", "p")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGenerate_ContextCanceled(t *testing.T) {
	_, client := newGenerateServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Generate(ctx, "", "m", "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGenerate_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/generate", RequestsPerSecond: 0.001})

	_, err := client.Generate(context.Background(), "", "m", "p")
	require.NoError(t, err)

	// The second call would have to wait far past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Generate(ctx, "", "m", "p")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

// =============================================================================
// HEALTH AND MODEL TESTS
// =============================================================================

func TestCheckRunningAndListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("Ollama is running"))
		case "/api/tags":
			json.NewEncoder(w).Encode(ListModelsResponse{Models: []ModelInfo{
				{Name: "deepseek-r1:7b", Size: 4_700_000_000},
				{Name: "llama3:8b", Size: 512},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/generate"})

	require.NoError(t, client.CheckRunning(context.Background()))

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "deepseek-r1:7b", models[0].Name)
}

func TestBaseURL(t *testing.T) {
	base, err := BaseURL("http://localhost:11434/api/generate")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", base)

	_, err = BaseURL("localhost:11434")
	assert.Error(t, err)
}

func TestClientDefaults(t *testing.T) {
	client := NewClient()
	assert.Equal(t, DefaultEndpoint, client.Endpoint())
	assert.Nil(t, client.limiter)
}

// =============================================================================
// TYPE TESTS
// =============================================================================

func TestGenerateResponse_TokensPerSecond(t *testing.T) {
	r := &GenerateResponse{EvalCount: 100, EvalDuration: 2_000_000_000}
	assert.InDelta(t, 50.0, r.TokensPerSecond(), 0.001)

	assert.Zero(t, (&GenerateResponse{EvalCount: 10}).TokensPerSecond())
	assert.Equal(t, 3*time.Second, (&GenerateResponse{TotalDuration: 3_000_000_000}).TotalTime())
}

func TestModelInfo_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{4_700_000_000, "4.4 GB"},
	}
	for _, tt := range tests {
		m := ModelInfo{Size: tt.size}
		assert.Equal(t, tt.want, m.FormatSize(), "size %d", tt.size)
	}
}

func TestClientError(t *testing.T) {
	err := &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: errors.New("dial tcp: refused")}
	assert.Equal(t, "Ollama is not running: dial tcp: refused", err.Error())
	assert.True(t, errors.Is(err, ErrNotRunning))
	assert.False(t, errors.Is(err, ErrTimeout))
}
