// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type, so errors.Is(err, ErrNotRunning)
// holds for every not-running failure regardless of cause.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrCanceled      = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultEndpoint is the generate URL of a local Ollama server.
	DefaultEndpoint = "http://localhost:11434/api/generate"

	// DefaultModel is used when no model is configured.
	DefaultModel = "deepseek-r1:7b"
)

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// Endpoint is the full /api/generate URL
	Endpoint string

	// Timeout is the HTTP client ceiling; callers normally bound requests
	// with their context instead (default: 10m)
	Timeout time.Duration

	// RequestsPerSecond paces outbound requests (0 = unlimited)
	RequestsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint: DefaultEndpoint,
		Timeout:  10 * time.Minute,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	c := &Client{
		config: &cfg,
		// TLS not configured: the model server runs on localhost over HTTP
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().With("component", "ollama"),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Endpoint returns the configured generate URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends prompt to model at endpoint and returns the answer text.
// An empty endpoint uses the configured one.
func (c *Client) Generate(ctx context.Context, endpoint, model, prompt string) (string, error) {
	resp, err := c.GenerateResponse(ctx, endpoint, model, prompt)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// GenerateResponse is Generate returning the full decoded reply.
func (c *Client) GenerateResponse(ctx context.Context, endpoint, model, prompt string) (*GenerateResponse, error) {
	if endpoint == "" {
		endpoint = c.config.Endpoint
	}

	body, err := json.Marshal(GenerateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		if msg := readErrorBody(resp.Body); msg != "" {
			return nil, &ClientError{Type: ErrTypeModelNotFound, Message: msg}
		}
		return nil, ErrModelNotFound
	}

	if resp.StatusCode != http.StatusOK {
		if msg := readErrorBody(resp.Body); msg != "" {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: msg}
		}
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "generate request failed: " + resp.Status,
		}
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	c.logger.Debug("generation complete", "model", result.Model,
		"server_time", result.TotalTime(), "tokens", result.EvalCount,
		"tokens_per_sec", result.TokensPerSecond())
	return &result, nil
}

// wait blocks on the rate limiter, if any.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, ctx.Err())
		}
		return &ClientError{Type: ErrTypeTimeout, Message: "rate limit wait exceeds deadline", Cause: err}
	}
	return nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable at the endpoint's origin.
func (c *Client) CheckRunning(ctx context.Context) error {
	base, err := c.baseURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally available models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// baseURL returns the scheme and host of the configured endpoint.
func (c *Client) baseURL() (string, error) {
	return BaseURL(c.config.Endpoint)
}

// BaseURL returns the scheme://host origin of a generate endpoint.
func BaseURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = errors.New("missing scheme or host")
		}
		return "", &ClientError{Type: ErrTypeConnection, Message: "invalid endpoint " + endpoint, Cause: err}
	}
	return u.Scheme + "://" + u.Host, nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// transportError classifies a failed HTTP round trip.
func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: context.DeadlineExceeded}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: context.Canceled}
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
	}
}

// readErrorBody extracts the "error" field of an Ollama error reply.
func readErrorBody(r io.Reader) string {
	var ollamaErr OllamaError
	if err := json.NewDecoder(r).Decode(&ollamaErr); err != nil {
		return ""
	}
	return ollamaErr.Error
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// drainAndClose discards the rest of a response body so the connection can
// be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
