// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigrun-recall/internal/ollama"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete recall configuration.
type Config struct {
	Server       ServerConfig       `toml:"server" json:"server"`
	Storage      StorageConfig      `toml:"storage" json:"storage"`
	Retrieval    RetrievalConfig    `toml:"retrieval" json:"retrieval"`
	Orchestrator OrchestratorConfig `toml:"orchestrator" json:"orchestrator"`
	Plugins      PluginsConfig      `toml:"plugins" json:"plugins"`
	Logging      LoggingConfig      `toml:"logging" json:"logging"`
	UI           UIConfig           `toml:"ui" json:"ui"`
}

// ServerConfig describes the model server.
type ServerConfig struct {
	// Endpoint is the full generate URL
	Endpoint string `toml:"endpoint" json:"endpoint"`
	// Model is the model name sent with every request
	Model string `toml:"model" json:"model"`
	// RequestsPerSecond paces outbound requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// StorageConfig locates the conversation log.
type StorageConfig struct {
	// DataDir holds the database, mirror files and the log file
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// RetrievalConfig tunes related-conversation lookups.
type RetrievalConfig struct {
	Enabled        bool `toml:"enabled" json:"enabled"`
	Limit          int  `toml:"limit" json:"limit"`
	ContextEntries int  `toml:"context_entries" json:"context_entries"`
	MinQueryLength int  `toml:"min_query_length" json:"min_query_length"`
	DebounceEvery  int  `toml:"debounce_every" json:"debounce_every"`
}

// OrchestratorConfig tunes background work.
type OrchestratorConfig struct {
	RequestTimeout    Duration `toml:"request_timeout" json:"request_timeout"`
	BackgroundTimeout Duration `toml:"background_timeout" json:"background_timeout"`
	MaxWorkers        int      `toml:"max_workers" json:"max_workers"`
	// FrameInterval is how often interactive front ends poll for results
	FrameInterval Duration `toml:"frame_interval" json:"frame_interval"`
}

// PluginsConfig selects response plugins.
type PluginsConfig struct {
	Enabled             []string `toml:"enabled" json:"enabled"`
	SummarizerMaxLength int      `toml:"summarizer_max_length" json:"summarizer_max_length"`
	TranslatorLanguage  string   `toml:"translator_language" json:"translator_language"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is dark or light
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders answers with glamour
	Markdown bool `toml:"markdown" json:"markdown"`
}

// Duration is a time.Duration written as "2m" in TOML and JSON.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Endpoint: ollama.DefaultEndpoint,
			Model:    ollama.DefaultModel,
		},
		Storage: StorageConfig{
			DataDir: "~/.recall",
		},
		Retrieval: RetrievalConfig{
			Enabled:        true,
			Limit:          3,
			ContextEntries: 2,
			MinQueryLength: 10,
			DebounceEvery:  5,
		},
		Orchestrator: OrchestratorConfig{
			RequestTimeout:    Duration{2 * time.Minute},
			BackgroundTimeout: Duration{30 * time.Second},
			MaxWorkers:        8,
			FrameInterval:     Duration{50 * time.Millisecond},
		},
		Plugins: PluginsConfig{
			Enabled:             []string{},
			SummarizerMaxLength: plugins.DefaultMaxLength,
			TranslatorLanguage:  plugins.DefaultLanguage,
		},
		Logging: LoggingConfig{Level: "info"},
		UI:      UIConfig{Theme: "dark", Markdown: true},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the recall configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// ConfigPath returns the default config file path. RECALL_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := os.Getenv("RECALL_CONFIG"); p != "" {
		return util.ExpandHome(p)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ExpandPath resolves a leading ~ in a configured path.
func ExpandPath(p string) (string, error) {
	return util.ExpandHome(p)
}

// DataDir returns the expanded storage directory.
func (c *Config) DataDir() (string, error) {
	return ExpandPath(c.Storage.DataDir)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file. A missing file yields the defaults.
// Environment overrides are applied last, then the result is validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads path, filling unset keys from the defaults. A missing file
// is not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads path over the defaults without environment overrides or
// validation. Use it when the result is written back to disk.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	return cfg, nil
}

// decodeFile overlays the TOML at path onto cfg.
func decodeFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# recall configuration file\n")
	buf.WriteString("# Unset keys take their built-in defaults.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks every section and reports all problems at once. An empty
// model name is allowed here; requests fail on it instead.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.Server.Endpoint != "" {
		u, err := url.Parse(c.Server.Endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			add("server.endpoint", "must be an http(s) URL")
		}
	}
	if c.Server.RequestsPerSecond < 0 {
		add("server.requests_per_second", "must not be negative")
	}

	if c.Retrieval.Limit < 1 || c.Retrieval.Limit > 50 {
		add("retrieval.limit", "must be between 1 and 50")
	}
	if c.Retrieval.ContextEntries < 0 {
		add("retrieval.context_entries", "must not be negative")
	}
	if c.Retrieval.MinQueryLength < 0 {
		add("retrieval.min_query_length", "must not be negative")
	}
	if c.Retrieval.DebounceEvery < 1 {
		add("retrieval.debounce_every", "must be at least 1")
	}

	if c.Orchestrator.RequestTimeout.Duration <= 0 {
		add("orchestrator.request_timeout", "must be positive")
	}
	if c.Orchestrator.BackgroundTimeout.Duration <= 0 {
		add("orchestrator.background_timeout", "must be positive")
	}
	if c.Orchestrator.MaxWorkers < 1 || c.Orchestrator.MaxWorkers > 64 {
		add("orchestrator.max_workers", "must be between 1 and 64")
	}
	if c.Orchestrator.FrameInterval.Duration < 10*time.Millisecond {
		add("orchestrator.frame_interval", "must be at least 10ms")
	}

	for _, name := range c.Plugins.Enabled {
		if _, err := plugins.ParseKind(name); err != nil {
			add("plugins.enabled", err.Error())
		}
	}
	if c.Plugins.SummarizerMaxLength < 1 {
		add("plugins.summarizer_max_length", "must be at least 1")
	}

	if !containsFold(validLevels, c.Logging.Level) {
		add("logging.level", "must be one of "+strings.Join(validLevels, ", "))
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		add("ui.theme", "must be dark or light")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = d.Storage.DataDir
	}
	if c.Orchestrator.FrameInterval.Duration == 0 {
		c.Orchestrator.FrameInterval = d.Orchestrator.FrameInterval
	}
	if c.Plugins.TranslatorLanguage == "" {
		c.Plugins.TranslatorLanguage = d.Plugins.TranslatorLanguage
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RECALL_MODEL: server.model
//   - RECALL_ENDPOINT: server.endpoint
//   - RECALL_DATA_DIR: storage.data_dir
//   - RECALL_RAG: "0"/"false" disables retrieval, "1"/"true" enables it
//   - RECALL_LOG_LEVEL: logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RECALL_MODEL"); v != "" {
		c.Server.Model = v
	}
	if v := os.Getenv("RECALL_ENDPOINT"); v != "" {
		c.Server.Endpoint = v
	}
	if v := os.Getenv("RECALL_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("RECALL_RAG"); v != "" {
		c.Retrieval.Enabled = parseBool(v)
	}
	if v := os.Getenv("RECALL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

var durationType = reflect.TypeOf(Duration{})

// Get retrieves a value by dotted key (e.g. "server.model").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if field.Type() == durationType {
		return field.Interface().(Duration).Duration, nil
	}
	return field.Interface(), nil
}

// GetString renders a value by dotted key for display.
func (c *Config) GetString(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	if list, ok := v.([]string); ok {
		return strings.Join(list, ","), nil
	}
	return fmt.Sprint(v), nil
}

// Set assigns a value by dotted key. String values are converted to the
// field's type; lists are comma-separated.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks a dotted key through the struct tree by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct || field.Type() == durationType {
			return reflect.Value{}, fmt.Errorf("key '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets field from value, converting strings as needed.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		switch {
		case field.Type() == durationType:
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid duration value: %w", err)
			}
			field.Set(reflect.ValueOf(Duration{d}))
			return nil
		case field.Kind() == reflect.String:
			field.SetString(s)
			return nil
		case field.Kind() == reflect.Int:
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(int64(n))
			return nil
		case field.Kind() == reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %w", err)
			}
			field.SetFloat(f)
			return nil
		case field.Kind() == reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				b = parseBool(s)
				if !b && !containsFold([]string{"no", "off"}, s) {
					return fmt.Errorf("invalid boolean value: %q", s)
				}
			}
			field.SetBool(b)
			return nil
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
			items := []string{}
			for _, item := range strings.Split(s, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			field.Set(reflect.ValueOf(items))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// AllKeys returns every configuration key in dotted form.
func AllKeys() []string {
	var keys []string
	v := reflect.ValueOf(Default()).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i).Tag.Get("toml")
		st := t.Field(i).Type
		for j := 0; j < st.NumField(); j++ {
			keys = append(keys, section+"."+st.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Plugins.Enabled = append([]string(nil), c.Plugins.Enabled...)
	return &clone
}

// String returns the config as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// TOML renders the config as it would be saved.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", err
	}
	return buf.String(), nil
}
