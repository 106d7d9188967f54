// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/model"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format selects an exporter.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// Formats lists the accepted format names.
var Formats = []string{"txt", "md", "json"}

// ParseFormat resolves a user-supplied format name. Empty means text.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "txt", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (available: %s)", name, strings.Join(Formats, ", "))
	}
}

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("nothing to export")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export converts messages to the target format.
	Export(msgs []model.ChatMessage) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where the file is written (default: current directory)
	OutputDir string

	// BaseName is the file name without extension (default: chat_export)
	BaseName string

	// IncludeMetadata adds a header and per-answer stats where the format has
	// room for them.
	IncludeMetadata bool

	// Now stamps the export; tests pin it
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		BaseName:        "chat_export",
		IncludeMetadata: true,
		Now:             time.Now,
	}
}

func (o *Options) normalize() *Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	out := *o
	if out.OutputDir == "" {
		out.OutputDir = d.OutputDir
	}
	if out.BaseName == "" {
		out.BaseName = d.BaseName
	}
	if out.Now == nil {
		out.Now = d.Now
	}
	return &out
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	opts = opts.normalize()
	switch format {
	case FormatText:
		return &TextExporter{}, nil
	case FormatMarkdown:
		return &MarkdownExporter{options: opts}, nil
	case FormatJSON:
		return &JSONExporter{options: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile renders msgs in format and writes the result under opts.OutputDir.
// Returns the written path.
func ToFile(msgs []model.ChatMessage, format Format, opts *Options) (string, error) {
	if len(msgs) == 0 {
		return "", ErrEmpty
	}
	opts = opts.normalize()

	exporter, err := New(format, opts)
	if err != nil {
		return "", err
	}
	content, err := exporter.Export(msgs)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir, err := util.ExpandHome(opts.OutputDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, sanitizeFilename(opts.BaseName)+exporter.FileExtension())
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat_export"
	}
	return b.String()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// formatDuration renders a response time.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
}
