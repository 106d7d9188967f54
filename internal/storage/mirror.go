// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable conversation log for recall.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigrun-recall/internal/apperr"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

// =============================================================================
// MIRROR FILES
// =============================================================================

// MirrorName returns the mirror file name for e. The UTC timestamp keeps names
// in chronological order and stable across time zone changes; the zero-padded
// ID keeps two exchanges from the same second apart.
func MirrorName(e Entry) string {
	return fmt.Sprintf("response_%s_%06d.txt", e.Timestamp.UTC().Format("20060102_150405"), e.ID)
}

// MirrorPath returns where e's mirror lives in this store.
func (s *ConversationStore) MirrorPath(e Entry) string {
	return filepath.Join(s.dir, MirrorName(e))
}

// RenderMirror formats e as the human-readable mirror text.
func RenderMirror(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Timestamp: %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Model: %s\n", e.Model)
	fmt.Fprintf(&b, "Response Time: %dms\n", e.ResponseTimeMs)
	if e.FileContext != "" {
		fmt.Fprintf(&b, "File: %s\n", e.FileContext)
	}
	b.WriteString("\nPrompt:\n")
	b.WriteString(e.Prompt)
	b.WriteString("\n\nResponse:\n")
	b.WriteString(e.Response)
	b.WriteString("\n")
	return b.String()
}

// writeMirror creates e's mirror file. Mirrors are write-once.
func (s *ConversationStore) writeMirror(e Entry) error {
	path := s.MirrorPath(e)
	if err := util.AtomicCreateFile(path, []byte(RenderMirror(e)), 0644); err != nil {
		return apperr.IO("write mirror "+filepath.Base(path), err)
	}
	return nil
}

// MissingMirrors returns the log entries whose mirror file does not exist.
func (s *ConversationStore) MissingMirrors(ctx context.Context) ([]Entry, error) {
	missing := []Entry{}
	err := s.all(ctx, func(e Entry) error {
		_, err := os.Stat(s.MirrorPath(e))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, e)
			return nil
		default:
			return apperr.IO("stat mirror", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return missing, nil
}

// RebuildMirrors regenerates every missing mirror file from the log and
// returns how many were written. A mirror that appears concurrently is left
// alone.
func (s *ConversationStore) RebuildMirrors(ctx context.Context) (int, error) {
	missing, err := s.MissingMirrors(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, e := range missing {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := s.writeMirror(e); err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return written, err
		}
		written++
	}
	if written > 0 {
		s.logger.Info("mirrors rebuilt", "count", written)
	}
	return written, nil
}
