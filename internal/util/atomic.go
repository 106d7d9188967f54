// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small file and string helpers shared by recall.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RELIABILITY: Atomic write with fsync prevents data loss on crash
//
// AtomicWriteFile writes data to path atomically:
// 1. Write to a temporary file in the same directory
// 2. fsync and close it
// 3. Rename it over the target
//
// On crash either the old file or the new complete file exists.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	absPath, tempPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// AtomicCreateFile is like AtomicWriteFile but never replaces an existing
// file. The complete temp file is hard-linked into place, so readers never
// observe a partial file and a second writer gets an error satisfying
// errors.Is(err, fs.ErrExist).
func AtomicCreateFile(path string, data []byte, perm os.FileMode) error {
	absPath, tempPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tempPath)

	if err := os.Link(tempPath, absPath); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(absPath), err)
	}
	return nil
}

// writeTemp writes data to a synced temp file next to path and returns the
// absolute target path and the temp path.
func writeTemp(path string, data []byte, perm os.FileMode) (string, string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Same directory keeps the rename/link on one filesystem.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return "", "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", "", fmt.Errorf("failed to sync data to disk: %w", err)
	}
	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		os.Remove(tempPath)
		return "", "", fmt.Errorf("failed to set file permissions: %w", err)
	}

	success = true
	return absPath, tempPath, nil
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
