// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable conversation log for recall.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigrun-recall/internal/apperr"
	"github.com/jeranaias/rigrun-recall/internal/util"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ENTRY TYPE
// =============================================================================

// Entry is one persisted prompt/response exchange.
// Entries are immutable once appended; readers receive value copies.
type Entry struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Prompt         string    `json:"prompt"`
	Response       string    `json:"response"`
	Model          string    `json:"model"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	FileContext    string    `json:"file_context,omitempty"` // empty means absent
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore is the append-only conversation log.
type ConversationStore struct {
	dir    string
	dbPath string
	dsn    string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a ConversationStore.
type Option func(*ConversationStore)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ConversationStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used to stamp entries that arrive without a
// timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *ConversationStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Open prepares the store in dir, creating the directory and schema if
// needed. Existing rows are never touched, so Open is safe on every start.
func Open(dir string, opts ...Option) (*ConversationStore, error) {
	if dir == "" {
		return nil, apperr.New(apperr.KindInvalid, "storage directory is empty")
	}
	expanded, err := util.ExpandHome(dir)
	if err != nil {
		return nil, apperr.IO("resolve storage directory", err)
	}

	if err := os.MkdirAll(expanded, 0755); err != nil {
		return nil, apperr.IO("create storage directory", err)
	}

	s := &ConversationStore{
		dir:    expanded,
		dbPath: filepath.Join(expanded, DatabaseFile),
		logger: slog.Default().With("component", "storage"),
		now:    time.Now,
	}
	s.dsn = buildDSN(s.dbPath)
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = s.withDB(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, Schema); err != nil {
			return apperr.Storage("initialize schema", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("conversation store ready", "path", s.dbPath)
	return s, nil
}

// buildDSN returns the modernc connection string with WAL journaling and a
// busy timeout so concurrent per-operation handles wait instead of failing.
func buildDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}

// Dir returns the store directory (also where mirror files live).
func (s *ConversationStore) Dir() string {
	return s.dir
}

// Path returns the database file path.
func (s *ConversationStore) Path() string {
	return s.dbPath
}

// withDB opens a handle for one operation and closes it afterwards.
func (s *ConversationStore) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return apperr.Storage("open database", err)
	}
	defer db.Close()

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return apperr.Storage("open database", err)
	}
	return fn(db)
}

// =============================================================================
// WRITES
// =============================================================================

// Append inserts one exchange and then writes its mirror file. The ID of e is
// ignored; the stored entry with its assigned ID is returned. Prompt and
// response are stored in Unicode NFC so keyword matching sees one spelling.
//
// The log row and the mirror are two separate durable writes. When the mirror
// write fails the row is already committed: the stored entry is returned
// together with a KindIO error, and RebuildMirrors can recover the file.
func (s *ConversationStore) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	e.ID = 0
	e.Prompt = norm.NFC.String(e.Prompt)
	e.Response = norm.NFC.String(e.Response)

	err := s.withDB(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO conversations (timestamp, prompt, response, model_used, response_time_ms, file_context)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			formatTimestamp(e.Timestamp), e.Prompt, e.Response, e.Model, e.ResponseTimeMs, nullString(e.FileContext))
		if err != nil {
			return apperr.Storage("insert conversation", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return apperr.Storage("insert conversation", err)
		}
		e.ID = id
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	// Readers get local wall time without a monotonic reading.
	e.Timestamp = e.Timestamp.Round(0).Local()

	if err := s.writeMirror(e); err != nil {
		s.logger.Warn("mirror write failed", "id", e.ID, "error", err)
		return e, err
	}

	s.logger.Debug("conversation appended", "id", e.ID, "model", e.Model)
	return e, nil
}

// =============================================================================
// READS
// =============================================================================

// Recent returns up to limit entries, newest first.
func (s *ConversationStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	var out []Entry
	err := s.withDB(ctx, func(db *sql.DB) error {
		var err error
		out, err = queryEntries(ctx, db,
			`SELECT `+entryColumns+` FROM conversations ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Matching returns up to limit entries, newest first, whose prompt or
// response contains any of the keywords as a substring. Matching is ASCII
// case-insensitive. An empty keyword list yields an empty result.
func (s *ConversationStore) Matching(ctx context.Context, keywords []string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	var (
		clauses []string
		args    []any
	)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		pattern := "%" + escapeLike(kw) + "%"
		clauses = append(clauses, `prompt LIKE ? ESCAPE '\' OR response LIKE ? ESCAPE '\'`)
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return []Entry{}, nil
	}
	args = append(args, limit)

	query := `SELECT ` + entryColumns + ` FROM conversations WHERE ` +
		strings.Join(clauses, " OR ") +
		` ORDER BY timestamp DESC, id DESC LIMIT ?`

	var out []Entry
	err := s.withDB(ctx, func(db *sql.DB) error {
		var err error
		out, err = queryEntries(ctx, db, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the entry with the given id.
func (s *ConversationStore) Get(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := s.withDB(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM conversations WHERE id = ?`, id)
		var err error
		e, err = scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
		}
		return err
	})
	return e, err
}

// Count returns the number of logged exchanges.
func (s *ConversationStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.withDB(ctx, func(db *sql.DB) error {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
			return apperr.Storage("count conversations", err)
		}
		return nil
	})
	return n, err
}

// all streams every entry in id order to fn. Used by mirror recovery.
func (s *ConversationStore) all(ctx context.Context, fn func(Entry) error) error {
	return s.withDB(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+entryColumns+` FROM conversations ORDER BY id`)
		if err != nil {
			return apperr.Storage("list conversations", err)
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return apperr.Storage("list conversations", err)
		}
		return nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func queryEntries(ctx context.Context, db *sql.DB, query string, args ...any) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("query conversations", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("query conversations", err)
	}
	return out, nil
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e    Entry
		ts   string
		file sql.NullString
	)
	if err := row.Scan(&e.ID, &ts, &e.Prompt, &e.Response, &e.Model, &e.ResponseTimeMs, &file); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, apperr.Storage("read conversation", err)
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return Entry{}, apperr.Parse(fmt.Sprintf("conversation %d timestamp", e.ID), err)
	}
	e.Timestamp = t
	e.FileContext = file.String
	return e, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		// Accept RFC 3339 without the fixed-width fraction for hand-edited rows.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.Local(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike escapes LIKE wildcards so keywords match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
