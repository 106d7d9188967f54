// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-recall/internal/analytics"
	"github.com/jeranaias/rigrun-recall/internal/retrieval"
	"github.com/jeranaias/rigrun-recall/internal/storage"
	"github.com/jeranaias/rigrun-recall/internal/util"
)

// withApp opens the app for a read-only command and closes it afterwards.
func withApp(args Args, fn func(*App) error) error {
	app, err := OpenApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// =============================================================================
// STATS
// =============================================================================

// HandleStats prints usage analytics over the whole log.
func HandleStats(args Args) error {
	return withApp(args, func(app *App) error {
		return app.writeStats(context.Background(), os.Stdout, args.JSON)
	})
}

func (a *App) writeStats(ctx context.Context, w io.Writer, jsonMode bool) error {
	snap, err := a.Analytics.Refresh(ctx)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("stats", snap).Write(w)
	}
	renderSnapshot(w, snap)
	return nil
}

func renderSnapshot(w io.Writer, snap analytics.Snapshot) {
	fmt.Fprintln(w, TitleStyle.Render("Analytics"))
	for _, line := range snap.Lines() {
		fmt.Fprintln(w, RenderField(line.Label, line.Value))
	}
}

// =============================================================================
// SEARCH AND HISTORY
// =============================================================================

// SearchResult is the --json payload of the search command.
type SearchResult struct {
	Query    string          `json:"query"`
	Keywords []string        `json:"keywords"`
	Entries  []storage.Entry `json:"entries"`
}

// HandleSearch lists past exchanges matching the query's keywords.
func HandleSearch(args Args) error {
	return withApp(args, func(app *App) error {
		return app.writeSearch(context.Background(), os.Stdout, args.Query, args.Limit, args.JSON)
	})
}

func (a *App) writeSearch(ctx context.Context, w io.Writer, query string, limit int, jsonMode bool) error {
	entries, err := a.Engine.Find(ctx, query, limit)
	if err != nil {
		return err
	}
	keywords := retrieval.Keywords(query)
	if jsonMode {
		return NewJSONResponse("search", SearchResult{Query: query, Keywords: keywords, Entries: entries}).Write(w)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No matching conversations."))
		return nil
	}
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Matches for %s", strings.Join(keywords, ", "))))
	renderEntries(w, entries, time.Now())
	return nil
}

// HandleHistory lists the most recent exchanges.
func HandleHistory(args Args) error {
	return withApp(args, func(app *App) error {
		return app.writeHistory(context.Background(), os.Stdout, args.Limit, args.JSON)
	})
}

func (a *App) writeHistory(ctx context.Context, w io.Writer, limit int, jsonMode bool) error {
	entries, err := a.Store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("history", entries).Write(w)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet."))
		return nil
	}
	fmt.Fprintln(w, TitleStyle.Render("Recent conversations"))
	renderEntries(w, entries, time.Now())
	return nil
}

func renderEntries(w io.Writer, entries []storage.Entry, now time.Time) {
	width := GetTerminalWidth() - 4
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		head := fmt.Sprintf("#%d  %s  %s  %s", e.ID, e.Timestamp.Format("2006-01-02 15:04"), e.Model, formatAge(e.Timestamp, now))
		if e.FileContext != "" {
			head += "  file: " + e.FileContext
		}
		fmt.Fprintln(w, DimStyle.Render(head))
		fmt.Fprintln(w, PromptStyle.Render("> ")+util.Preview(e.Prompt, width))
		fmt.Fprintln(w, "  "+util.Preview(e.Response, width))
	}
}

// =============================================================================
// MIRRORS
// =============================================================================

// MirrorReport is the --json payload of the mirrors command.
type MirrorReport struct {
	Action  string   `json:"action"`
	Missing []string `json:"missing,omitempty"`
	Written int      `json:"written"`
}

// HandleMirrors checks or regenerates the per-exchange text files.
func HandleMirrors(args Args) error {
	return withApp(args, func(app *App) error {
		return app.writeMirrors(context.Background(), os.Stdout, args.Subcommand, args.JSON)
	})
}

func (a *App) writeMirrors(ctx context.Context, w io.Writer, action string, jsonMode bool) error {
	report := MirrorReport{Action: action}

	switch action {
	case "rebuild":
		n, err := a.Store.RebuildMirrors(ctx)
		if err != nil {
			return NewCommandError("mirrors", "rebuild", err)
		}
		report.Written = n
	default:
		missing, err := a.Store.MissingMirrors(ctx)
		if err != nil {
			return NewCommandError("mirrors", "check", err)
		}
		for _, e := range missing {
			report.Missing = append(report.Missing, storage.MirrorName(e))
		}
	}

	if jsonMode {
		return NewJSONResponse("mirrors", report).Write(w)
	}

	switch {
	case action == "rebuild":
		fmt.Fprintln(w, RenderStatus(true, "[OK]")+fmt.Sprintf(" Wrote %d mirror files to %s", report.Written, a.Store.Dir()))
	case len(report.Missing) == 0:
		fmt.Fprintln(w, RenderStatus(true, "[OK]")+" Every conversation has a mirror file.")
	default:
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%d mirror files missing:", len(report.Missing))))
		for _, name := range report.Missing {
			fmt.Fprintln(w, "  "+name)
		}
		fmt.Fprintln(w, DimStyle.Render("Run 'recall mirrors rebuild' to regenerate them."))
	}
	return nil
}
