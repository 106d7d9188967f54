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

	"github.com/jeranaias/rigrun-recall/internal/ollama"
)

// statusTimeout bounds each server call made by the status command.
const statusTimeout = 3 * time.Second

// StatusModel is one installed model.
type StatusModel struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// StatusReport is the status command's view of the environment.
type StatusReport struct {
	Version        string        `json:"version"`
	Endpoint       string        `json:"endpoint"`
	Running        bool          `json:"running"`
	ServerError    string        `json:"server_error,omitempty"`
	Model          string        `json:"model"`
	ModelInstalled bool          `json:"model_installed"`
	Models         []StatusModel `json:"models"`
	DataDir        string        `json:"data_dir"`
	Conversations  int           `json:"conversations"`
	MissingMirrors int           `json:"missing_mirrors"`
	RetrievalOn    bool          `json:"retrieval_enabled"`
	Plugins        string        `json:"plugins"`
}

// HandleStatus checks the model server and the conversation log.
func HandleStatus(args Args) error {
	app, err := OpenApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	report := app.Status(context.Background())
	if args.JSON {
		return NewJSONResponse("status", report).Print()
	}
	renderStatusReport(os.Stdout, report)
	return nil
}

// Status gathers a StatusReport. Failures are recorded in the report rather
// than returned.
func (a *App) Status(ctx context.Context) StatusReport {
	cfg := a.CurrentConfig()
	r := StatusReport{
		Version:     Version,
		Endpoint:    cfg.Server.Endpoint,
		Model:       cfg.Server.Model,
		DataDir:     a.DataDir,
		RetrievalOn: cfg.Retrieval.Enabled,
		Plugins:     a.Plugins.Describe(),
	}

	checkCtx, cancel := context.WithTimeout(ctx, statusTimeout)
	err := a.Client.CheckRunning(checkCtx)
	cancel()
	if err != nil {
		r.ServerError = err.Error()
	} else {
		r.Running = true
		listCtx, cancel := context.WithTimeout(ctx, statusTimeout)
		models, err := a.Client.ListModels(listCtx)
		cancel()
		if err != nil {
			r.ServerError = err.Error()
		}
		for _, m := range models {
			r.Models = append(r.Models, StatusModel{Name: m.Name, Size: m.FormatSize()})
			if modelMatches(m, r.Model) {
				r.ModelInstalled = true
			}
		}
	}

	if n, err := a.Store.Count(ctx); err != nil {
		a.logger.Warn("count conversations failed", "error", err)
	} else {
		r.Conversations = n
	}
	if missing, err := a.Store.MissingMirrors(ctx); err != nil {
		a.logger.Warn("mirror check failed", "error", err)
	} else {
		r.MissingMirrors = len(missing)
	}
	return r
}

// modelMatches accepts "llama3" for an installed "llama3:latest".
func modelMatches(m ollama.ModelInfo, name string) bool {
	return m.Name == name || strings.HasPrefix(m.Name, name+":")
}

func renderStatusReport(w io.Writer, r StatusReport) {
	fmt.Fprintln(w, TitleStyle.Render("recall status"))

	fmt.Fprintln(w, SectionStyle.Render("Model server"))
	fmt.Fprintln(w, RenderField("Endpoint", r.Endpoint))
	if r.Running {
		fmt.Fprintln(w, LabelStyle.Render("Server")+RenderStatus(true, "Running"))
	} else {
		fmt.Fprintln(w, LabelStyle.Render("Server")+RenderStatus(false, "Not running"))
		if r.ServerError != "" {
			fmt.Fprintln(w, DimStyle.Render("  "+r.ServerError))
		}
	}
	switch {
	case !r.Running:
		fmt.Fprintln(w, RenderField("Model", r.Model))
	case r.ModelInstalled:
		fmt.Fprintln(w, LabelStyle.Render("Model")+SuccessStyle.Render(r.Model+" (installed)"))
	default:
		fmt.Fprintln(w, LabelStyle.Render("Model")+WarningStyle.Render(r.Model+" (not downloaded)"))
	}
	if len(r.Models) > 0 {
		names := make([]string, len(r.Models))
		for i, m := range r.Models {
			names[i] = fmt.Sprintf("%s (%s)", m.Name, m.Size)
		}
		fmt.Fprintln(w, RenderField("Installed", strings.Join(names, ", ")))
	}

	fmt.Fprintln(w, SectionStyle.Render("Conversations"))
	fmt.Fprintln(w, RenderField("Data directory", r.DataDir))
	fmt.Fprintln(w, RenderField("Entries", fmt.Sprintf("%d", r.Conversations)))
	if r.MissingMirrors > 0 {
		fmt.Fprintln(w, LabelStyle.Render("Mirror files")+WarningStyle.Render(
			fmt.Sprintf("%d missing (run 'recall mirrors rebuild')", r.MissingMirrors)))
	} else {
		fmt.Fprintln(w, LabelStyle.Render("Mirror files")+SuccessStyle.Render("complete"))
	}
	rag := "off"
	if r.RetrievalOn {
		rag = "on"
	}
	fmt.Fprintln(w, RenderField("Related context", rag))
	fmt.Fprintln(w, RenderField("Plugins", r.Plugins))
}
