// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/rigrun-recall/internal/config"
)

// HandleConfig implements "recall config show|get|set|path|keys".
func HandleConfig(args Args) error {
	return runConfig(os.Stdout, args)
}

func runConfig(w io.Writer, args Args) error {
	switch args.Subcommand {
	case "show":
		return configShow(w, args)
	case "get":
		return configGet(w, args)
	case "set":
		return configSet(w, args)
	case "path":
		return configPath(w, args)
	case "keys":
		return configKeys(w, args)
	default:
		return NewUsageError(fmt.Sprintf("unknown config subcommand %q (show, get, set, path, keys)", args.Subcommand))
	}
}

// configShow prints the effective configuration, including environment and
// flag overrides.
func configShow(w io.Writer, args Args) error {
	cfg, path, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]any{"path": path, "config": cfg}).Write(w)
	}

	body, err := cfg.TOML()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, DimStyle.Render("# "+path))
	fmt.Fprint(w, body)
	return nil
}

func configGet(w io.Writer, args Args) error {
	if len(args.Positional) < 2 {
		return NewUsageError("usage: recall config get <key>")
	}
	key := args.Positional[1]

	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		return NewJSONResponse("config", map[string]any{"key": key, "value": v}).Write(w)
	}
	v, err := cfg.GetString(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, v)
	return nil
}

// configSet edits the file only. Environment overrides are not written back.
func configSet(w io.Writer, args Args) error {
	if len(args.Positional) < 3 {
		return NewUsageError("usage: recall config set <key> <value>")
	}
	key, value := args.Positional[1], args.Positional[2]

	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return NewCommandError("config", "save", err)
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]any{"key": key, "value": value, "path": path}).Write(w)
	}
	fmt.Fprintln(w, RenderStatus(true, "[OK]")+" "+key+" = "+value)
	return nil
}

func configPath(w io.Writer, args Args) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	if args.JSON {
		_, statErr := os.Stat(path)
		return NewJSONResponse("config", map[string]any{"path": path, "exists": statErr == nil}).Write(w)
	}
	fmt.Fprintln(w, path)
	return nil
}

func configKeys(w io.Writer, args Args) error {
	keys := config.AllKeys()
	if args.JSON {
		return NewJSONResponse("config", keys).Write(w)
	}
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
	return nil
}
