// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
)

// Run parses argv, executes the command and returns the process exit code.
func Run(argv []string) int {
	cmd, args, err := Parse(argv)
	if err != nil {
		DisplayError(cmd.String(), err, args.JSON)
		return ExitCode(err)
	}

	if err := Dispatch(cmd, args); err != nil {
		DisplayError(cmd.String(), err, args.JSON)
		return ExitCode(err)
	}
	return ExitSuccess
}

// Dispatch runs one parsed command.
func Dispatch(cmd Command, args Args) error {
	switch cmd {
	case CmdTUI:
		return HandleTUI(args)
	case CmdChat:
		return HandleChat(args)
	case CmdAsk:
		return HandleAsk(args)
	case CmdStats:
		return HandleStats(args)
	case CmdSearch:
		return HandleSearch(args)
	case CmdHistory:
		return HandleHistory(args)
	case CmdMirrors:
		return HandleMirrors(args)
	case CmdConfig:
		return HandleConfig(args)
	case CmdStatus:
		return HandleStatus(args)
	case CmdVersion:
		if args.JSON {
			return NewJSONResponse("version", map[string]string{
				"version": Version, "commit": GitCommit, "build_date": BuildDate,
			}).Print()
		}
		fmt.Println(VersionString())
		return nil
	default:
		fmt.Fprint(os.Stdout, Usage())
		return nil
	}
}
