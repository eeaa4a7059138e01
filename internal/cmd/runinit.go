// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aibor/runinit/switchroot"
)

type transitionFunc func(cfg switchroot.Config) error

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// ParseArgs already prints errors, so we just exit with an error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return 1
}

// RunInit is the main entry point for the run-init command. It returns the
// exit code. On success of a real transition it never returns.
func RunInit(name string, args []string, cfg IO) int {
	return runInit(name, args, cfg, func(flags *runInitFlags) transitionFunc {
		if flags.dryRun {
			return switchroot.DryRun
		}

		return switchroot.Run
	})
}

func runInit(
	name string,
	args []string,
	cfg IO,
	transitionFor func(*runInitFlags) transitionFunc,
) int {
	flags := newRunInitFlags(name, cfg.Stderr)

	if err := flags.ParseArgs(args); err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	slog.Debug("Root transition",
		slog.String("real_root", flags.cfg.RealRoot),
		slog.String("console", flags.cfg.Console),
		slog.Any("argv", flags.cfg.Argv()),
		slog.Bool("dry_run", flags.dryRun),
	)

	if err := transitionFor(flags)(flags.cfg); err != nil {
		fmt.Fprintf(cfg.Stderr, "%s: %v\n", name, err)
		return 1
	}

	return 0
}
