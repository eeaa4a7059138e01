// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibor/runinit/switchroot"
)

const runInitUsage = `Usage: exec %s [-c consoledev] [-n] [-debug] /real-root /sbin/init [args]

Deletes everything in the initramfs, moves /real-root onto /, changes the root
directory into it, opens the console as standard input and output and
executes the real init with the given arguments. It must run as the last
command of the initramfs init, so the real init keeps its process ID.

Flags:
`

type runInitFlags struct {
	name    string
	cfg     switchroot.Config
	dryRun  bool
	debug   bool
	flagSet *flag.FlagSet
}

func newRunInitFlags(name string, output io.Writer) *runInitFlags {
	flags := &runInitFlags{
		name: name,
		cfg: switchroot.Config{
			Console: switchroot.DefaultConsole,
		},
	}

	flags.initFlagset(output)

	return flags
}

func (f *runInitFlags) initFlagset(output io.Writer) {
	fs := flag.NewFlagSet(f.name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), runInitUsage, f.name)
		fs.PrintDefaults()
	}

	fs.StringVar(
		&f.cfg.Console,
		"c",
		f.cfg.Console,
		"console device to open as standard input and output",
	)

	fs.BoolVar(
		&f.dryRun,
		"n",
		f.dryRun,
		"dry run: only check that the transition can be done",
	)

	fs.BoolVar(
		&f.debug,
		"debug",
		f.debug,
		"enable debug output",
	)

	f.flagSet = fs
}

// fail fails like flag does. It prints the error first and then usage.
func (f *runInitFlags) fail(msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(f.flagSet.Output(), err.Error())

	f.flagSet.Usage()

	return err
}

func (f *runInitFlags) logLevel() slog.Level {
	fallback := slog.LevelWarn
	if f.dryRun {
		fallback = slog.LevelInfo
	}

	return logLevel(f.debug, fallback)
}

func (f *runInitFlags) ParseArgs(args []string) error {
	// Parses arguments up to the first one that is not prefixed with a "-" or
	// is "--". Everything after the init path belongs to the init.
	if err := f.flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &ParseArgsError{msg: "help requested", err: err}
		}

		return &ParseArgsError{msg: "flag parse", err: err}
	}

	positionalArgs := f.flagSet.Args()
	if len(positionalArgs) < 2 {
		return f.fail("real root and init required", nil)
	}

	f.cfg.RealRoot = positionalArgs[0]
	f.cfg.Init = positionalArgs[1]
	f.cfg.InitArgs = positionalArgs[2:]

	return nil
}
