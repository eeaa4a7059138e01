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
	"runtime/debug"

	"github.com/aibor/runinit/internal/initramfs"
)

// Set on build.
var version = "dev"

const mkInitramfsUsage = `Usage of '%s':
    %s [flags...] run-init-binary [init [initargs...]]

Builds an initramfs archive that mounts the root device and hands over to the
real init using run-init. Without -o the archive is written to stdout.

Example:
    %s -rootDev /dev/vda -busybox /usr/bin/busybox -o initramfs.cpio ./run-init

Flags:
`

type mkInitramfsFlags struct {
	name    string
	output  string
	runInit FilePath
	busybox FilePath
	files   FileMappingList
	script  initramfs.InitScript
	version bool
	debug   bool
	flagSet *flag.FlagSet
}

func newMkInitramfsFlags(name string, output io.Writer) *mkInitramfsFlags {
	flags := &mkInitramfsFlags{
		name: name,
		script: initramfs.InitScript{
			RootFlags: initramfs.DefaultRootFlags,
			RootDir:   initramfs.DefaultRootDir,
			Console:   initramfs.DefaultConsole,
			Timeout:   initramfs.DefaultTimeout,
		},
	}

	flags.initFlagset(output)

	return flags
}

func (f *mkInitramfsFlags) initFlagset(output io.Writer) {
	fs := flag.NewFlagSet(f.name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), mkInitramfsUsage, f.name, f.name, f.name)
		fs.PrintDefaults()
	}

	fs.StringVar(
		&f.output,
		"o",
		f.output,
		"file to write the archive to",
	)

	fs.StringVar(
		&f.script.RootDevice,
		"rootDev",
		f.script.RootDevice,
		"block device of the real root file system (required)",
	)

	fs.StringVar(
		&f.script.RootFSType,
		"rootFSType",
		f.script.RootFSType,
		"file system type of the root device, detected by mount if empty",
	)

	fs.StringVar(
		&f.script.RootFlags,
		"rootFlags",
		f.script.RootFlags,
		"mount options for the root device",
	)

	fs.StringVar(
		&f.script.RootDir,
		"rootDir",
		f.script.RootDir,
		"directory in the initramfs to mount the root device at",
	)

	fs.StringVar(
		&f.script.Console,
		"console",
		f.script.Console,
		"console device run-init opens in the real root",
	)

	fs.IntVar(
		&f.script.Timeout,
		"timeout",
		f.script.Timeout,
		"seconds to wait for the root device",
	)

	fs.Var(
		&f.busybox,
		"busybox",
		"statically linked busybox binary providing the shell for /init",
	)

	fs.Var(
		&f.files,
		"addFile",
		"file to add, as source[:dest]. Flag may be used more than once.",
	)

	fs.BoolVar(
		&f.debug,
		"debug",
		f.debug,
		"enable debug output",
	)

	fs.BoolVar(
		&f.version,
		"version",
		f.version,
		"show version and exit",
	)

	f.flagSet = fs
}

// fail fails like flag does. It prints the error first and then usage.
func (f *mkInitramfsFlags) fail(msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(f.flagSet.Output(), err.Error())

	f.flagSet.Usage()

	return err
}

func (f *mkInitramfsFlags) logLevel() slog.Level {
	return logLevel(f.debug, slog.LevelWarn)
}

func (f *mkInitramfsFlags) printVersionInformation() {
	fmt.Fprintf(f.flagSet.Output(), "%s: %s\n", f.name, version)

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	fmt.Fprintln(f.flagSet.Output())
	fmt.Fprintln(f.flagSet.Output(), buildInfo.String())
}

func (f *mkInitramfsFlags) ParseArgs(args []string) error {
	// Parses arguments up to the first one that is not prefixed with a "-" or
	// is "--".
	if err := f.flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &ParseArgsError{msg: "help requested", err: err}
		}

		return &ParseArgsError{msg: "flag parse", err: err}
	}

	// With version flag, just print the version and exit. Using [flag.ErrHelp]
	// the main binary is supposed to return with a non error exit code.
	if f.version {
		f.printVersionInformation()
		return &ParseArgsError{msg: "version requested", err: flag.ErrHelp}
	}

	if f.script.RootDevice == "" {
		return f.fail("no root device given (use -rootDev)", nil)
	}

	positionalArgs := f.flagSet.Args()

	// First positional argument is supposed to be the run-init binary.
	if len(positionalArgs) < 1 {
		return f.fail("no run-init binary given", nil)
	}

	if err := f.runInit.Set(positionalArgs[0]); err != nil {
		return f.fail("run-init binary path", err)
	}

	// All further positional arguments are the real init and its arguments.
	if len(positionalArgs) > 1 {
		f.script.Init = positionalArgs[1]
		f.script.InitArgs = positionalArgs[2:]
	}

	return nil
}
