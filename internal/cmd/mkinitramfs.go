// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aibor/runinit/internal/initramfs"
)

const (
	busyboxPath = "/bin/busybox"
	execMode    = 0o755
)

// Applets the generated /init uses. Test and echo are shell builtins.
var busyboxApplets = []string{"sh", "mkdir", "mount", "sleep"}

// hostPath returns the path of the absolute host path name in a [fs.FS]
// rooted at "/".
func hostPath(name string) string {
	return strings.TrimPrefix(name, "/")
}

func buildInitramfs(
	ctx context.Context,
	flags *mkInitramfsFlags,
	fsys fs.FS,
) (*initramfs.Initramfs, error) {
	script, err := flags.script.Render()
	if err != nil {
		return nil, fmt.Errorf("init script: %w", err)
	}

	archive := initramfs.New()

	for _, dir := range []string{"dev", "proc", "sys", flags.script.RootDirectory()} {
		if err := archive.AddDirectory(dir); err != nil {
			return nil, fmt.Errorf("add directory: %w", err)
		}
	}

	runInit := flags.script.RunInitPath()
	if err := archive.AddFile(runInit, fsys, hostPath(flags.runInit.String()), execMode); err != nil {
		return nil, fmt.Errorf("add run-init: %w", err)
	}

	if flags.busybox != "" {
		if err := addBusybox(archive, fsys, flags.busybox.String()); err != nil {
			return nil, err
		}
	}

	for _, file := range flags.files {
		if err := archive.AddFile(file.Dest, fsys, hostPath(file.Source), 0); err != nil {
			return nil, fmt.Errorf("add file: %w", err)
		}
	}

	if err := archive.AddVirtualFile("init", script, execMode); err != nil {
		return nil, fmt.Errorf("add init: %w", err)
	}

	if err := archive.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return archive, nil
}

func addBusybox(archive *initramfs.Initramfs, fsys fs.FS, source string) error {
	if err := archive.AddFile(busyboxPath, fsys, hostPath(source), execMode); err != nil {
		return fmt.Errorf("add busybox: %w", err)
	}

	for _, applet := range busyboxApplets {
		name := path.Join(path.Dir(busyboxPath), applet)
		if err := archive.AddSymlink(name, path.Base(busyboxPath)); err != nil {
			return fmt.Errorf("add busybox applet: %w", err)
		}
	}

	return nil
}

func writeInitramfs(archive *initramfs.Initramfs, output string, stdout io.Writer) error {
	if output == "" {
		return archive.WriteArchive(stdout)
	}

	if err := archive.WriteToFile(output); err != nil {
		return err
	}

	slog.Info("Created initramfs archive", slog.String("path", output))

	return nil
}

// MkInitramfs is the main entry point for the mkinitramfs command. It returns
// the exit code.
func MkInitramfs(ctx context.Context, name string, args []string, cfg IO) int {
	flags := newMkInitramfsFlags(name, cfg.Stderr)

	if err := flags.ParseArgs(args); err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	archive, err := buildInitramfs(ctx, flags, os.DirFS("/"))
	if err != nil {
		slog.Error(err.Error())
		return 1
	}

	slog.Debug("Initramfs content", slog.Any("paths", archive.Paths()))

	if err := writeInitramfs(archive, flags.output, cfg.Stdout); err != nil {
		slog.Error(err.Error())
		return 1
	}

	return 0
}
