// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"fmt"
	"io/fs"
	"slices"

	"golang.org/x/sys/unix"
)

// DefaultConsole is the console device used if none is configured.
const DefaultConsole = "/dev/console"

// stdFDs are the file descriptors of stdin, stdout and stderr.
var stdFDs = []int{0, 1, 2}

// AcquireConsole opens the console device at path and binds it to stdin,
// stdout and stderr of the process, replacing whatever they referred to
// before.
//
// The console is opened without O_NOCTTY, so a session leader without
// controlling terminal gets it as its controlling terminal.
func AcquireConsole(path string) error {
	return bindConsole(path, stdFDs...)
}

// bindConsole opens the file at path and duplicates it onto all given file
// descriptors.
func bindConsole(path string, targets ...int) error {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return &fs.PathError{Op: "open", Path: path, Err: err}
	}

	for _, target := range targets {
		// If any of the standard streams was closed, open may return it.
		if target == fd {
			continue
		}

		if err := unix.Dup3(fd, target, 0); err != nil {
			if !slices.Contains(targets, fd) {
				_ = unix.Close(fd)
			}

			return fmt.Errorf("dup %s to fd %d: %w", path, target, err)
		}
	}

	if slices.Contains(targets, fd) {
		return nil
	}

	return closeFD(fd, path)
}
