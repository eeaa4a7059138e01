// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Command run-init deletes the initramfs contents, switches to the real root
// file system and executes the real init.
package main

import (
	"os"

	"github.com/aibor/runinit/internal/cmd"
)

func main() {
	os.Exit(cmd.RunInit(os.Args[0], os.Args[1:], cmd.IO{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}))
}
