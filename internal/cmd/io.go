// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import "io"

// IO provides the output streams for the command. Neither command reads
// input.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}
