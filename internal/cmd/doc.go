// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd provides the CLI entry points for run-init and mkinitramfs. It
// handles flag parsing, logging setup, error reporting and exit codes.
package cmd
