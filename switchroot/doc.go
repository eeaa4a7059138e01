// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package switchroot hands the system over from an initramfs to the real root
// file system.
//
// It is meant to be used by the last program an initramfs init script runs.
// [Run] deletes the initramfs content, moves the real root mount onto "/",
// changes the root directory into it, binds the console to the standard
// streams and finally replaces the process with the real init. Every step is
// irreversible, so the sequence stops at the first error and never tries to
// undo anything.
package switchroot
