// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initramfs builds a minimal initramfs that mounts the real root file
// system and hands over to run-init. The initramfs is a newc CPIO archive.
package initramfs
