// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"io"
	"io/fs"
)

// Writer defines initramfs archive writer interface.
type Writer interface {
	WriteRegular(path string, source io.Reader, size int64, mode fs.FileMode) error
	WriteDirectory(path string) error
	WriteLink(path, target string) error
}
