// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"errors"
	"io/fs"
)

var (
	// ErrFileExist is returned if an entry is added for a path that already
	// exists.
	ErrFileExist = fs.ErrExist

	// ErrFileInvalid is returned if a path is invalid for the requested
	// operation.
	ErrFileInvalid = fs.ErrInvalid

	// ErrFileNotDir is returned if a file exists but is not a directory.
	ErrFileNotDir = errors.New("not a directory")

	// ErrFileNotRegular is returned if the source is not a regular file.
	ErrFileNotRegular = errors.New("source is not a regular file")

	// ErrShortWrite is returned if a source has less data than announced.
	ErrShortWrite = errors.New("short write")

	// ErrInvalidArgument is returned if an invalid argument is given.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PathError records an error and the operation and file path that caused it.
type PathError = fs.PathError
