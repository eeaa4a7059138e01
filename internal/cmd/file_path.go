// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// FilePath is a [flag.Value] for an absolute host file path.
type FilePath string

func (f *FilePath) String() string {
	return string(*f)
}

func (f *FilePath) Set(s string) error {
	path, err := AbsoluteFilePath(s)

	*f = FilePath(path)

	return err
}

// FileMapping maps a host file to a path in the initramfs.
type FileMapping struct {
	Source string
	Dest   string
}

// FileMappingList is a [flag.Value] for file mappings in the form
// "source[:dest]". If dest is omitted, the file is added at the same path.
type FileMappingList []FileMapping

func (f *FileMappingList) String() string {
	mappings := make([]string, len(*f))
	for idx, m := range *f {
		mappings[idx] = m.Source + ":" + m.Dest
	}

	return strings.Join(mappings, ",")
}

func (f *FileMappingList) Set(s string) error {
	source, dest, found := strings.Cut(s, ":")
	if found && dest == "" {
		return fmt.Errorf("%w: %s", ErrInvalidFileMapping, s)
	}

	source, err := AbsoluteFilePath(source)
	if err != nil {
		return err
	}

	if !found {
		dest = source
	}

	*f = append(*f, FileMapping{
		Source: source,
		Dest:   path.Clean("/" + dest),
	})

	return nil
}

// AbsoluteFilePath returns the absolute path for the non-empty path.
func AbsoluteFilePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyFilePath
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	return path, nil
}

// MustAbsoluteFilePath is like [AbsoluteFilePath] but panics on error.
func MustAbsoluteFilePath(path string) string {
	abs, err := AbsoluteFilePath(path)
	if err != nil {
		panic(err)
	}

	return abs
}
