// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const archiveFileMode = 0o644

type entryType int

const (
	entryDirectory entryType = iota
	entryRegular
	entryVirtual
	entrySymlink
)

type entry struct {
	typ    entryType
	path   string
	mode   fs.FileMode
	fsys   fs.FS
	source string
	data   []byte
	target string
}

// Initramfs is an ordered collection of archive entries.
//
// Parent directories are created implicitly. Entries are written in the order
// they have been added, so parent directories always precede their children.
type Initramfs struct {
	entries []entry
	index   map[string]int
}

// New creates a new empty [Initramfs].
func New() *Initramfs {
	return &Initramfs{
		index: make(map[string]int),
	}
}

// Paths returns the paths of all entries in archive order.
func (i *Initramfs) Paths() []string {
	paths := make([]string, len(i.entries))
	for idx, e := range i.entries {
		paths[idx] = e.path
	}

	return paths
}

// AddDirectory adds a directory and all its missing parents. Existing
// directories are accepted.
func (i *Initramfs) AddDirectory(name string) error {
	clean, err := cleanPath(name)
	if err != nil {
		return err
	}

	return i.mkdirAll(clean)
}

// AddFile adds a regular file that is copied from source in fsys when the
// archive is written. If mode is 0, the permissions of the source are used.
func (i *Initramfs) AddFile(name string, fsys fs.FS, source string, mode fs.FileMode) error {
	return i.add(entry{
		typ:    entryRegular,
		path:   name,
		mode:   mode,
		fsys:   fsys,
		source: source,
	})
}

// AddVirtualFile adds a regular file with the given content.
func (i *Initramfs) AddVirtualFile(name string, data []byte, mode fs.FileMode) error {
	return i.add(entry{
		typ:  entryVirtual,
		path: name,
		mode: mode,
		data: data,
	})
}

// AddSymlink adds a symbolic link pointing to target. The target is not
// required to exist.
func (i *Initramfs) AddSymlink(name, target string) error {
	if target == "" {
		return &PathError{Op: "symlink", Path: name, Err: ErrInvalidArgument}
	}

	return i.add(entry{
		typ:    entrySymlink,
		path:   name,
		target: target,
	})
}

func (i *Initramfs) add(e entry) error {
	clean, err := cleanPath(e.path)
	if err != nil {
		return err
	}

	e.path = clean

	if err := i.mkdirAll(path.Dir(clean)); err != nil {
		return err
	}

	if _, exists := i.index[clean]; exists {
		return &PathError{Op: "add", Path: clean, Err: ErrFileExist}
	}

	i.index[clean] = len(i.entries)
	i.entries = append(i.entries, e)

	return nil
}

func (i *Initramfs) mkdirAll(dir string) error {
	if dir == "." {
		return nil
	}

	if idx, exists := i.index[dir]; exists {
		if i.entries[idx].typ != entryDirectory {
			return &PathError{Op: "mkdir", Path: dir, Err: ErrFileNotDir}
		}

		return nil
	}

	if err := i.mkdirAll(path.Dir(dir)); err != nil {
		return err
	}

	i.index[dir] = len(i.entries)
	i.entries = append(i.entries, entry{typ: entryDirectory, path: dir})

	return nil
}

// cleanPath returns the archive path for name. Archive paths are relative to
// the archive root and never leave it.
func cleanPath(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", &PathError{Op: "add", Path: name, Err: ErrFileInvalid}
	}

	return clean[1:], nil
}

// Validate checks concurrently that the sources of all file entries exist and
// are regular files. It returns the first error found.
func (i *Initramfs) Validate(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))

	for _, e := range i.entries {
		if e.typ != entryRegular {
			continue
		}

		e := e

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("validate %s: %w", e.path, err)
			}

			info, err := fs.Stat(e.fsys, e.source)
			if err != nil {
				return fmt.Errorf("source for %s: %w", e.path, err)
			}

			if !info.Mode().IsRegular() {
				return &PathError{Op: "validate", Path: e.source, Err: ErrFileNotRegular}
			}

			return nil
		})
	}

	//nolint:wrapcheck
	return group.Wait()
}

// WriteInto writes all entries in order into the given [Writer].
func (i *Initramfs) WriteInto(writer Writer) error {
	for _, e := range i.entries {
		if err := writeEntry(writer, e); err != nil {
			return err
		}
	}

	return nil
}

func writeEntry(writer Writer, e entry) error {
	switch e.typ {
	case entryDirectory:
		return writer.WriteDirectory(e.path)
	case entrySymlink:
		return writer.WriteLink(e.path, e.target)
	case entryVirtual:
		return writer.WriteRegular(e.path, bytes.NewReader(e.data), int64(len(e.data)), e.mode)
	case entryRegular:
		return writeSourceFile(writer, e)
	default:
		return &PathError{Op: "write", Path: e.path, Err: ErrFileInvalid}
	}
}

func writeSourceFile(writer Writer, e entry) error {
	file, err := e.fsys.Open(e.source)
	if err != nil {
		return fmt.Errorf("open source for %s: %w", e.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat source for %s: %w", e.path, err)
	}

	if !info.Mode().IsRegular() {
		return &PathError{Op: "write", Path: e.source, Err: ErrFileNotRegular}
	}

	mode := e.mode
	if mode == 0 {
		mode = info.Mode().Perm()
	}

	slog.Debug("Add file", slog.String("path", e.path), slog.String("source", e.source))

	return writer.WriteRegular(e.path, file, info.Size(), mode)
}

// WriteArchive writes the complete CPIO archive into w.
func (i *Initramfs) WriteArchive(w io.Writer) error {
	writer := NewCPIOWriter(w)

	if err := i.WriteInto(writer); err != nil {
		return err
	}

	return writer.Close()
}

// WriteToFile writes the CPIO archive into the file name. The archive is
// written into a temporary file in the same directory first, which is renamed
// once it is complete, so name is never left half written.
func (i *Initramfs) WriteToFile(name string) (err error) {
	file, err := os.CreateTemp(filepath.Dir(name), ".initramfs-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
	}()

	if err = i.WriteArchive(file); err != nil {
		return err
	}

	if err = file.Chmod(archiveFileMode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err = os.Rename(file.Name(), name); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
