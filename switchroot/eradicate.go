// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const openDirFlags = unix.O_RDONLY | unix.O_DIRECTORY | unix.O_NOFOLLOW | unix.O_CLOEXEC

// Eradicate recursively deletes everything below the directory root.
//
// The file system object keep is neither deleted nor descended into. It is
// identified by its device and inode, not by its path, so any alias of it,
// like a bind mount or a path containing symbolic links, is preserved as
// well. Directories on another device than root are skipped entirely, so
// other mounted file systems are left alone. Directories that still contain
// preserved or skipped entries are not removed. The directory root itself is
// never removed.
//
// Entries that vanish while the tree is walked are ignored. Any other error
// aborts the walk immediately.
func Eradicate(root, keep string) error {
	keepStat, err := stat(keep)
	if err != nil {
		return err
	}

	fd, err := unix.Open(root, openDirFlags&^unix.O_NOFOLLOW, 0)
	if err != nil {
		return &fs.PathError{Op: "open", Path: root, Err: err}
	}

	rootStat, err := fstat(fd, root)
	if err != nil {
		_ = unix.Close(fd)
		return err
	}

	eradicator := eradicator{
		//nolint:unconvert
		dev:  uint64(rootStat.Dev),
		keep: fileIDOf(keepStat),
	}

	if fileIDOf(rootStat) == eradicator.keep {
		_ = unix.Close(fd)
		return fmt.Errorf("%s: %w", root, ErrKeepIsRoot)
	}

	_, err = eradicator.clearDir(fd, root)

	return err
}

// eradicator carries the invariants of a single [Eradicate] run.
type eradicator struct {
	// dev is the device of the directory the walk started in. Directories on
	// other devices are never descended into.
	dev uint64

	// keep is the identity of the file system object to preserve.
	keep fileID
}

// clearDir removes all entries of the directory open as fd. It takes
// ownership of fd and closes it before it returns. It returns true if any
// entry has been preserved.
func (e *eradicator) clearDir(fd int, path string) (bool, error) {
	dir := os.NewFile(uintptr(fd), path)
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return false, fmt.Errorf("read directory %s: %w", path, err)
	}

	preserved := false

	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}

		kept, err := e.removeEntry(fd, name, filepath.Join(path, name))
		if err != nil {
			return false, err
		}

		preserved = preserved || kept
	}

	return preserved, nil
}

// removeEntry removes the entry name from the directory open as parentFD. It
// returns true if the entry has been preserved.
func (e *eradicator) removeEntry(parentFD int, name, path string) (bool, error) {
	var st unix.Stat_t

	err := unix.Fstatat(parentFD, name, &st, unix.AT_SYMLINK_NOFOLLOW)
	if errors.Is(err, unix.ENOENT) {
		return false, nil
	} else if err != nil {
		return false, &fs.PathError{Op: "fstatat", Path: path, Err: err}
	}

	if fileIDOf(&st) == e.keep {
		slog.Debug("Preserving real root", slog.String("path", path))
		return true, nil
	}

	// A bind mounted file cannot be unlinked. Its EBUSY aborts the walk like
	// any other error.
	if !isDir(&st) {
		return false, unlinkAt(parentFD, name, path, 0)
	}

	//nolint:unconvert
	if uint64(st.Dev) != e.dev {
		slog.Debug("Skipping other file system", slog.String("path", path))
		return true, nil
	}

	return e.removeDir(parentFD, name, path)
}

// removeDir clears the directory name in the directory open as parentFD and
// removes it, unless some of its entries have been preserved.
func (e *eradicator) removeDir(parentFD int, name, path string) (bool, error) {
	fd, err := unix.Openat(parentFD, name, openDirFlags, 0)
	if errors.Is(err, unix.ENOENT) {
		return false, nil
	} else if err != nil {
		return false, &fs.PathError{Op: "openat", Path: path, Err: err}
	}

	// Check again on the open directory, since the entry might have been
	// replaced after it has been checked by name.
	st, err := fstat(fd, path)
	if err != nil {
		_ = unix.Close(fd)
		return false, err
	}

	//nolint:unconvert
	if uint64(st.Dev) != e.dev || fileIDOf(st) == e.keep {
		return true, closeFD(fd, path)
	}

	preserved, err := e.clearDir(fd, path)
	if err != nil || preserved {
		return preserved, err
	}

	return false, unlinkAt(parentFD, name, path, unix.AT_REMOVEDIR)
}

func unlinkAt(parentFD int, name, path string, flags int) error {
	err := unix.Unlinkat(parentFD, name, flags)
	if err == nil || errors.Is(err, unix.ENOENT) {
		return nil
	}

	if errors.Is(err, unix.EBUSY) {
		slog.Warn("Cannot delete mount point, unmount it before the root transition",
			slog.String("path", path))
	}

	return &fs.PathError{Op: "unlinkat", Path: path, Err: err}
}
