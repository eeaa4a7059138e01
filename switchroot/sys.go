// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// fileID is the identity of a file system object independent of the path it
// was reached by.
type fileID struct {
	dev uint64
	ino uint64
}

func fileIDOf(stat *unix.Stat_t) fileID {
	//nolint:unconvert
	return fileID{dev: uint64(stat.Dev), ino: stat.Ino}
}

func stat(path string) (*unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}

	return &st, nil
}

func fstat(fd int, path string) (*unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, &fs.PathError{Op: "fstat", Path: path, Err: err}
	}

	return &st, nil
}

func isDir(st *unix.Stat_t) bool {
	return st.Mode&unix.S_IFMT == unix.S_IFDIR
}

func isRegular(st *unix.Stat_t) bool {
	return st.Mode&unix.S_IFMT == unix.S_IFREG
}

func isCharDevice(st *unix.Stat_t) bool {
	return st.Mode&unix.S_IFMT == unix.S_IFCHR
}

func fsType(path string) (uint32, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, &fs.PathError{Op: "statfs", Path: path, Err: err}
	}

	//nolint:gosec
	return uint32(st.Type), nil
}

func chdir(path string) error {
	if err := unix.Chdir(path); err != nil {
		return &fs.PathError{Op: "chdir", Path: path, Err: err}
	}

	return nil
}

func chroot(path string) error {
	if err := unix.Chroot(path); err != nil {
		return &fs.PathError{Op: "chroot", Path: path, Err: err}
	}

	return nil
}

// moveMount moves the mount at source to target. Both may be relative to the
// current working directory. The error is the bare [unix.Errno].
func moveMount(source, target string) error {
	//nolint:wrapcheck
	return unix.Mount(source, target, "", unix.MS_MOVE, "")
}

func closeFD(fd int, path string) error {
	if err := unix.Close(fd); err != nil {
		return &fs.PathError{Op: "close", Path: path, Err: err}
	}

	return nil
}

func exec(path string, argv []string) error {
	err := unix.Exec(path, argv, os.Environ())
	if err == nil {
		err = ErrExecReturned
	}

	return &fs.PathError{Op: "execve", Path: path, Err: err}
}
