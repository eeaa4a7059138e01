// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Preflight checks that the root transition may start. The current root must
// be a ramfs or tmpfs, unless [Config.SkipRootFSCheck] is set, and the real
// root must be a directory.
//
// It does not check that the real root is a mount point. This is detected
// by the move mount step.
func Preflight(cfg Config) error {
	if !cfg.SkipRootFSCheck {
		if err := checkFSType("/", unix.RAMFS_MAGIC, unix.TMPFS_MAGIC); err != nil {
			return err
		}
	}

	return checkDirectory(cfg.RealRoot)
}

// DryRun runs all checks that can be done without changing the system. In
// addition to [Preflight], the real root must be a mount point, the init
// program must be an executable regular file and the console must be a
// character device in the real root.
//
// The returned error is a [*StepError] for [StepPreflight].
func DryRun(cfg Config) error {
	checks := []func() error{
		func() error { return Preflight(cfg) },
		func() error { return checkMountPoint(cfg.RealRoot) },
		func() error { return checkInit(cfg.RealRoot, cfg.Init) },
		func() error { return checkConsole(cfg.RealRoot, cfg.console()) },
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return &StepError{Step: StepPreflight, Err: err}
		}
	}

	slog.Info("Dry run succeeded",
		slog.String("delete", "/"),
		slog.String("keep", cfg.RealRoot),
		slog.String("console", cfg.console()),
		slog.Any("exec", cfg.Argv()),
	)

	return nil
}

func checkFSType(path string, allowed ...uint32) error {
	typ, err := fsType(path)
	if err != nil {
		return err
	}

	for _, magic := range allowed {
		if typ == magic {
			return nil
		}
	}

	return fmt.Errorf("%s: %w (type %#x)", path, ErrNotInitramfs, typ)
}

func checkDirectory(path string) error {
	st, err := stat(path)
	if err != nil {
		return err
	}

	if !isDir(st) {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}

	return nil
}

// checkMountPoint checks that path is the root of a mount. This is the case
// if its parent is on another device, or if it is its own parent.
func checkMountPoint(path string) error {
	st, err := stat(path)
	if err != nil {
		return err
	}

	parent, err := stat(filepath.Join(path, ".."))
	if err != nil {
		return err
	}

	if st.Dev != parent.Dev || st.Ino == parent.Ino {
		return nil
	}

	return fmt.Errorf("%s: %w", path, ErrNotMountPoint)
}

func checkInit(root, path string) error {
	st, err := statInRoot(root, path)
	if err != nil {
		return err
	}

	if !isRegular(st) || st.Mode&0o111 == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotExecutable)
	}

	return nil
}

func checkConsole(root, path string) error {
	st, err := statInRoot(root, path)
	if err != nil {
		return err
	}

	if !isCharDevice(st) {
		return fmt.Errorf("%s: %w", path, ErrNotCharDevice)
	}

	return nil
}

// statInRoot returns the file status of path as it is resolved with root as
// root directory. Absolute symbolic links are resolved relative to root.
//
// If openat2 is not available (old kernel, seccomp filter) the path is simply
// joined with root.
func statInRoot(root, path string) (*unix.Stat_t, error) {
	rootFD, err := unix.Open(root, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: root, Err: err}
	}
	defer unix.Close(rootFD) //nolint:errcheck

	how := unix.OpenHow{
		Flags:   unix.O_PATH | unix.O_CLOEXEC,
		Resolve: unix.RESOLVE_IN_ROOT,
	}

	fd, err := unix.Openat2(rootFD, path, &how)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) {
		return stat(filepath.Join(root, path))
	} else if err != nil {
		return nil, &fs.PathError{Op: "openat2", Path: path, Err: err}
	}
	defer unix.Close(fd) //nolint:errcheck

	return fstat(fd, path)
}
