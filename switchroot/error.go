// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	// ErrNotInitramfs is returned if the current root file system is neither
	// a ramfs nor a tmpfs.
	ErrNotInitramfs = errors.New("not a ramfs or tmpfs")

	// ErrNotDirectory is returned if a path expected to be a directory is not.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotMountPoint is returned if the real root is not a mount point.
	ErrNotMountPoint = errors.New("not a mount point")

	// ErrNotExecutable is returned if the init program is not an executable
	// regular file.
	ErrNotExecutable = errors.New("not an executable regular file")

	// ErrNotCharDevice is returned if the console is not a character device.
	ErrNotCharDevice = errors.New("not a character device")

	// ErrKeepIsRoot is returned by [Eradicate] if the directory to preserve
	// is the directory to clear itself.
	ErrKeepIsRoot = errors.New("preserved directory is the root directory")

	// ErrExecReturned is returned if the exec call returned without error.
	ErrExecReturned = errors.New("exec returned")
)

// StepError is returned if a step of the root transition failed. It wraps the
// underlying error, which usually carries a [unix.Errno].
type StepError struct {
	Step Step
	Err  error
}

// Error returns the step description followed by the system error text. If
// the cause carries a [unix.Errno], only its text is used, so the message
// reads like "moving real root onto /: invalid argument". The complete chain
// stays available with [errors.Unwrap].
func (e *StepError) Error() string {
	if e.Err == nil {
		return e.Step.String()
	}

	var errno unix.Errno
	if errors.As(e.Err, &errno) {
		return e.Step.String() + ": " + errno.Error()
	}

	return e.Step.String() + ": " + e.Err.Error()
}

// Is matches any other [*StepError] with the same [Step]. A target without
// [Step] set matches any [*StepError].
func (e *StepError) Is(other error) bool {
	target, ok := other.(*StepError)
	if !ok {
		return false
	}

	return target.Step == stepAny || target.Step == e.Step
}

func (e *StepError) Unwrap() error {
	return e.Err
}
