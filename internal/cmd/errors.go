// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
)

var (
	// ErrHelp is returned if help has been requested.
	ErrHelp = flag.ErrHelp

	// ErrEmptyFilePath is returned if a file path flag is empty.
	ErrEmptyFilePath = errors.New("file path must not be empty")

	// ErrInvalidFileMapping is returned if a file mapping flag is malformed.
	ErrInvalidFileMapping = errors.New("invalid file mapping")
)

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	err error
	msg string
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)
	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
