// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Default values of [InitScript].
const (
	DefaultRootFlags = "ro"
	DefaultRootDir   = "/root"
	DefaultConsole   = "/dev/console"
	DefaultRunInit   = "/bin/run-init"
	DefaultInit      = "/sbin/init"
	DefaultTimeout   = 10
)

// InitScript is the /init program of the initramfs. It mounts the real root
// file system and executes run-init as last command, so run-init stays the
// first process.
type InitScript struct {
	// RootDevice is the block device of the real root file system. Required.
	RootDevice string

	// RootFSType is the file system type of the root device. If empty, mount
	// detects it.
	RootFSType string

	// RootFlags are the mount options for the root device.
	RootFlags string

	// RootDir is the directory the root device is mounted at.
	RootDir string

	// Console is the console device passed to run-init.
	Console string

	// RunInit is the path of the run-init binary in the initramfs.
	RunInit string

	// Init is the real init program in the real root file system.
	Init string

	// InitArgs are passed to the real init before the kernel provided
	// arguments.
	InitArgs []string

	// Timeout is the number of seconds to wait for the root device.
	Timeout int
}

var initScriptTemplate = template.Must(template.New("init").
	Funcs(template.FuncMap{"quote": shellQuote}).
	Parse(`#!/bin/sh
# Generated by mkinitramfs.

mkdir -p /dev /proc /sys {{ quote .RootDir }}
mount -t devtmpfs devtmpfs /dev
mount -t proc proc /proc
mount -t sysfs sysfs /sys

exec </dev/console >/dev/console 2>&1

fail() {
	echo "init: $*" >&2
	exec sh
}

waited=0
until [ -e {{ quote .RootDevice }} ]; do
	[ "$waited" -ge {{ .Timeout }} ] && fail "root device not found: "{{ quote .RootDevice }}
	sleep 1
	waited=$((waited + 1))
done

mount{{ with .RootFSType }} -t {{ quote . }}{{ end }}{{ with .RootFlags }} -o {{ quote . }}{{ end }} {{ quote .RootDevice }} {{ quote .RootDir }} ||
	fail "cannot mount root device"

for dir in /dev /proc /sys; do
	if [ -d {{ quote .RootDir }}"$dir" ]; then
		mount -o move "$dir" {{ quote .RootDir }}"$dir" || fail "cannot move $dir"
	fi
done

exec {{ quote .RunInit }} -c {{ quote .Console }} {{ quote .RootDir }} {{ quote .Init }}{{ range .InitArgs }} {{ quote . }}{{ end }} "$@"
`))

func (s InitScript) withDefaults() InitScript {
	defaults := []struct {
		value    *string
		fallback string
	}{
		{&s.RootFlags, DefaultRootFlags},
		{&s.RootDir, DefaultRootDir},
		{&s.Console, DefaultConsole},
		{&s.RunInit, DefaultRunInit},
		{&s.Init, DefaultInit},
	}

	for _, d := range defaults {
		if *d.value == "" {
			*d.value = d.fallback
		}
	}

	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}

	return s
}

// Render returns the script with defaults applied for all empty fields.
func (s InitScript) Render() ([]byte, error) {
	if s.RootDevice == "" {
		return nil, fmt.Errorf("root device: %w", ErrInvalidArgument)
	}

	var buf bytes.Buffer
	if err := initScriptTemplate.Execute(&buf, s.withDefaults()); err != nil {
		return nil, fmt.Errorf("render init script: %w", err)
	}

	return buf.Bytes(), nil
}

// RootDirectory returns the directory the root device is mounted at.
func (s InitScript) RootDirectory() string {
	return s.withDefaults().RootDir
}

// RunInitPath returns the path of the run-init binary.
func (s InitScript) RunInitPath() string {
	return s.withDefaults().RunInit
}

// shellQuote quotes s for a POSIX shell as a single word.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
