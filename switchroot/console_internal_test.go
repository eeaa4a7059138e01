// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openTargetFD(tb testing.TB) int {
	tb.Helper()

	fd, err := unix.Open(os.DevNull, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	require.NoError(tb, err)

	tb.Cleanup(func() {
		_ = unix.Close(fd)
	})

	return fd
}

func TestBindConsole(t *testing.T) {
	console := filepath.Join(t.TempDir(), "console")
	require.NoError(t, os.WriteFile(console, []byte("input"), 0o600))

	stdin := openTargetFD(t)
	stdout := openTargetFD(t)

	require.NoError(t, bindConsole(console, stdin, stdout))

	buf := make([]byte, 5)
	n, err := unix.Read(stdin, buf)
	require.NoError(t, err)
	assert.Equal(t, "input", string(buf[:n]), "read from console")

	_, err = unix.Write(stdout, []byte(" output"))
	require.NoError(t, err)

	content, err := os.ReadFile(console)
	require.NoError(t, err)
	assert.Equal(t, "input output", string(content), "written to console")

	flags, err := unix.FcntlInt(uintptr(stdout), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.Zero(t, flags&unix.FD_CLOEXEC, "must survive exec")
}

func TestBindConsole_Missing(t *testing.T) {
	target := openTargetFD(t)
	console := filepath.Join(t.TempDir(), "missing")

	err := bindConsole(console, target)
	require.ErrorIs(t, err, unix.ENOENT)
	assert.ErrorContains(t, err, "open "+console)
}
