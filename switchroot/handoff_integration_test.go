// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build integration

package switchroot_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"
	"testing"

	"github.com/aibor/runinit/switchroot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const (
	// handoffEnv makes the test binary build an initramfs like tree in the
	// directory given as value, change root into it and run the complete
	// root transition.
	handoffEnv = "SWITCHROOT_TEST_HANDOFF"

	// recordInitEnv makes the test binary act as the real init. The value is
	// the file descriptor of the old root directory.
	recordInitEnv = "SWITCHROOT_TEST_RECORD_INIT"

	// resultFD is the file descriptor the recording init writes its
	// [handoffResult] to.
	resultFD = 3
)

func init() {
	helperModes[handoffEnv] = runHandoffHelper
	helperModes[recordInitEnv] = runRecordInit
}

// handoffResult is what the real init observed after the transition.
type handoffResult struct {
	Argv    []string `json:"argv"`
	Root    []string `json:"root"`
	OldRoot []string `json:"oldRoot"`
	Cwd     string   `json:"cwd"`
	Error   string   `json:"error,omitempty"`
}

func runRecordInit(value string) {
	result := handoffResult{Argv: os.Args}

	err := recordInit(&result, value)
	if err != nil {
		result.Error = err.Error()
	}

	out := os.NewFile(resultFD, "result")
	if err := json.NewEncoder(out).Encode(result); err != nil {
		os.Exit(4)
	}

	os.Exit(0)
}

func recordInit(result *handoffResult, oldRootFD string) error {
	entries, err := os.ReadDir("/")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		result.Root = append(result.Root, entry.Name())
	}

	fd, err := strconv.Atoi(oldRootFD)
	if err != nil {
		return err
	}

	oldRoot := os.NewFile(uintptr(fd), "old root")
	defer oldRoot.Close()

	result.OldRoot, err = oldRoot.Readdirnames(-1)
	if err != nil {
		return err
	}

	slices.Sort(result.OldRoot)

	result.Cwd, err = os.Getwd()

	return err
}

func runHandoffHelper(dir string) {
	err := handoff(dir)
	fmt.Fprintln(os.Stderr, err)
	os.Exit(3)
}

// handoff sets up the situation run-init finds at boot: a tmpfs as root
// directory with the real root file system mounted at /mnt/real. It runs in a
// private mount namespace, so nothing leaks to the host.
func handoff(dir string) error {
	err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, "")
	if err != nil {
		return fmt.Errorf("make mounts private: %w", err)
	}

	tempRoot := filepath.Join(dir, "initramfs")
	realRoot := filepath.Join(tempRoot, "mnt/real")

	if err := mountTmpfsAt(tempRoot); err != nil {
		return err
	}

	if err := writeFiles(tempRoot, map[string]string{
		"init":    "#!/bin/sh\n",
		"tmp/a":   "a",
		"tmp/b/c": "c",
		"bin/sh":  "binary",
	}); err != nil {
		return err
	}

	if err := mountTmpfsAt(realRoot); err != nil {
		return err
	}

	if err := prepareRealRoot(realRoot); err != nil {
		return err
	}

	// Kept open across exec, so the real init can look at what is left of
	// the old root.
	oldRootFD, err := unix.Open(tempRoot, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return fmt.Errorf("open old root: %w", err)
	}

	if err := unix.Chroot(tempRoot); err != nil {
		return fmt.Errorf("chroot: %w", err)
	}

	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir: %w", err)
	}

	_ = os.Unsetenv(handoffEnv)
	_ = os.Setenv(recordInitEnv, strconv.Itoa(oldRootFD))

	return switchroot.Run(switchroot.Config{
		RealRoot: "/mnt/real",
		Console:  "/dev/null",
		Init:     "/sbin/init",
		InitArgs: []string{"foo"},
	})
}

func mountTmpfsAt(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}

	if err := unix.Mount("tmpfs", path, "tmpfs", 0, ""); err != nil {
		return fmt.Errorf("mount tmpfs at %s: %w", path, err)
	}

	return nil
}

func writeFiles(root string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(root, name)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// prepareRealRoot installs the test binary as /sbin/init and everything it
// needs to run in realRoot.
func prepareRealRoot(realRoot string) error {
	if err := writeFiles(realRoot, map[string]string{"data": "data"}); err != nil {
		return err
	}

	for _, dir := range []string{"sbin", "dev"} {
		if err := os.MkdirAll(filepath.Join(realRoot, dir), 0o755); err != nil {
			return err
		}
	}

	err := unix.Mknod(
		filepath.Join(realRoot, "dev/null"),
		unix.S_IFCHR|0o666,
		int(unix.Mkdev(1, 3)),
	)
	if err != nil {
		return fmt.Errorf("mknod null: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		return err
	}

	if err := copyFile(self, filepath.Join(realRoot, "sbin/init"), 0o755); err != nil {
		return err
	}

	// The test binary may be linked dynamically.
	for _, name := range []string{"usr", "lib", "lib64"} {
		if err := shareHostPath(realRoot, name); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(source, target string, mode fs.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// shareHostPath makes the host's /name available in realRoot. Symbolic links
// are recreated, directories are bind mounted.
func shareHostPath(realRoot, name string) error {
	host := "/" + name
	target := filepath.Join(realRoot, name)

	info, err := os.Lstat(host)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(host)
		if err != nil {
			return err
		}

		return os.Symlink(link, target)
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}

	if err := unix.Mount(host, target, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind mount %s: %w", host, err)
	}

	return nil
}

func TestRun_Handoff(t *testing.T) {
	result, err := os.Create(filepath.Join(t.TempDir(), "result"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = result.Close()
	})

	cmd := exec.Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(), handoffEnv+"="+t.TempDir())
	cmd.ExtraFiles = []*os.File{result}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Unshareflags: syscall.CLONE_NEWNS,
	}

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "output: %s", output)

	_, err = result.Seek(0, io.SeekStart)
	require.NoError(t, err)

	var actual handoffResult
	require.NoError(t, json.NewDecoder(result).Decode(&actual))
	require.Empty(t, actual.Error)

	assert.Equal(t, []string{"/sbin/init", "foo"}, actual.Argv, "argv")
	assert.Equal(t, "/", actual.Cwd, "working directory")

	assert.Subset(t, actual.Root, []string{"data", "dev", "sbin"},
		"root is the real root")
	assert.NotContains(t, actual.Root, "mnt")
	assert.NotContains(t, actual.Root, "tmp")

	assert.Equal(t, []string{"mnt"}, actual.OldRoot,
		"only the path to the real root is left in the old root")
}
