// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import "strconv"

// Step identifies a step of the root transition.
type Step int

const (
	stepAny Step = iota

	// StepPreflight checks the system before anything is changed.
	StepPreflight
	// StepEradicate deletes the initramfs content.
	StepEradicate
	// StepMoveRoot moves the real root mount onto "/".
	StepMoveRoot
	// StepChangeRoot changes root and working directory to the new "/".
	StepChangeRoot
	// StepConsole binds the console to the standard streams.
	StepConsole
	// StepExec replaces the process with the real init.
	StepExec
)

func (s Step) String() string {
	switch s {
	case stepAny:
		return "any step"
	case StepPreflight:
		return "checking root file systems"
	case StepEradicate:
		return "deleting initramfs contents"
	case StepMoveRoot:
		return "moving real root onto /"
	case StepChangeRoot:
		return "changing root directory"
	case StepConsole:
		return "opening console"
	case StepExec:
		return "executing init"
	default:
		return "step " + strconv.Itoa(int(s))
	}
}

// State is the progress of a [Sequencer].
type State int

const (
	// StateStart is the state before any destructive step ran.
	StateStart State = iota
	// StateEradicated is reached once the initramfs content is deleted.
	StateEradicated
	// StateRemounted is reached once the real root is mounted on "/".
	StateRemounted
	// StateRooted is reached once root and working directory changed.
	StateRooted
	// StateConsoleReady is reached once the console is bound to the
	// standard streams.
	StateConsoleReady
	// StateReplaced is only reached if the exec step returns without error,
	// which a real exec never does.
	StateReplaced
	// StateFailed is the terminal state after any step failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateEradicated:
		return "ERADICATED"
	case StateRemounted:
		return "REMOUNTED"
	case StateRooted:
		return "ROOTED"
	case StateConsoleReady:
		return "CONSOLE_READY"
	case StateReplaced:
		return "REPLACED"
	case StateFailed:
		return "FAILED"
	default:
		return "STATE_" + strconv.Itoa(int(s))
	}
}
