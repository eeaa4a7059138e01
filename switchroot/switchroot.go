// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"log/slog"
)

// Config defines the parameters of a root transition.
type Config struct {
	// RealRoot is the path the real root file system is mounted at. It must
	// be a mount point.
	RealRoot string

	// Console is the path of the console device. It is opened after the root
	// directory has changed, so it is resolved in the real root. Defaults to
	// [DefaultConsole] if empty.
	Console string

	// Init is the path of the real init program in the real root. It is also
	// passed as first argument to the program.
	Init string

	// InitArgs are the arguments passed verbatim to the real init program
	// after the program path.
	InitArgs []string

	// SkipRootFSCheck disables the check that the current root file system
	// is a ramfs or tmpfs.
	SkipRootFSCheck bool
}

func (c Config) console() string {
	if c.Console == "" {
		return DefaultConsole
	}

	return c.Console
}

// Argv returns the argument vector for the real init program. Its first
// element is the init path.
func (c Config) Argv() []string {
	argv := make([]string, 0, len(c.InitArgs)+1)
	argv = append(argv, c.Init)

	return append(argv, c.InitArgs...)
}

// stepFunc runs a single step of the root transition.
type stepFunc func(cfg Config) error

type step struct {
	step Step
	done State
	fn   stepFunc
}

func defaultSteps() []step {
	return []step{
		{StepPreflight, StateStart, Preflight},
		{StepEradicate, StateEradicated, func(cfg Config) error {
			return Eradicate("/", cfg.RealRoot)
		}},
		{StepMoveRoot, StateRemounted, func(cfg Config) error {
			return MoveRoot(cfg.RealRoot)
		}},
		{StepChangeRoot, StateRooted, func(Config) error {
			return ChangeRoot()
		}},
		{StepConsole, StateConsoleReady, func(cfg Config) error {
			return AcquireConsole(cfg.console())
		}},
		{StepExec, StateReplaced, func(cfg Config) error {
			return Exec(cfg.Init, cfg.Argv())
		}},
	}
}

// Sequencer runs the steps of the root transition in order and stops at the
// first failing step.
type Sequencer struct {
	cfg   Config
	steps []step
	state State
}

// NewSequencer creates a new [Sequencer] for the given [Config].
func NewSequencer(cfg Config) *Sequencer {
	return newSequencer(cfg, defaultSteps())
}

func newSequencer(cfg Config, steps []step) *Sequencer {
	return &Sequencer{
		cfg:   cfg,
		steps: steps,
		state: StateStart,
	}
}

// State returns the state the [Sequencer] reached.
func (s *Sequencer) State() State {
	return s.state
}

// Run runs all steps in order. Once a step fails, no further step runs and
// nothing is rolled back. The returned error is a [*StepError] naming the
// failing step.
//
// On success the process is replaced by the real init, so Run only ever
// returns with an error.
func (s *Sequencer) Run() error {
	for _, step := range s.steps {
		slog.Debug("Running step", slog.String("step", step.step.String()))

		if err := step.fn(s.cfg); err != nil {
			s.state = StateFailed

			slog.Debug("Step failed",
				slog.String("step", step.step.String()),
				slog.Any("error", err),
			)

			return &StepError{Step: step.step, Err: err}
		}

		s.state = step.done

		slog.Debug("Step done", slog.String("state", s.state.String()))
	}

	return nil
}

// Run performs the complete root transition as described by the given
// [Config]. See [Sequencer.Run].
func Run(cfg Config) error {
	return NewSequencer(cfg).Run()
}

// MoveRoot changes the working directory into realRoot and moves the mount
// at realRoot onto "/".
//
// The working directory stays in the moved mount, so [ChangeRoot] can follow.
func MoveRoot(realRoot string) error {
	if err := chdir(realRoot); err != nil {
		return err
	}

	return moveMount(".", "/")
}

// ChangeRoot changes the root directory of the process to the current working
// directory and changes the working directory to the new "/". It must follow
// [MoveRoot].
func ChangeRoot() error {
	if err := chroot("."); err != nil {
		return err
	}

	return chdir("/")
}

// Exec replaces the current process with the program at path. The program
// gets the given argument vector and the current environment.
//
// It returns only if the program could not be executed. The returned error
// is never nil.
func Exec(path string, argv []string) error {
	slog.Debug("Executing init",
		slog.String("path", path),
		slog.Any("argv", argv),
	)

	return exec(path, argv)
}
