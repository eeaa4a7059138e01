// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package switchroot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepRecorder struct {
	ran    []Step
	fail   Step
	config Config
}

func (r *stepRecorder) steps() []step {
	steps := defaultSteps()
	for idx := range steps {
		current := steps[idx].step
		steps[idx].fn = func(cfg Config) error {
			r.ran = append(r.ran, current)
			r.config = cfg

			if current == r.fail {
				return assert.AnError
			}

			return nil
		}
	}

	return steps
}

func TestSequencerRun(t *testing.T) {
	allSteps := []Step{
		StepPreflight,
		StepEradicate,
		StepMoveRoot,
		StepChangeRoot,
		StepConsole,
		StepExec,
	}

	tests := []struct {
		name          string
		fail          Step
		expectedSteps []Step
		expectedState State
	}{
		{
			name:          "all succeed",
			expectedSteps: allSteps,
			expectedState: StateReplaced,
		},
		{
			name:          "preflight fails",
			fail:          StepPreflight,
			expectedSteps: allSteps[:1],
			expectedState: StateFailed,
		},
		{
			name:          "eradicate fails",
			fail:          StepEradicate,
			expectedSteps: allSteps[:2],
			expectedState: StateFailed,
		},
		{
			name:          "move root fails",
			fail:          StepMoveRoot,
			expectedSteps: allSteps[:3],
			expectedState: StateFailed,
		},
		{
			name:          "change root fails",
			fail:          StepChangeRoot,
			expectedSteps: allSteps[:4],
			expectedState: StateFailed,
		},
		{
			name:          "console fails",
			fail:          StepConsole,
			expectedSteps: allSteps[:5],
			expectedState: StateFailed,
		},
		{
			name:          "exec fails",
			fail:          StepExec,
			expectedSteps: allSteps,
			expectedState: StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				RealRoot: "/mnt/real",
				Init:     "/sbin/init",
				InitArgs: []string{"foo"},
			}
			recorder := &stepRecorder{fail: tt.fail}
			sequencer := newSequencer(cfg, recorder.steps())

			assert.Equal(t, StateStart, sequencer.State())

			err := sequencer.Run()
			if tt.fail == stepAny {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, &StepError{Step: tt.fail})
				require.ErrorIs(t, err, assert.AnError)
			}

			assert.Equal(t, tt.expectedSteps, recorder.ran, "steps")
			assert.Equal(t, tt.expectedState, sequencer.State(), "state")
			assert.Equal(t, cfg, recorder.config, "config")
		})
	}
}

func TestSequencerStates(t *testing.T) {
	var states []State

	sequencer := newSequencer(Config{}, nil)

	for _, s := range defaultSteps() {
		sequencer.steps = append(sequencer.steps, step{
			step: s.step,
			done: s.done,
			fn: func(Config) error {
				states = append(states, sequencer.State())
				return nil
			},
		})
	}

	require.NoError(t, sequencer.Run())

	expected := []State{
		StateStart,
		StateStart,
		StateEradicated,
		StateRemounted,
		StateRooted,
		StateConsoleReady,
	}
	assert.Equal(t, expected, states)
}

func TestConfigArgv(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected []string
	}{
		{
			name:     "no args",
			cfg:      Config{Init: "/sbin/init"},
			expected: []string{"/sbin/init"},
		},
		{
			name: "with args",
			cfg: Config{
				Init:     "/sbin/init",
				InitArgs: []string{"foo", "-bar", ""},
			},
			expected: []string{"/sbin/init", "foo", "-bar", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.Argv())
		})
	}
}

func TestConfigConsole(t *testing.T) {
	assert.Equal(t, DefaultConsole, Config{}.console())
	assert.Equal(t, "/dev/ttyS0", Config{Console: "/dev/ttyS0"}.console())
}
