// Package testutil provides testing utilities for hltm tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/hltm/pkg/vm"
)

// TempFile creates a temporary file with the given content and extension.
// The file is automatically cleaned up when the test finishes.
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// CountdownProgram returns a program that counts a cell down from 3 and
// writes 3.14 into the output region. It finishes in 20 instructions.
func CountdownProgram() *vm.Program {
	return &vm.Program{
		Name: "COUNTDOWN",
		TapeMarkers: map[string]int{
			"N":             0,
			vm.OutputMarker: 1,
			vm.WorkMarker:   5,
		},
		Instructions: map[string][]string{
			vm.StartState: {
				"GOTO N",
				"STATE loop",
			},
			"loop": {
				"SUB 1",
				"READ",
				"IF HEAD == 0 STATE write",
				"STATE loop",
			},
			"write": {
				"MOVE 2",
				"SET 3",
				"MOVE_RIGHT",
				"SET 1",
				"MOVE_RIGHT",
				"SET 4",
				"STATE ACCEPT",
			},
		},
		InitialTape: map[int]int64{0: 3},
	}
}

// CountdownJSON is CountdownProgram as JSON, with a label cell the way
// generated program dumps carry one.
func CountdownJSON() string {
	return `{
    "name": "COUNTDOWN",
    "params": {"unused": true},
    "tape_markers": {"N": 0, "OUTPUT": 1, "WORK": 5},
    "initial_tape": {"0": 3, "6": "LABEL"},
    "instructions": {
        "start": ["GOTO N", "STATE loop"],
        "loop": ["SUB 1", "READ", "IF HEAD == 0 STATE write", "STATE loop"],
        "write": ["MOVE 2", "SET 3", "MOVE_RIGHT", "SET 1", "MOVE_RIGHT", "SET 4", "STATE ACCEPT"]
    }
}`
}

// CountdownYAML is CountdownProgram as YAML.
func CountdownYAML() string {
	return `name: COUNTDOWN
tape_markers:
  N: 0
  OUTPUT: 1
  WORK: 5
initial_tape:
  0: 3
instructions:
  start:
    - GOTO N
    - STATE loop
  loop:
    - SUB 1
    - READ
    - IF HEAD == 0 STATE write
    - STATE loop
  write:
    - MOVE 2
    - SET 3
    - MOVE_RIGHT
    - SET 1
    - MOVE_RIGHT
    - SET 4
    - STATE ACCEPT
`
}

// CountdownCUE is CountdownProgram as CUE.
func CountdownCUE() string {
	return `name: "COUNTDOWN"
tape_markers: {N: 0, OUTPUT: 1, WORK: 5}
initial_tape: "0": 3
instructions: {
	start: ["GOTO N", "STATE loop"]
	loop: ["SUB 1", "READ", "IF HEAD == 0 STATE write", "STATE loop"]
	write: ["MOVE 2", "SET 3", "MOVE_RIGHT", "SET 1", "MOVE_RIGHT", "SET 4", "STATE ACCEPT"]
}
`
}

// TapeCSV returns initial tape contents as index/value CSV.
func TapeCSV() string {
	return `index,value,note
0,3,counter
4,-1,
9,42,far`
}

// MakeTapeFrame creates an index/value frame.
func MakeTapeFrame() *dataframe.DataFrame {
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("index", nil, 0, 4, 9),
		dataframe.NewSeriesInt64("value", nil, 3, -1, 42),
	)
}

// MustNew creates a machine or fails the test.
func MustNew(t *testing.T, p *vm.Program, opts ...vm.Option) *vm.Machine {
	t.Helper()
	m, err := vm.New(p, opts...)
	if err != nil {
		t.Fatalf("vm.New failed: %v", err)
	}
	return m
}

// AssertInt64Equal checks if two int64 values are equal.
func AssertInt64Equal(t *testing.T, expected, actual int64) {
	t.Helper()
	if expected != actual {
		t.Errorf("expected %d, got %d", expected, actual)
	}
}
