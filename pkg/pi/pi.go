// Package pi generates machine programs that compute the digits of pi with
// the Rabinowitz-Wagon spigot algorithm.
//
// Tape layout for n digits, with L = 10n/3 + 1 array cells:
//
//	START | LEN | ARRAY[0..L) | PREDIGIT | NINES | OUTPUT | digits[n] | WORK (COUNTER) | i | q | d
//
// The first digit lands at OUTPUT+1 and the last at WORK-1, so the machine
// output reads "3.1415...".
package pi

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/akhildatla/hltm/pkg/vm"
)

// DefaultDigits is the digit count the CLI computes when none is given.
const DefaultDigits = 33

// MaxDigitsWithinDefaultBudget is the largest digit count that completes
// within vm.DefaultMaxInstructions.
const MaxDigitsWithinDefaultBudget = 39

// ErrInvalidDigits is returned for digit counts below one.
var ErrInvalidDigits = errors.New("digit count must be at least 1")

// State names of the generated program.
const (
	StateArrayInit     = "STAGE_1_ARRAY_INIT"
	StateMainLoop      = "STAGE_2_MAIN_LOOP"
	StateMultiply      = "STAGE_3_MULTIPLY"
	StateModReduce     = "STAGE_4_MOD_REDUCE"
	StateModLoop       = "STAGE_5_MOD_LOOP"
	StateHandleA0      = "STAGE_6_HANDLE_A0"
	StatePredigit9     = "STAGE_7_PREDIGIT_9"
	StatePredigit10    = "STAGE_8_PREDIGIT_10"
	StatePredigit10Add = "STAGE_8_ADD"
	StatePredigit10B   = "STAGE_8_PREDIGIT_10_B"
	StatePredigit0To8  = "STAGE_9_PREDIGITS_0_TO_8"
	StatePredigit0To8B = "STAGE_9_PREDIGITS_0_TO_8_B"
	StateDone          = "STAGE_10_DONE"
	StateFinalize      = "STAGE_11_FINALIZE"
)

// Layout holds the marker positions for a digit count.
type Layout struct {
	Digits      int
	ArrayLength int

	Start, Len, Array, ArrayEnd int
	Predigit, Nines, Output     int
	Work, Counter, I, Q, D      int
}

// NewLayout computes the tape layout for n digits.
func NewLayout(n int) Layout {
	l := Layout{Digits: n, ArrayLength: 10*n/3 + 1}
	l.Start = 0
	l.Len = l.Start + 1
	l.Array = l.Len + 1
	l.ArrayEnd = l.Array + l.ArrayLength - 1
	l.Predigit = l.Array + l.ArrayLength
	l.Nines = l.Predigit + 1
	l.Output = l.Nines + 1
	l.Work = l.Output + n + 1
	l.Counter = l.Work
	l.I = l.Work + 1
	l.Q = l.Work + 2
	l.D = l.Work + 3
	return l
}

// Markers returns the marker table for the layout.
func (l Layout) Markers() map[string]int {
	return map[string]int{
		"START":         l.Start,
		"LEN":           l.Len,
		"ARRAY":         l.Array,
		"ARRAY_END":     l.ArrayEnd,
		"PREDIGIT":      l.Predigit,
		"NINES":         l.Nines,
		vm.OutputMarker: l.Output,
		vm.WorkMarker:   l.Work,
		"COUNTER":       l.Counter,
		"i":             l.I,
		"q":             l.Q,
		"d":             l.D,
	}
}

// Generate builds the program computing n digits of pi.
func Generate(n int) (*vm.Program, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDigits, n)
	}
	l := NewLayout(n)
	digits := strconv.Itoa(n)

	// Moves the head to the next free output cell.
	emit := []string{"GOTO OUTPUT", "MOVE_RIGHT", "MOVE_RIGHT COUNTER"}
	// Digits past the requested count are dropped rather than written
	// over COUNTER.
	guard := "IF COUNTER < " + digits + " "

	instructions := map[string][]string{
		vm.StartState: {
			"GOTO START",
			"SET 0",
			"GOTO LEN",
			"SET " + strconv.Itoa(l.ArrayLength),
			"SET i 0",
			"GOTO ARRAY",
			"STATE " + StateArrayInit,
		},
		StateArrayInit: {
			"SET 2",
			"ADD i 1",
			"IF i >= LEN STATE " + StateMainLoop,
			"MOVE_RIGHT",
			"STATE " + StateArrayInit,
		},
		StateMainLoop: {
			"IF COUNTER >= " + digits + " STATE " + StateFinalize,
			"GOTO ARRAY",
			"SET i 0",
			"STATE " + StateMultiply,
		},
		StateMultiply: {
			"MUL 10",
			"ADD i 1",
			"IF i >= LEN STATE " + StateModReduce,
			"MOVE_RIGHT",
			"STATE " + StateMultiply,
		},
		StateModReduce: {
			"SET i LEN",
			"SUB i 1",
			"GOTO ARRAY",
			"MOVE_RIGHT i",
			"STATE " + StateModLoop,
		},
		// Walk the array right to left: a[i] mod (2i+1), carry q*i into a[i-1].
		StateModLoop: {
			"READ",
			"SET q HEAD",
			"SET d i",
			"MUL d 2",
			"ADD d 1",
			"MOD d",
			"DIV q d",
			"MUL q i",
			"SUB i 1",
			"MOVE_LEFT",
			"ADD q",
			"IF i <= 0 STATE " + StateHandleA0,
			"STATE " + StateModLoop,
		},
		StateHandleA0: {
			"GOTO ARRAY",
			"READ",
			"SET q HEAD",
			"DIV q 10",
			"MOD 10",
			"IF q == 9 STATE " + StatePredigit9,
			"IF q == 10 STATE " + StatePredigit10,
			"STATE " + StatePredigit0To8,
		},
		StatePredigit9: {
			"GOTO NINES",
			"ADD 1",
			"STATE " + StateMainLoop,
		},
		// A carry: the held predigit goes up by one, held nines become zeros.
		StatePredigit10: {
			"SET q 0",
			"GOTO PREDIGIT",
			"READ",
			"SET d HEAD",
			"IF d >= 0 STATE " + StatePredigit10Add,
			"STATE " + StatePredigit10B,
		},
		StatePredigit10Add: concat(
			[]string{"ADD d 1"},
			emit,
			[]string{
				guard + "SET d",
				"ADD COUNTER 1",
				"STATE " + StatePredigit10B,
			},
		),
		StatePredigit10B: concat(
			[]string{
				"GOTO NINES",
				"READ",
				"IF HEAD == 0 STATE " + StateDone,
			},
			emit,
			[]string{
				guard + "SET 0",
				"ADD COUNTER 1",
				"GOTO NINES",
				"SUB 1",
				"STATE " + StatePredigit10B,
			},
		),
		StatePredigit0To8: concat(
			[]string{
				"GOTO PREDIGIT",
				"READ",
				"IF HEAD < 0 STATE " + StatePredigit0To8B,
			},
			emit,
			[]string{
				guard + "SET HEAD",
				"ADD COUNTER 1",
				"STATE " + StatePredigit0To8B,
			},
		),
		StatePredigit0To8B: concat(
			[]string{
				"GOTO NINES",
				"READ",
				"IF HEAD == 0 STATE " + StateDone,
			},
			emit,
			[]string{
				guard + "SET 9",
				"ADD COUNTER 1",
				"GOTO NINES",
				"SUB 1",
				"STATE " + StatePredigit0To8B,
			},
		),
		StateDone: {
			"SET PREDIGIT q",
			"SET NINES 0",
			"STATE " + StateMainLoop,
		},
		// Flush the last held predigit.
		StateFinalize: concat(
			[]string{
				"GOTO PREDIGIT",
				"READ",
				"IF HEAD < 0 STATE " + vm.AcceptState,
			},
			emit,
			[]string{
				guard + "SET HEAD",
				"STATE " + vm.AcceptState,
			},
		),
	}

	return &vm.Program{
		Name:         fmt.Sprintf("M_PI_%d_DIGITS", n),
		Description:  fmt.Sprintf("Compute pi to %d digits using the spigot algorithm", n),
		TapeMarkers:  l.Markers(),
		Instructions: instructions,
		InitialTape: map[int]int64{
			l.Len:      int64(l.ArrayLength),
			l.Predigit: -1,
			l.Nines:    0,
			l.Work:     0,
		},
	}, nil
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
