// Package trace records machine runs step by step into data frames and
// renders tapes as tables and plots.
package trace

import (
	"slices"
	"sync"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/vm"
)

// Trace frame column names.
const (
	ColStep        = "step"
	ColState       = "state"
	ColPC          = "pc"
	ColInstruction = "instruction"
	ColNextState   = "next_state"
	ColNextPC      = "next_pc"
	ColHead        = "head"
	ColHeadValue   = "head_value"
	ColTapeLen     = "tape_len"
	ColTransition  = "transition"
)

// TapeSnapshot is the tape at a state transition.
type TapeSnapshot struct {
	Step  int64
	State string // state entered
	Tape  []int64
}

// Recorder is a vm.Observer that keeps one row per executed instruction.
// It is safe to read from another goroutine while the machine runs.
type Recorder struct {
	mu sync.Mutex

	steps        []int64
	states       []string
	pcs          []int64
	instructions []string
	nextStates   []string
	nextPCs      []int64
	heads        []int64
	headValues   []int64
	tapeLens     []int64
	transitions  []int64

	keepTapes bool
	tapes     []TapeSnapshot
	lastTape  []int64
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTransitionTapes keeps a copy of the tape at every state transition.
func WithTransitionTapes() RecorderOption {
	return func(r *Recorder) {
		r.keepTapes = true
	}
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe implements vm.Observer.
func (r *Recorder) Observe(s vm.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	transition := int64(0)
	if s.Transition {
		transition = 1
	}
	r.steps = append(r.steps, s.Step)
	r.states = append(r.states, s.LastState)
	r.pcs = append(r.pcs, int64(s.LastPC))
	r.instructions = append(r.instructions, s.Instruction)
	r.nextStates = append(r.nextStates, s.State)
	r.nextPCs = append(r.nextPCs, int64(s.PC))
	r.heads = append(r.heads, int64(s.HeadPos))
	r.headValues = append(r.headValues, s.HeadValue())
	r.tapeLens = append(r.tapeLens, int64(len(s.Tape)))
	r.transitions = append(r.transitions, transition)

	r.lastTape = s.Tape
	if s.Transition && r.keepTapes {
		r.tapes = append(r.tapes, TapeSnapshot{Step: s.Step, State: s.State, Tape: s.Tape})
	}
	return nil
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}

// LastTape returns the tape after the last recorded step.
func (r *Recorder) LastTape() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lastTape)
}

// TransitionTapes returns the tapes kept at state transitions.
// It is empty unless the recorder was created WithTransitionTapes.
func (r *Recorder) TransitionTapes() []TapeSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tapes)
}

// HeadPositions returns the head position after every step.
func (r *Recorder) HeadPositions() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.heads)
}

// Frame builds the trace as a data frame with one row per step.
func (r *Recorder) Frame() *dataframe.DataFrame {
	r.mu.Lock()
	defer r.mu.Unlock()

	return dataframe.NewDataFrame(
		newInt64Series(ColStep, r.steps),
		newStringSeries(ColState, r.states),
		newInt64Series(ColPC, r.pcs),
		newStringSeries(ColInstruction, r.instructions),
		newStringSeries(ColNextState, r.nextStates),
		newInt64Series(ColNextPC, r.nextPCs),
		newInt64Series(ColHead, r.heads),
		newInt64Series(ColHeadValue, r.headValues),
		newInt64Series(ColTapeLen, r.tapeLens),
		newInt64Series(ColTransition, r.transitions),
	)
}

// TapeFrame builds an index/value frame from a tape, the layout the loader
// reads initial tapes from. Zero cells are skipped unless keepZeros is set.
func TapeFrame(tape []int64, keepZeros bool) *dataframe.DataFrame {
	var idx, vals []int64
	for i, v := range tape {
		if v == 0 && !keepZeros {
			continue
		}
		idx = append(idx, int64(i))
		vals = append(vals, v)
	}
	return dataframe.NewDataFrame(
		newInt64Series(loader.TapeIndexColumn, idx),
		newInt64Series(loader.TapeValueColumn, vals),
	)
}

// newInt64Series creates a new SeriesInt64 with the given name and data.
func newInt64Series(name string, data []int64) *dataframe.SeriesInt64 {
	// Convert []int64 to []interface{} for the constructor
	vals := make([]interface{}, len(data))
	for i, v := range data {
		vals[i] = v
	}
	return dataframe.NewSeriesInt64(name, nil, vals...)
}

// newStringSeries creates a new SeriesString with the given name and data.
func newStringSeries(name string, data []string) *dataframe.SeriesString {
	vals := make([]interface{}, len(data))
	for i, v := range data {
		vals[i] = v
	}
	return dataframe.NewSeriesString(name, nil, vals...)
}
