package trace

import (
	"io"
	"sync"

	"github.com/goccy/go-json"

	"github.com/akhildatla/hltm/pkg/vm"
)

// Event is one step as written by a Stream. Field names match the trace
// frame columns so a stream can be loaded back as a frame.
type Event struct {
	Step        int64  `json:"step"`
	State       string `json:"state"`
	PC          int    `json:"pc"`
	Instruction string `json:"instruction"`
	NextState   string `json:"next_state"`
	NextPC      int    `json:"next_pc"`
	Head        int    `json:"head"`
	HeadValue   int64  `json:"head_value"`
	TapeLen     int    `json:"tape_len"`
	Transition  int64  `json:"transition"`

	// Tape is only set on transitions when the stream carries tapes.
	Tape []int64 `json:"tape,omitempty"`
}

// Stream writes every step as a JSON line. It is a vm.Observer.
type Stream struct {
	mu    sync.Mutex
	enc   *json.Encoder
	tapes bool
	err   error
}

// NewStream creates a stream writing to w. With tapes set, transition
// events carry the whole tape.
func NewStream(w io.Writer, tapes bool) *Stream {
	return &Stream{enc: json.NewEncoder(w), tapes: tapes}
}

// Observe implements vm.Observer. After the first write error the stream
// stops writing and keeps returning that error.
func (s *Stream) Observe(snap vm.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	ev := Event{
		Step:        snap.Step,
		State:       snap.LastState,
		PC:          snap.LastPC,
		Instruction: snap.Instruction,
		NextState:   snap.State,
		NextPC:      snap.PC,
		Head:        snap.HeadPos,
		HeadValue:   snap.HeadValue(),
		TapeLen:     len(snap.Tape),
	}
	if snap.Transition {
		ev.Transition = 1
		if s.tapes {
			ev.Tape = snap.Tape
		}
	}
	s.err = s.enc.Encode(ev)
	return s.err
}

// Err returns the first write error.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
