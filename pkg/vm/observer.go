package vm

// Snapshot is the machine state published to observers after each step.
// Tape is a copy. Instructions is a copy taken when the machine was built
// and is shared by every snapshot of the run.
type Snapshot struct {
	Step        int64  // instructions executed so far, including this one
	LastState   string // state of the instruction just executed
	LastPC      int    // index of the instruction just executed
	Instruction string // text of the instruction just executed

	State   string // state of the next fetch
	PC      int    // index of the next fetch
	HeadPos int
	Tape    []int64

	// Transition is set when the step executed a STATE instruction.
	Transition bool

	Instructions map[string][]string
}

// HeadValue returns the tape value under the head, or 0 if the head is
// beyond the tape.
func (s Snapshot) HeadValue() int64 {
	if s.HeadPos >= 0 && s.HeadPos < len(s.Tape) {
		return s.Tape[s.HeadPos]
	}
	return 0
}

// Observer receives a snapshot after every executed instruction.
// Returned errors are logged by the machine and otherwise ignored.
type Observer interface {
	Observe(s Snapshot) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s Snapshot) error

func (f ObserverFunc) Observe(s Snapshot) error {
	return f(s)
}
