package vm

import "fmt"

// MaxTapeLen caps tape growth so a runaway MOVE cannot exhaust memory.
const MaxTapeLen = 1 << 24

const maxIndex = MaxTapeLen - 1

// Tape is the machine memory: a zero-filled integer buffer that only grows.
type Tape struct {
	cells []int64
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{}
}

// EnsureLen grows the tape so that index is addressable.
// New cells are zero. The tape never shrinks.
func (t *Tape) EnsureLen(index int) error {
	if index < 0 || index > maxIndex {
		return fmt.Errorf("%w: %d", ErrHeadOutOfRange, index)
	}
	if index >= len(t.cells) {
		t.cells = append(t.cells, make([]int64, index-len(t.cells)+1)...)
	}
	return nil
}

// Get returns the cell at index, extending the tape first.
func (t *Tape) Get(index int) (int64, error) {
	if err := t.EnsureLen(index); err != nil {
		return 0, err
	}
	return t.cells[index], nil
}

// Set writes the cell at index, extending the tape first.
func (t *Tape) Set(index int, v int64) error {
	if err := t.EnsureLen(index); err != nil {
		return err
	}
	t.cells[index] = v
	return nil
}

// Len returns the current tape length.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Cells returns a copy of the tape contents.
func (t *Tape) Cells() []int64 {
	out := make([]int64, len(t.cells))
	copy(out, t.cells)
	return out
}
