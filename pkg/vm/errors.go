package vm

import (
	"errors"
	"fmt"
	"strings"
)

// Decode errors
var (
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrUnknownComparator = errors.New("unknown comparator")
)

// Addressing errors
var (
	ErrUnknownOperand    = errors.New("unknown operand")
	ErrUnknownMarker     = errors.New("unknown marker")
	ErrUninitializedHead = errors.New("head register read before any READ")
	ErrHeadOutOfRange    = errors.New("head position out of range")
)

// Arithmetic, control and output errors
var (
	ErrDivisionByZero            = errors.New("division by zero")
	ErrProgramCounterOutOfRange  = errors.New("program counter out of range")
	ErrInstructionBudgetExceeded = errors.New("instruction budget exceeded")
	ErrMissingMarker             = errors.New("missing output marker")
	ErrNotAccepted               = errors.New("machine has not reached ACCEPT")
)

// ExecError describes a failure at a specific instruction.
type ExecError struct {
	State   string // state the failing instruction belongs to
	PC      int    // program counter of the failing instruction
	Line    string // instruction text as written in the program
	Op      Opcode // decoded opcode, OpInvalid if decoding failed
	Operand string // offending operand, if any
	Err     error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]", e.State, e.PC)
	if e.Line != "" {
		fmt.Fprintf(&b, " %q", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Operand != "" {
		fmt.Fprintf(&b, ": %s", e.Operand)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// operandError ties an error to the operand token that caused it.
// ExecError lifts the operand out when the error reaches the run loop.
type operandError struct {
	operand string
	err     error
}

func (e *operandError) Error() string { return fmt.Sprintf("%v: %s", e.err, e.operand) }
func (e *operandError) Unwrap() error { return e.err }

func errOperand(err error, operand string) error {
	return &operandError{operand: operand, err: err}
}

// IsInconclusive reports whether err only means the run was cut short by the
// instruction budget, as opposed to the program being wrong.
func IsInconclusive(err error) bool {
	return errors.Is(err, ErrInstructionBudgetExceeded)
}
