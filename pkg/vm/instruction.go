package vm

import (
	"fmt"
	"strings"
)

// Instruction is a decoded instruction line.
//
// Lines are whitespace separated: the first token is the opcode mnemonic,
// the remaining tokens are operands.
//
//	SET i 0
//	MOVE_RIGHT
//	IF HEAD >= LEN STATE DONE
//
// For IF, Cmp holds the comparison and Guarded the instruction decoded from
// the tokens after the right-hand operand.
type Instruction struct {
	Op       Opcode
	Operands []string
	Text     string

	Cmp      Comparator
	Guarded  *Instruction
	guardErr error // decode failure of the guarded part, raised only if the guard holds
}

// Decode parses one instruction line.
func Decode(line string) (*Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty instruction", ErrUnknownOpcode)
	}

	op, ok := OpcodeFromString(fields[0])
	if !ok {
		return nil, errOperand(ErrUnknownOpcode, fields[0])
	}

	inst := &Instruction{
		Op:       op,
		Operands: fields[1:],
		Text:     strings.Join(fields, " "),
	}
	if !opcodeArity[op].accepts(len(inst.Operands)) {
		return nil, fmt.Errorf("%w: %s takes %s operands, got %d",
			ErrArityMismatch, op, opcodeArity[op], len(inst.Operands))
	}

	if op == OpIf {
		cmp, ok := ComparatorFromString(inst.Operands[1])
		if !ok {
			return nil, errOperand(ErrUnknownComparator, inst.Operands[1])
		}
		inst.Cmp = cmp
		inst.Guarded, inst.guardErr = Decode(strings.Join(inst.Operands[3:], " "))
	}

	return inst, nil
}

// String returns the normalized instruction text.
func (i *Instruction) String() string {
	return i.Text
}

func (a arity) String() string {
	switch {
	case a.max < 0:
		return fmt.Sprintf("at least %d", a.min)
	case a.min == a.max:
		return fmt.Sprintf("%d", a.min)
	default:
		return fmt.Sprintf("%d to %d", a.min, a.max)
	}
}
