package vm

import (
	"fmt"
	"log/slog"
	"strconv"
)

// exec executes a decoded instruction. It reports whether the instruction
// was a state transition, in which case the program counter must not advance.
func (m *Machine) exec(inst *Instruction) (bool, error) {
	switch inst.Op {
	case OpRead:
		v, err := m.tape.Get(m.headPos)
		if err != nil {
			return false, err
		}
		m.head, m.headSet = v, true

	case OpAdd, OpSub, OpMul, OpDiv, OpSet:
		return false, m.arith(inst)

	case OpMod:
		d, err := m.ReadValue(inst.Operands[0])
		if err != nil {
			return false, err
		}
		if d == 0 {
			return false, ErrDivisionByZero
		}
		cur, err := m.tape.Get(m.headPos)
		if err != nil {
			return false, err
		}
		return false, m.tape.Set(m.headPos, floorMod(cur, d))

	case OpMove:
		pos, err := m.ReadValue(inst.Operands[0])
		if err != nil {
			return false, err
		}
		return false, m.moveTo(pos, true)

	case OpGoto:
		name := inst.Operands[0]
		idx, ok := m.markers[name]
		if !ok {
			return false, errOperand(ErrUnknownMarker, name)
		}
		return false, m.moveTo(int64(idx), true)

	case OpMoveLeft, OpMoveRight:
		delta, extend := int64(1), true
		if len(inst.Operands) == 1 {
			n, err := m.ReadValue(inst.Operands[0])
			if err != nil {
				return false, err
			}
			delta, extend = n, false
		}
		if inst.Op == OpMoveLeft {
			delta = -delta
		}
		return false, m.moveTo(int64(m.headPos)+delta, extend)

	case OpIf:
		a, err := m.ReadValue(inst.Operands[0])
		if err != nil {
			return false, err
		}
		b, err := m.ReadValue(inst.Operands[2])
		if err != nil {
			return false, err
		}
		if !inst.Cmp.Eval(a, b) {
			return false, nil
		}
		if inst.guardErr != nil {
			return false, inst.guardErr
		}
		if m.statsEnabled {
			m.stats.GuardedCounts[inst.Guarded.Op.String()]++
		}
		return m.exec(inst.Guarded)

	case OpState:
		m.transition(inst.Operands[0])
		return true, nil

	default:
		return false, errOperand(ErrUnknownOpcode, inst.Op.String())
	}
	return false, nil
}

// arith handles the ops that target either the head cell (one operand) or a
// marker cell (two operands, marker first).
func (m *Machine) arith(inst *Instruction) error {
	target := m.headPos
	operand := inst.Operands[0]
	if len(inst.Operands) == 2 {
		name := inst.Operands[0]
		idx, ok := m.markers[name]
		if !ok {
			return errOperand(ErrUnknownMarker, name)
		}
		target, operand = idx, inst.Operands[1]
	}

	v, err := m.ReadValue(operand)
	if err != nil {
		return err
	}
	if inst.Op == OpSet {
		return m.tape.Set(target, v)
	}

	cur, err := m.tape.Get(target)
	if err != nil {
		return err
	}
	switch inst.Op {
	case OpAdd:
		cur += v
	case OpSub:
		cur -= v
	case OpMul:
		cur *= v
	case OpDiv:
		if v == 0 {
			return ErrDivisionByZero
		}
		cur = floorDiv(cur, v)
	}
	return m.tape.Set(target, cur)
}

func (m *Machine) moveTo(pos int64, extend bool) error {
	if pos < 0 || pos > int64(maxIndex) {
		return fmt.Errorf("%w: %d", ErrHeadOutOfRange, pos)
	}
	if extend {
		if err := m.tape.EnsureLen(int(pos)); err != nil {
			return err
		}
	}
	m.headPos = int(pos)
	return nil
}

func (m *Machine) transition(next string) {
	if m.logger.Enabled(m.context(), slog.LevelDebug) {
		m.logger.Debug("state transition",
			"from", m.state,
			"to", next,
			"step", m.executed+1,
			"head", m.headPos,
			"tape", m.tape.Cells())
	}
	m.state = next
	m.pc = 0
}

// ReadValue resolves an operand token to an integer: a decimal literal, the
// value at a marker, or the head register.
// Reading a marker beyond the tape extends the tape with zeros.
func (m *Machine) ReadValue(token string) (int64, error) {
	if isLiteral(token, m.negativeLiterals) {
		v, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return 0, errOperand(ErrUnknownOperand, token)
		}
		return v, nil
	}
	if idx, ok := m.markers[token]; ok {
		return m.tape.Get(idx)
	}
	if token == HeadToken {
		if !m.headSet {
			return 0, ErrUninitializedHead
		}
		return m.head, nil
	}
	return 0, errOperand(ErrUnknownOperand, token)
}

func isLiteral(token string, allowSign bool) bool {
	if allowSign && len(token) > 1 && token[0] == '-' {
		token = token[1:]
	}
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// floorMod returns a remainder with the sign of b.
func floorMod(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}
