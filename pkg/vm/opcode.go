package vm

// Opcode represents a machine instruction opcode.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// ===== Head register =====
	OpRead // head register = tape[head]

	// ===== Arithmetic (head cell or marker cell) =====
	OpAdd // cell += v
	OpSub // cell -= v
	OpMul // cell *= v
	OpDiv // cell = floor(cell / v)
	OpMod // tape[head] = tape[head] mod v
	OpSet // cell = v

	// ===== Head movement =====
	OpMove      // head = v
	OpGoto      // head = markers[name]
	OpMoveLeft  // head -= 1 or head -= v
	OpMoveRight // head += 1 or head += v

	// ===== Control flow =====
	OpIf    // IF a cmp b <instruction>
	OpState // state = name, pc = 0
)

// arity describes how many operands an opcode accepts.
type arity struct {
	min, max int // max < 0 means unbounded
}

var opcodeArity = map[Opcode]arity{
	OpRead:      {0, 0},
	OpAdd:       {1, 2},
	OpSub:       {1, 2},
	OpMul:       {1, 2},
	OpDiv:       {1, 2},
	OpMod:       {1, 1},
	OpSet:       {1, 2},
	OpMove:      {1, 1},
	OpGoto:      {1, 1},
	OpMoveLeft:  {0, 1},
	OpMoveRight: {0, 1},
	OpIf:        {4, -1},
	OpState:     {1, 1},
}

func (a arity) accepts(n int) bool {
	return n >= a.min && (a.max < 0 || n <= a.max)
}

// String returns the string representation of an opcode.
func (o Opcode) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpAdd:
		return "ADD"
	case OpSub:
		return "SUB"
	case OpMul:
		return "MUL"
	case OpDiv:
		return "DIV"
	case OpMod:
		return "MOD"
	case OpSet:
		return "SET"
	case OpMove:
		return "MOVE"
	case OpGoto:
		return "GOTO"
	case OpMoveLeft:
		return "MOVE_LEFT"
	case OpMoveRight:
		return "MOVE_RIGHT"
	case OpIf:
		return "IF"
	case OpState:
		return "STATE"
	default:
		return "UNKNOWN"
	}
}

// OpcodeFromString returns the opcode for a given mnemonic.
// Mnemonics are case-sensitive.
func OpcodeFromString(s string) (Opcode, bool) {
	switch s {
	case "READ":
		return OpRead, true
	case "ADD":
		return OpAdd, true
	case "SUB":
		return OpSub, true
	case "MUL":
		return OpMul, true
	case "DIV":
		return OpDiv, true
	case "MOD":
		return OpMod, true
	case "SET":
		return OpSet, true
	case "MOVE":
		return OpMove, true
	case "GOTO":
		return OpGoto, true
	case "MOVE_LEFT":
		return OpMoveLeft, true
	case "MOVE_RIGHT":
		return OpMoveRight, true
	case "IF":
		return OpIf, true
	case "STATE":
		return OpState, true
	default:
		return OpInvalid, false
	}
}

// Comparator is the relation tested by an IF instruction.
type Comparator uint8

const (
	CmpInvalid Comparator = iota
	CmpEQ                 // ==
	CmpNE                 // !=
	CmpLE                 // <=
	CmpGE                 // >=
	CmpLT                 // <
	CmpGT                 // >
)

// ComparatorFromString parses a comparison token.
func ComparatorFromString(s string) (Comparator, bool) {
	switch s {
	case "==":
		return CmpEQ, true
	case "!=":
		return CmpNE, true
	case "<=":
		return CmpLE, true
	case ">=":
		return CmpGE, true
	case "<":
		return CmpLT, true
	case ">":
		return CmpGT, true
	default:
		return CmpInvalid, false
	}
}

func (c Comparator) String() string {
	switch c {
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	case CmpLE:
		return "<="
	case CmpGE:
		return ">="
	case CmpLT:
		return "<"
	case CmpGT:
		return ">"
	default:
		return "?"
	}
}

// Eval applies the comparison to a and b.
func (c Comparator) Eval(a, b int64) bool {
	switch c {
	case CmpEQ:
		return a == b
	case CmpNE:
		return a != b
	case CmpLE:
		return a <= b
	case CmpGE:
		return a >= b
	case CmpLT:
		return a < b
	case CmpGT:
		return a > b
	}
	return false
}
