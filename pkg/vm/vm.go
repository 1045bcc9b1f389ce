// Package vm implements the higher-level Turing machine.
//
// The machine executes symbolic instructions against a single growable
// integer tape:
//   - a tape of int64 cells, zero-filled and growing to the right
//   - a head position and a head register loaded by READ
//   - named markers: fixed tape indices used as variables
//   - an instruction table: state name -> instruction lines
//
// Execution starts in state "start" at index 0 and stops when a STATE
// instruction enters "ACCEPT". The result is read from the cells between the
// OUTPUT and WORK markers.
//
// Basic usage:
//
//	m, err := vm.New(program)
//	result, err := m.Execute()
//
// With limits and observers:
//
//	m, err := vm.New(program,
//	    vm.WithMaxInstructions(500000),
//	    vm.WithContext(ctx),
//	    vm.WithObserver(recorder),
//	)
package vm

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	StartState  = "start"
	AcceptState = "ACCEPT"

	OutputMarker = "OUTPUT"
	WorkMarker   = "WORK"

	// HeadToken names the head register in operands.
	HeadToken = "HEAD"

	// DefaultMaxInstructions bounds every run.
	DefaultMaxInstructions = 100000
)

// Program is a program description: markers, instruction table and an
// optional sparse initial tape.
type Program struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	TapeMarkers  map[string]int      `json:"tape_markers" yaml:"tape_markers"`
	Instructions map[string][]string `json:"instructions" yaml:"instructions"`
	InitialTape  map[int]int64       `json:"initial_tape,omitempty" yaml:"initial_tape,omitempty"`
}

// ExecutionStats contains metrics about a run.
type ExecutionStats struct {
	StepsExecuted int64          // Total instructions executed
	Transitions   int64          // STATE instructions executed
	MaxTapeLen    int            // Tape length at the end of the run
	OpCounts      map[string]int // Count of each opcode fetched, one per step
	GuardedCounts map[string]int // Count of each opcode run by a taken IF
	Duration      time.Duration
}

// Machine is a single-use machine instance.
type Machine struct {
	tape    *Tape
	headPos int
	head    int64
	headSet bool

	markers      map[string]int
	instructions map[string][]string
	published    map[string][]string // copy handed to observers
	decoded      map[string][]*Instruction

	state    string
	pc       int
	executed int64

	maxInstructions  int64
	negativeLiterals bool
	ctx              context.Context
	logger           *slog.Logger
	observers        []Observer

	stats        ExecutionStats
	statsEnabled bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxInstructions sets the instruction budget. Values <= 0 select
// DefaultMaxInstructions: a run is always bounded.
func WithMaxInstructions(n int64) Option {
	return func(m *Machine) {
		if n <= 0 {
			n = DefaultMaxInstructions
		}
		m.maxInstructions = n
	}
}

// WithNegativeLiterals makes operands such as "-1" integer literals.
// By default only all-digit tokens are literals and "-1" fails with
// ErrUnknownOperand.
func WithNegativeLiterals(enabled bool) Option {
	return func(m *Machine) {
		m.negativeLiterals = enabled
	}
}

// WithContext sets the context checked between instructions.
func WithContext(ctx context.Context) Option {
	return func(m *Machine) {
		m.ctx = ctx
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver registers observers called after every step.
func WithObserver(obs ...Observer) Option {
	return func(m *Machine) {
		m.observers = append(m.observers, obs...)
	}
}

// New creates a machine for the given program.
// Markers and instructions are copied; the initial tape is applied at once.
func New(p *Program, opts ...Option) (*Machine, error) {
	m := &Machine{
		tape:            NewTape(),
		markers:         maps.Clone(p.TapeMarkers),
		instructions:    make(map[string][]string, len(p.Instructions)),
		decoded:         make(map[string][]*Instruction, len(p.Instructions)),
		state:           StartState,
		maxInstructions: DefaultMaxInstructions,
		logger:          slog.New(slog.DiscardHandler),
	}
	if m.markers == nil {
		m.markers = make(map[string]int)
	}
	for state, lines := range p.Instructions {
		m.instructions[state] = slices.Clone(lines)
	}
	m.published = m.Instructions()
	for _, opt := range opts {
		opt(m)
	}

	// Highest index first so the tape is sized once.
	indices := slices.Sorted(maps.Keys(p.InitialTape))
	slices.Reverse(indices)
	for _, idx := range indices {
		if err := m.tape.Set(idx, p.InitialTape[idx]); err != nil {
			return nil, fmt.Errorf("initial tape: %w", err)
		}
	}
	return m, nil
}

// EnableStats enables execution statistics collection.
func (m *Machine) EnableStats() {
	m.statsEnabled = true
	m.stats = ExecutionStats{
		OpCounts:      make(map[string]int),
		GuardedCounts: make(map[string]int),
	}
}

// Stats returns the execution statistics collected so far.
// Returns nil if stats were not enabled via EnableStats().
func (m *Machine) Stats() *ExecutionStats {
	if !m.statsEnabled {
		return nil
	}
	m.stats.MaxTapeLen = m.tape.Len()
	return &m.stats
}

// State returns the current state name.
func (m *Machine) State() string { return m.state }

// PC returns the index of the next instruction to fetch.
func (m *Machine) PC() int { return m.pc }

// HeadPos returns the head position.
func (m *Machine) HeadPos() int { return m.headPos }

// Head returns the head register and whether READ has set it.
func (m *Machine) Head() (int64, bool) { return m.head, m.headSet }

// Executed returns the number of instructions executed.
func (m *Machine) Executed() int64 { return m.executed }

// Halted reports whether the machine reached ACCEPT.
func (m *Machine) Halted() bool { return m.state == AcceptState }

// Tape returns a copy of the tape.
func (m *Machine) Tape() []int64 { return m.tape.Cells() }

// TapeLen returns the tape length.
func (m *Machine) TapeLen() int { return m.tape.Len() }

// Markers returns a copy of the marker table.
func (m *Machine) Markers() map[string]int { return maps.Clone(m.markers) }

// Instructions returns a copy of the instruction table.
func (m *Machine) Instructions() map[string][]string {
	out := make(map[string][]string, len(m.instructions))
	for state, lines := range m.instructions {
		out[state] = slices.Clone(lines)
	}
	return out
}

// Execute runs the machine until ACCEPT and returns the formatted output.
//
// The loop runs while the machine is outside ACCEPT and no more than the
// budget has been executed, so a budget of N allows N+1 instructions.
func (m *Machine) Execute() (string, error) {
	start := time.Now()
	m.logger.Info("run started",
		"state", m.state,
		"budget", m.maxInstructions,
		"markers", len(m.markers),
		"states", len(m.instructions))
	if m.statsEnabled {
		defer func() { m.stats.Duration += time.Since(start) }()
	}

	for m.state != AcceptState && m.executed <= m.maxInstructions {
		// Context cancellation check
		if m.ctx != nil {
			select {
			case <-m.ctx.Done():
				return "", m.ctx.Err()
			default:
			}
		}

		if err := m.Step(); err != nil {
			m.logger.Error("run failed", "error", err, "executed", m.executed)
			return "", err
		}
	}

	if m.state != AcceptState {
		err := fmt.Errorf("%w: %d instructions executed, stopped in %s[%d]",
			ErrInstructionBudgetExceeded, m.executed, m.state, m.pc)
		m.logger.Warn("run inconclusive", "error", err)
		return "", err
	}

	out, err := m.Output()
	if err != nil {
		return "", err
	}
	m.logger.Info("run accepted",
		"executed", m.executed,
		"tape_len", m.tape.Len(),
		"elapsed", time.Since(start))
	return out, nil
}

// Step fetches, decodes and executes one instruction.
// It is a no-op once the machine has accepted.
func (m *Machine) Step() error {
	if m.state == AcceptState {
		return nil
	}

	state, pc := m.state, m.pc
	lines := m.instructions[state]
	inst, err := m.fetch()
	if err != nil {
		line := ""
		if pc >= 0 && pc < len(lines) {
			line = lines[pc]
		}
		return m.execError(state, pc, line, nil, err)
	}

	transition, err := m.exec(inst)
	if err != nil {
		return m.execError(state, pc, lines[pc], inst, err)
	}
	if !transition {
		m.pc++
	}
	m.executed++

	if m.statsEnabled {
		m.stats.StepsExecuted++
		m.stats.OpCounts[inst.Op.String()]++
		if transition {
			m.stats.Transitions++
		}
	}

	if len(m.observers) > 0 {
		m.notify(Snapshot{
			Step:         m.executed,
			LastState:    state,
			LastPC:       pc,
			Instruction:  inst.Text,
			State:        m.state,
			PC:           m.pc,
			HeadPos:      m.headPos,
			Tape:         m.tape.Cells(),
			Transition:   transition,
			Instructions: m.published,
		})
	}
	return nil
}

// ExecLine decodes and executes a single instruction line against the
// machine without fetching it from the instruction table. The program
// counter only changes if the line is a STATE transition.
func (m *Machine) ExecLine(line string) error {
	inst, err := Decode(line)
	if err != nil {
		return m.execError(m.state, m.pc, line, nil, err)
	}
	if _, err := m.exec(inst); err != nil {
		return m.execError(m.state, m.pc, line, inst, err)
	}
	return nil
}

// Snapshot returns the current machine state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Step:         m.executed,
		State:        m.state,
		PC:           m.pc,
		HeadPos:      m.headPos,
		Tape:         m.tape.Cells(),
		Instructions: m.Instructions(),
	}
}

// Output formats the result of an accepted run: the cell after OUTPUT, a
// dot, then every cell from OUTPUT+2 up to but excluding WORK.
func (m *Machine) Output() (string, error) {
	if m.state != AcceptState {
		return "", ErrNotAccepted
	}
	out, ok := m.markers[OutputMarker]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingMarker, OutputMarker)
	}
	work, ok := m.markers[WorkMarker]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingMarker, WorkMarker)
	}

	var b strings.Builder
	first, err := m.tape.Get(out + 1)
	if err != nil {
		return "", err
	}
	b.WriteString(strconv.FormatInt(first, 10))
	b.WriteByte('.')
	for i := out + 2; i < work; i++ {
		v, err := m.tape.Get(i)
		if err != nil {
			return "", err
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String(), nil
}

func (m *Machine) fetch() (*Instruction, error) {
	lines := m.instructions[m.state]
	if m.pc < 0 || m.pc >= len(lines) {
		return nil, fmt.Errorf("%w: state %q has %d instructions",
			ErrProgramCounterOutOfRange, m.state, len(lines))
	}

	cache := m.decoded[m.state]
	if cache == nil {
		cache = make([]*Instruction, len(lines))
		m.decoded[m.state] = cache
	}
	if cache[m.pc] == nil {
		inst, err := Decode(lines[m.pc])
		if err != nil {
			return nil, err
		}
		cache[m.pc] = inst
	}
	return cache[m.pc], nil
}

func (m *Machine) context() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}

func (m *Machine) notify(s Snapshot) {
	for _, obs := range m.observers {
		m.observe(obs, s)
	}
}

func (m *Machine) observe(obs Observer, s Snapshot) {
	defer func() {
		if e := recover(); e != nil {
			m.logger.Warn("observer panicked", "panic", e, "step", s.Step)
		}
	}()
	if err := obs.Observe(s); err != nil {
		m.logger.Warn("observer failed", "error", err, "step", s.Step)
	}
}

func (m *Machine) execError(state string, pc int, line string, inst *Instruction, err error) error {
	e := &ExecError{
		State: state,
		PC:    pc,
		Line:  line,
		Err:   err,
	}
	if inst != nil {
		e.Op = inst.Op
	}
	if oe, ok := err.(*operandError); ok {
		e.Operand = oe.operand
		e.Err = oe.err
	}
	return e
}
