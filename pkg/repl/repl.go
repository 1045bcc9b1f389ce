// Package repl provides an interactive stepper over a machine.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/pi"
	"github.com/akhildatla/hltm/pkg/trace"
	"github.com/akhildatla/hltm/pkg/vm"
)

const prompt = "hltm> "

// ErrNoProgram is reported by commands that need a loaded program.
var ErrNoProgram = errors.New("no program loaded, use 'load <path>' or 'pi [n]'")

// REPL provides an interactive Read-Eval-Print Loop over one machine.
type REPL struct {
	program  *vm.Program
	source   string
	opts     []vm.Option
	machine  *vm.Machine
	recorder *trace.Recorder
	last     *vm.Snapshot
	history  []string
	quit     bool
}

// New creates a new REPL instance. The options are applied to every
// machine the REPL builds.
func New(opts ...vm.Option) *REPL {
	return &REPL{
		opts:    opts,
		history: []string{},
	}
}

// SetProgram loads a program and builds a fresh machine for it.
func (r *REPL) SetProgram(p *vm.Program, source string) error {
	r.program = p
	r.source = source
	return r.reset()
}

// Machine returns the current machine, nil before a program is loaded.
func (r *REPL) Machine() *vm.Machine {
	return r.machine
}

// Start starts the REPL loop.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "hltm REPL - higher-level Turing machine")
	fmt.Fprintln(out, "Type 'help' for available commands, 'quit' to exit")
	fmt.Fprintln(out)

	for !r.quit {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.history = append(r.history, line)

		if handled := r.handleCommand(line, out); handled {
			continue
		}
		// Anything else is an instruction line.
		r.exec(line, out)
	}
}

func (r *REPL) handleCommand(line string, out io.Writer) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}

	switch parts[0] {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Goodbye!")
		r.quit = true

	case "help", "h", "?":
		r.printHelp(out)

	case "load":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: load <program.json|yaml|cue>")
			return true
		}
		p, err := loader.LoadProgram(parts[1])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return true
		}
		r.setProgram(p, parts[1], out)

	case "pi":
		n := pi.DefaultDigits
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Fprintf(out, "Error: invalid digit count %q\n", parts[1])
				return true
			}
			n = v
		}
		p, err := pi.Generate(n)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return true
		}
		r.setProgram(p, p.Name, out)

	case "reset":
		if err := r.reset(); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return true
		}
		fmt.Fprintln(out, "Machine reset")

	case "step", "s":
		n := 1
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 1 {
				fmt.Fprintf(out, "Error: invalid step count %q\n", parts[1])
				return true
			}
			n = v
		}
		r.step(n, out)

	case "run", "r":
		r.run(out)

	case "exec", "x":
		r.exec(strings.TrimSpace(strings.TrimPrefix(line, parts[0])), out)

	case "state":
		r.printState(out)

	case "tape":
		r.printTape(parts[1:], out)

	case "markers":
		if r.machine == nil {
			fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
			return true
		}
		trace.WriteMarkerTable(out, r.machine.Tape(), r.machine.Markers())

	case "list", "l":
		r.list(parts[1:], out)

	case "trace":
		r.saveTrace(parts[1:], out)

	case "summary":
		if r.recorder == nil || r.recorder.Len() == 0 {
			fmt.Fprintln(out, "No steps recorded")
			return true
		}
		if err := trace.WriteSummary(out, r.recorder.Frame()); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}

	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}

	default:
		return false
	}
	return true
}

func (r *REPL) setProgram(p *vm.Program, source string, out io.Writer) {
	if err := r.SetProgram(p, source); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Loaded %s (%d states, %d markers)\n",
		source, len(p.Instructions), len(p.TapeMarkers))
}

func (r *REPL) reset() error {
	if r.program == nil {
		return ErrNoProgram
	}
	r.recorder = trace.NewRecorder()
	r.last = nil
	opts := append([]vm.Option{}, r.opts...)
	opts = append(opts, vm.WithObserver(r.recorder, vm.ObserverFunc(func(s vm.Snapshot) error {
		r.last = &s
		return nil
	})))

	m, err := vm.New(r.program, opts...)
	if err != nil {
		return err
	}
	r.machine = m
	return nil
}

func (r *REPL) step(n int, out io.Writer) {
	if r.machine == nil {
		fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
		return
	}
	for i := 0; i < n; i++ {
		if r.machine.Halted() {
			fmt.Fprintln(out, "Machine accepted, use 'reset' to start over")
			return
		}
		if err := r.machine.Step(); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		if s := r.last; s != nil {
			fmt.Fprintf(out, "%6d  %s[%d]  %s\n", s.Step, s.LastState, s.LastPC, s.Instruction)
		}
	}
}

func (r *REPL) run(out io.Writer) {
	if r.machine == nil {
		fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
		return
	}
	result, err := r.machine.Execute()
	switch {
	case vm.IsInconclusive(err):
		fmt.Fprintf(out, "Inconclusive: %v\n", err)
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
	default:
		fmt.Fprintf(out, "=> %s\n", result)
	}
}

func (r *REPL) exec(line string, out io.Writer) {
	if r.machine == nil {
		fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
		return
	}
	if line == "" {
		fmt.Fprintln(out, "Usage: exec <instruction>")
		return
	}
	if err := r.machine.ExecLine(line); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	r.printState(out)
}

func (r *REPL) printState(out io.Writer) {
	if r.machine == nil {
		fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
		return
	}
	m := r.machine
	head := "unset"
	if v, ok := m.Head(); ok {
		head = strconv.FormatInt(v, 10)
	}
	fmt.Fprintf(out, "state %s  pc %d  head at %d  register %s  executed %d  tape %d cells\n",
		m.State(), m.PC(), m.HeadPos(), head, m.Executed(), m.TapeLen())
}

// printTape renders the tape, or the cells in [from, to).
func (r *REPL) printTape(args []string, out io.Writer) {
	if r.machine == nil {
		fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
		return
	}
	opts := trace.TableOptions{Head: r.machine.HeadPos(), SkipZeros: true}
	if len(args) > 0 {
		bounds := make([]int, len(args))
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				fmt.Fprintln(out, "Usage: tape [from [to]]")
				return
			}
			bounds[i] = v
		}
		opts.From = bounds[0]
		if len(bounds) > 1 {
			opts.To = bounds[1]
		}
		opts.SkipZeros = false
	}
	trace.WriteTapeTable(out, r.machine.Tape(), r.machine.Markers(), opts)
}

func (r *REPL) list(args []string, out io.Writer) {
	if r.machine == nil {
		fmt.Fprintf(out, "Error: %v\n", ErrNoProgram)
		return
	}
	if len(args) > 0 && args[0] == "all" {
		fmt.Fprint(out, vm.Listing(r.program))
		return
	}

	state := r.machine.State()
	if len(args) > 0 {
		state = args[0]
	}
	lines, ok := r.machine.Instructions()[state]
	if !ok {
		fmt.Fprintf(out, "Error: no state %q\n", state)
		return
	}
	fmt.Fprintf(out, "%s:\n", state)
	for pc, line := range lines {
		cursor := "  "
		if state == r.machine.State() && pc == r.machine.PC() {
			cursor = "> "
		}
		fmt.Fprintf(out, "%s%04d: %s\n", cursor, pc, line)
	}
}

func (r *REPL) saveTrace(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: trace <path.csv|json|parquet>")
		return
	}
	if r.recorder == nil || r.recorder.Len() == 0 {
		fmt.Fprintln(out, "No steps recorded")
		return
	}
	if err := trace.WriteFile(context.Background(), args[0], r.recorder.Frame()); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Wrote %d steps to %s\n", r.recorder.Len(), args[0])
}

func (r *REPL) printHelp(out io.Writer) {
	help := `
hltm REPL Commands:
  help, h, ?          Show this help message
  quit, exit, q       Exit the REPL
  load <path>         Load a program description (.json, .yaml, .cue)
  pi [n]              Generate the pi program for n digits
  reset               Rebuild the machine from the loaded program
  step, s [n]         Execute n instructions (default 1)
  run, r              Run until ACCEPT or the instruction budget
  exec, x <line>      Execute one instruction against the machine
  state               Show state, program counter and head
  tape [from [to]]    Show tape cells
  markers             Show markers and their values
  list, l [state|all] List instructions of a state, or the whole program
  summary             Show steps executed per state
  trace <path>        Write the recorded steps (.csv, .json, .parquet)
  history             Show command history

Any other input is executed as an instruction line, e.g.
  SET OUTPUT 3
  IF HEAD > 0 MOVE_RIGHT
`
	fmt.Fprint(out, help)
}
