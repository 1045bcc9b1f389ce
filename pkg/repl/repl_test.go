package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akhildatla/hltm/internal/testutil"
	"github.com/akhildatla/hltm/pkg/vm"
)

func newLoaded(t *testing.T, opts ...vm.Option) *REPL {
	t.Helper()
	r := New(opts...)
	if err := r.SetProgram(testutil.CountdownProgram(), "countdown"); err != nil {
		t.Fatalf("SetProgram failed: %v", err)
	}
	return r
}

func TestREPL_New(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New returned nil")
	}
	if r.Machine() != nil {
		t.Error("expected no machine before a program is loaded")
	}
}

func TestREPL_HandleCommand_Help(t *testing.T) {
	r := New()
	var out bytes.Buffer

	for _, cmd := range []string{"help", "h", "?"} {
		out.Reset()
		if !r.handleCommand(cmd, &out) {
			t.Errorf("expected help command '%s' to be handled", cmd)
		}
		if !strings.Contains(out.String(), "hltm REPL Commands") {
			t.Errorf("expected help text, got: %s", out.String())
		}
	}
}

func TestREPL_HandleCommand_Quit(t *testing.T) {
	for _, cmd := range []string{"quit", "exit", "q"} {
		r := New()
		var out bytes.Buffer
		if !r.handleCommand(cmd, &out) {
			t.Errorf("expected quit command '%s' to be handled", cmd)
		}
		if !strings.Contains(out.String(), "Goodbye") {
			t.Errorf("expected goodbye message, got: %s", out.String())
		}
		if !r.quit {
			t.Errorf("expected '%s' to end the loop", cmd)
		}
	}
}

func TestREPL_NoProgram(t *testing.T) {
	for _, cmd := range []string{"step", "run", "state", "tape", "markers", "list", "exec READ", "reset"} {
		r := New()
		var out bytes.Buffer
		r.handleCommand(cmd, &out)
		if !strings.Contains(out.String(), "no program loaded") {
			t.Errorf("%s: expected no program message, got: %s", cmd, out.String())
		}
	}
}

func TestREPL_Load(t *testing.T) {
	r := New()
	var out bytes.Buffer

	path := testutil.TempFile(t, testutil.CountdownYAML(), ".yaml")
	r.handleCommand("load "+path, &out)
	if !strings.Contains(out.String(), "3 states, 3 markers") {
		t.Errorf("expected load summary, got: %s", out.String())
	}
	if r.Machine() == nil {
		t.Fatal("expected a machine after load")
	}

	out.Reset()
	r.handleCommand("load", &out)
	if !strings.Contains(out.String(), "Usage: load") {
		t.Errorf("expected usage message, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("load /nonexistent/program.json", &out)
	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("expected error message, got: %s", out.String())
	}
}

func TestREPL_Pi(t *testing.T) {
	r := New()
	var out bytes.Buffer

	r.handleCommand("pi 5", &out)
	if !strings.Contains(out.String(), "Loaded M_PI_5_DIGITS") {
		t.Errorf("expected pi program, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("run", &out)
	if !strings.Contains(out.String(), "=> 3.1415") {
		t.Errorf("expected pi digits, got: %s", out.String())
	}

	for _, cmd := range []string{"pi x", "pi 0"} {
		out.Reset()
		r.handleCommand(cmd, &out)
		if !strings.Contains(out.String(), "Error:") {
			t.Errorf("%s: expected error, got: %s", cmd, out.String())
		}
	}
}

func TestREPL_Step(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("step", &out)
	if !strings.Contains(out.String(), "start[0]  GOTO N") {
		t.Errorf("expected first instruction, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("s 3", &out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got: %s", out.String())
	}
	if !strings.Contains(lines[2], "loop[1]  READ") {
		t.Errorf("unexpected last step: %s", lines[2])
	}
	testutil.AssertInt64Equal(t, 4, r.Machine().Executed())

	out.Reset()
	r.handleCommand("step 0", &out)
	if !strings.Contains(out.String(), "invalid step count") {
		t.Errorf("expected invalid count message, got: %s", out.String())
	}
}

func TestREPL_StepPastAccept(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("step 25", &out)
	if !strings.Contains(out.String(), "Machine accepted") {
		t.Errorf("expected accept message, got: %s", out.String())
	}
	testutil.AssertInt64Equal(t, 20, r.Machine().Executed())
}

func TestREPL_Run(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("run", &out)
	if !strings.Contains(out.String(), "=> 3.14") {
		t.Errorf("expected output, got: %s", out.String())
	}
}

func TestREPL_Run_Inconclusive(t *testing.T) {
	r := newLoaded(t, vm.WithMaxInstructions(5))
	var out bytes.Buffer

	r.handleCommand("run", &out)
	if !strings.Contains(out.String(), "Inconclusive:") {
		t.Errorf("expected inconclusive message, got: %s", out.String())
	}
}

func TestREPL_Exec(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("exec SET 7", &out)
	tape := r.Machine().Tape()
	testutil.AssertInt64Equal(t, 7, tape[0])
	if !strings.Contains(out.String(), "register unset") {
		t.Errorf("expected state line, got: %s", out.String())
	}

	// Instruction lines without the exec prefix go through Start.
	out.Reset()
	r.Start(strings.NewReader("READ\nquit\n"), &out)
	if v, ok := r.Machine().Head(); !ok || v != 7 {
		t.Errorf("expected head register 7, got %d, %v", v, ok)
	}

	out.Reset()
	r.handleCommand("exec FROB", &out)
	if !strings.Contains(out.String(), vm.ErrUnknownOpcode.Error()) {
		t.Errorf("expected unknown opcode, got: %s", out.String())
	}
}

func TestREPL_Reset(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("run", &out)
	if !r.Machine().Halted() {
		t.Fatal("expected accepted machine")
	}

	out.Reset()
	r.handleCommand("reset", &out)
	if r.Machine().Halted() || r.Machine().Executed() != 0 {
		t.Error("expected fresh machine after reset")
	}
	if r.recorder.Len() != 0 {
		t.Error("expected empty recorder after reset")
	}
}

func TestREPL_TapeAndMarkers(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("run", &out)

	out.Reset()
	r.handleCommand("tape", &out)
	for _, want := range []string{"INDEX", "OUTPUT", "<HEAD>"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected tape table to contain %q, got:\n%s", want, out.String())
		}
	}

	out.Reset()
	r.handleCommand("tape x", &out)
	if !strings.Contains(out.String(), "Usage: tape") {
		t.Errorf("expected usage, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("markers", &out)
	for _, want := range []string{"MARKER", "WORK", "N"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected marker table to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestREPL_List(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("list", &out)
	if !strings.Contains(out.String(), "> 0000: GOTO N") {
		t.Errorf("expected cursor on first instruction, got:\n%s", out.String())
	}

	out.Reset()
	r.handleCommand("list write", &out)
	if !strings.Contains(out.String(), "0006: STATE ACCEPT") {
		t.Errorf("expected write state, got:\n%s", out.String())
	}

	out.Reset()
	r.handleCommand("list all", &out)
	if !strings.Contains(out.String(), "3 states") {
		t.Errorf("expected program listing, got:\n%s", out.String())
	}

	out.Reset()
	r.handleCommand("list nowhere", &out)
	if !strings.Contains(out.String(), `no state "nowhere"`) {
		t.Errorf("expected missing state error, got:\n%s", out.String())
	}
}

func TestREPL_TraceAndSummary(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.handleCommand("summary", &out)
	if !strings.Contains(out.String(), "No steps recorded") {
		t.Errorf("expected empty message, got: %s", out.String())
	}

	r.handleCommand("run", &out)

	out.Reset()
	r.handleCommand("summary", &out)
	if !strings.Contains(out.String(), "TOTAL") || !strings.Contains(out.String(), "20") {
		t.Errorf("expected summary with total, got:\n%s", out.String())
	}

	path := filepath.Join(t.TempDir(), "trace.csv")
	out.Reset()
	r.handleCommand("trace "+path, &out)
	if !strings.Contains(out.String(), "Wrote 20 steps") {
		t.Errorf("expected write confirmation, got: %s", out.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("trace file not written: %v", err)
	}
}

func TestREPL_History(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.Start(strings.NewReader("state\nstep\nhistory\nquit\n"), &out)
	if !strings.Contains(out.String(), "  1: state") || !strings.Contains(out.String(), "  2: step") {
		t.Errorf("expected history, got: %s", out.String())
	}
}

func TestREPL_Start_StopsAtQuit(t *testing.T) {
	r := newLoaded(t)
	var out bytes.Buffer

	r.Start(strings.NewReader("quit\nstep\n"), &out)
	if r.Machine().Executed() != 0 {
		t.Error("expected input after quit to be ignored")
	}
	if !strings.Contains(out.String(), "hltm REPL") {
		t.Errorf("expected banner, got: %s", out.String())
	}
}
