package trace

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/akhildatla/hltm/internal/testutil"
	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/vm"
)

func TestStream_OneLinePerStep(t *testing.T) {
	var buf bytes.Buffer
	stream := NewStream(&buf, true)
	m := testutil.MustNew(t, testutil.CountdownProgram(), vm.WithObserver(stream))
	if _, err := m.Execute(); err != nil {
		t.Fatal(err)
	}

	var events []Event
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d: %v", len(events)+1, err)
		}
		events = append(events, ev)
	}
	if int64(len(events)) != m.Executed() {
		t.Fatalf("expected %d events, got %d", m.Executed(), len(events))
	}

	first := events[0]
	if first.Instruction != "GOTO N" || first.State != vm.StartState || first.Transition != 0 || first.Tape != nil {
		t.Errorf("unexpected first event %+v", first)
	}
	second := events[1]
	if second.Transition != 1 || second.NextState != "loop" || len(second.Tape) == 0 {
		t.Errorf("expected transition event with tape, got %+v", second)
	}
	last := events[len(events)-1]
	if last.NextState != vm.AcceptState {
		t.Errorf("expected last event to enter ACCEPT, got %+v", last)
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestStream_StopsAfterWriteError(t *testing.T) {
	w := &failingWriter{}
	stream := NewStream(w, false)
	m := testutil.MustNew(t, testutil.CountdownProgram(), vm.WithObserver(stream))

	out, err := m.Execute()
	if err != nil || out != "3.14" {
		t.Fatalf("observer errors must not stop the run: %q, %v", out, err)
	}
	if stream.Err() == nil {
		t.Error("expected write error")
	}
	if w.n != 1 {
		t.Errorf("expected a single write attempt, got %d", w.n)
	}
}

func TestStream_LoadsAsTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	stream := NewStream(f, false)
	m := testutil.MustNew(t, testutil.CountdownProgram(), vm.WithObserver(stream))
	if _, err := m.Execute(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	df, err := loader.LoadTrace(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadTrace failed: %v", err)
	}
	counts, err := Summarize(df)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, c := range counts {
		total += c.Steps
	}
	if int64(total) != m.Executed() {
		t.Errorf("expected %d steps, got %d", m.Executed(), total)
	}
}

func TestWriteStats(t *testing.T) {
	m := testutil.MustNew(t, testutil.CountdownProgram())
	m.EnableStats()
	if _, err := m.Execute(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	WriteStats(&buf, m.Stats())
	out := buf.String()

	if !strings.HasPrefix(out, "steps 20,") {
		t.Errorf("unexpected header: %q", strings.SplitN(out, "\n", 2)[0])
	}
	rows := make(map[string][]string)
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		var cells []string
		for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
			cells = append(cells, strings.TrimSpace(c))
		}
		rows[cells[0]] = cells[1:]
	}

	// The loop's IF fires once, running STATE write as a guarded instruction.
	want := map[string][]string{
		"SET":   {"3", "0"},
		"STATE": {"4", "1"},
		"TOTAL": {"20", "1"},
	}
	for op, cells := range want {
		if diff := cmp.Diff(cells, rows[op]); diff != "" {
			t.Errorf("%s row mismatch (-want +got):\n%s", op, diff)
		}
	}
}
