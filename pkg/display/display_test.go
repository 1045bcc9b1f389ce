package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/akhildatla/hltm/internal/testutil"
	"github.com/akhildatla/hltm/pkg/vm"
)

func snapshot() vm.Snapshot {
	return vm.Snapshot{
		Step:    7,
		State:   "loop",
		PC:      1,
		HeadPos: 2,
		Tape:    []int64{5, 0, 9, 4},
		Instructions: map[string][]string{
			"loop": {"SUB 1", "READ", "STATE loop"},
		},
	}
}

func TestRenderTape(t *testing.T) {
	out := RenderTape(snapshot(), map[string]int{"N": 0, "OUTPUT": 2, "WORK": 2}, 1)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "[black:yellow]") {
		t.Errorf("head row not highlighted: %q", lines[1])
	}
	if !strings.Contains(lines[1], "OUTPUT WORK") {
		t.Errorf("expected sorted marker names on head row, got %q", lines[1])
	}
	if strings.Contains(lines[0], "[black:yellow]") {
		t.Errorf("unexpected highlight: %q", lines[0])
	}
}

func TestRenderTape_HeadBeyondTape(t *testing.T) {
	s := snapshot()
	s.HeadPos = 6
	out := RenderTape(s, nil, 2)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// 4..6, the head row shows a zero.
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d:\n%s", len(lines), out)
	}
	if want := fmt.Sprintf("%6d %12d", 6, 0); !strings.Contains(lines[2], want) {
		t.Errorf("unexpected head row %q", lines[2])
	}
}

func TestRenderProgram(t *testing.T) {
	out := RenderProgram(snapshot())
	if !strings.Contains(out, "[black:green]> 0001: READ") {
		t.Errorf("next instruction not marked:\n%s", out)
	}
	if !strings.Contains(out, "  0000: SUB 1") {
		t.Errorf("missing first instruction:\n%s", out)
	}
}

func TestRenderStatus(t *testing.T) {
	got := RenderStatus(snapshot(), 10*time.Millisecond, 3, true)
	for _, want := range []string{"step 7", "loop pc 1", "head 2 = 9", "dropped 3", "PAUSED"} {
		if !strings.Contains(got, want) {
			t.Errorf("status %q missing %q", got, want)
		}
	}
}

func TestObserve_DropsWhenFull(t *testing.T) {
	d := New(nil, WithBuffer(2))
	for i := 0; i < 5; i++ {
		if err := d.Observe(snapshot()); err != nil {
			t.Fatal(err)
		}
	}
	if d.Dropped() != 3 {
		t.Errorf("expected 3 dropped frames, got %d", d.Dropped())
	}
}

func TestObserve_Pause(t *testing.T) {
	d := New(nil)
	d.Pause()
	if !d.Paused() {
		t.Fatal("expected paused")
	}

	returned := make(chan struct{})
	go func() {
		d.Observe(snapshot())
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("Observe returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	d.Resume()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Observe still blocked after Resume")
	}
}

func TestObserve_StopReleasesPause(t *testing.T) {
	d := New(nil, WithDelay(time.Hour))
	d.Pause()

	returned := make(chan struct{})
	go func() {
		d.Observe(snapshot())
		close(returned)
	}()

	d.Stop()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Observe still blocked after Stop")
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestObserve_ContextReleasesPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := New(nil, WithDelay(time.Hour), WithContext(ctx))
	d.Pause()

	returned := make(chan struct{})
	go func() {
		d.Observe(snapshot())
		close(returned)
	}()

	cancel()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Observe still blocked after the context ended")
	}
	if !d.Paused() {
		t.Error("ending the run context should not toggle the pause")
	}
}

func TestDisplay_PausedRunTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	d := New(nil)
	d.SetContext(ctx)
	d.Pause()
	m := testutil.MustNew(t, testutil.CountdownProgram(), vm.WithContext(ctx), vm.WithObserver(d))

	errc := make(chan error, 1)
	go func() {
		_, err := m.Execute()
		errc <- err
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("paused run ignored its deadline")
	}
	if m.Executed() != 1 {
		t.Errorf("expected the run to stop after 1 step, got %d", m.Executed())
	}
}

func TestSpeedControl(t *testing.T) {
	d := New(nil)
	d.slower()
	if d.Delay() != minDelay {
		t.Errorf("expected %v, got %v", minDelay, d.Delay())
	}
	for i := 0; i < 20; i++ {
		d.slower()
	}
	if d.Delay() != maxDelay {
		t.Errorf("expected delay capped at %v, got %v", maxDelay, d.Delay())
	}
	for i := 0; i < 20; i++ {
		d.faster()
	}
	if d.Delay() != 0 {
		t.Errorf("expected no delay, got %v", d.Delay())
	}
}

func TestDisplay_AsObserver(t *testing.T) {
	d := New(nil, WithBuffer(1000))
	m := testutil.MustNew(t, testutil.CountdownProgram(), vm.WithObserver(d))
	out, err := m.Execute()
	if err != nil || out != "3.14" {
		t.Fatalf("Execute = %q, %v", out, err)
	}
	if got := len(d.frames); int64(got) != m.Executed() {
		t.Errorf("expected %d queued frames, got %d", m.Executed(), got)
	}
	if d.Dropped() != 0 {
		t.Errorf("unexpected dropped frames: %d", d.Dropped())
	}
}

func TestHandleKey(t *testing.T) {
	d := New(nil)
	key := func(r rune) *tcell.EventKey {
		return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
	}

	if ev := d.handleKey(key(' ')); ev != nil || !d.Paused() {
		t.Errorf("space should pause, got %v, paused %v", ev, d.Paused())
	}
	if !strings.Contains(d.status.GetText(true), "PAUSED") {
		t.Errorf("status not redrawn: %q", d.status.GetText(true))
	}
	d.handleKey(key(' '))
	if d.Paused() {
		t.Error("second space should resume")
	}

	d.handleKey(key('-'))
	if d.Delay() != minDelay {
		t.Errorf("expected slower delay %v, got %v", minDelay, d.Delay())
	}

	if ev := d.handleKey(key('z')); ev == nil {
		t.Error("unbound keys must pass through")
	}

	d.handleKey(key('q'))
	select {
	case <-d.Done():
	default:
		t.Error("q should stop the view")
	}
}
