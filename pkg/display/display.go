// Package display renders a running machine in the terminal.
//
// A Display is a vm.Observer. Snapshots are handed to the UI through a
// bounded queue; when the UI falls behind, frames are dropped so the machine
// keeps making progress. The only way the display slows the machine down is
// the configured step delay and the pause toggle.
package display

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/akhildatla/hltm/pkg/vm"
)

const (
	defaultBuffer = 64
	defaultWindow = 12

	minDelay = time.Millisecond
	maxDelay = 2 * time.Second
)

// Display is a terminal view of a machine run.
type Display struct {
	markers map[string]int
	window  int

	app     *tview.Application
	tape    *tview.TextView
	program *tview.TextView
	status  *tview.TextView
	log     *tview.TextView
	cols    *tview.Flex
	rows    *tview.Flex

	frames  chan vm.Snapshot
	dropped atomic.Int64
	delay   atomic.Int64 // nanoseconds

	mu     sync.Mutex
	ctx    context.Context // run context, ends waits in Observe
	resume chan struct{}   // non-nil while paused
	last   vm.Snapshot
	result string

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Display.
type Option func(*Display)

// WithDelay sets the pause after every step, the speed control of the view.
func WithDelay(d time.Duration) Option {
	return func(v *Display) {
		v.SetDelay(d)
	}
}

// WithBuffer sets how many frames may wait for the UI before frames are
// dropped.
func WithBuffer(n int) Option {
	return func(v *Display) {
		if n > 0 {
			v.frames = make(chan vm.Snapshot, n)
		}
	}
}

// WithWindow sets how many cells are shown on each side of the head.
func WithWindow(n int) Option {
	return func(v *Display) {
		if n > 0 {
			v.window = n
		}
	}
}

// WithContext sets the run context. Observe stops waiting for the step
// delay or a pause once it is done.
func WithContext(ctx context.Context) Option {
	return func(v *Display) {
		v.SetContext(ctx)
	}
}

// WithScreen runs the view on the given screen instead of the terminal.
func WithScreen(s tcell.Screen) Option {
	return func(v *Display) {
		v.app.SetScreen(s)
	}
}

// New creates a display for a machine with the given markers.
func New(markers map[string]int, opts ...Option) *Display {
	d := &Display{
		markers: markers,
		window:  defaultWindow,
		app:     tview.NewApplication(),
		tape: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false),
		program: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false),
		status: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false),
		log: tview.NewTextView().
			SetMaxLines(1000),
		cols: tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		frames: make(chan vm.Snapshot, defaultBuffer),
		ctx:    context.Background(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.tape.SetBorder(true).SetTitle(" tape ")
	d.program.SetBorder(true).SetTitle(" program ")
	d.log.SetBorder(true).SetTitle(" log ")
	d.status.SetBackgroundColor(tcell.ColorDarkBlue)
	d.log.SetChangedFunc(func() { d.app.Draw() })

	d.cols.
		AddItem(d.tape, 0, 1, false).
		AddItem(d.program, 0, 1, false)
	d.rows.
		AddItem(d.cols, 0, 3, false).
		AddItem(d.log, 0, 1, false).
		AddItem(d.status, 2, 0, false)
	d.app.SetRoot(d.rows, true)
	d.app.SetInputCapture(d.handleKey)
	return d
}

// Run shows the view until the user quits or Stop is called.
func (d *Display) Run() error {
	go d.drain()
	defer d.Stop()
	return d.app.Run()
}

// Stop closes the view and releases a paused machine.
func (d *Display) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.app.Stop()
	})
}

// Done is closed when the view stops.
func (d *Display) Done() <-chan struct{} {
	return d.done
}

// LogWriter returns a writer that appends to the log pane.
func (d *Display) LogWriter() io.Writer {
	return d.log
}

// Observe implements vm.Observer. It waits out the step delay and a pause,
// then queues the snapshot for drawing without blocking.
func (d *Display) Observe(s vm.Snapshot) error {
	ctx := d.runContext()
	if delay := time.Duration(d.delay.Load()); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-d.done:
		case <-ctx.Done():
		}
		timer.Stop()
	}
	d.waitWhilePaused(ctx)

	select {
	case d.frames <- s:
	default:
		d.dropped.Add(1)
	}
	return nil
}

// Finish shows the result of the run in the status bar.
func (d *Display) Finish(result string, err error) {
	d.mu.Lock()
	switch {
	case err == nil:
		d.result = "[green]ACCEPT[-] " + result
	case vm.IsInconclusive(err):
		d.result = "[yellow]inconclusive[-] " + tview.Escape(err.Error())
	default:
		d.result = "[red]error[-] " + tview.Escape(err.Error())
	}
	d.mu.Unlock()

	d.queue(d.drawStatus)
}

// Dropped returns the number of frames skipped because the UI lagged.
func (d *Display) Dropped() int64 {
	return d.dropped.Load()
}

// Pause stops the machine at its next step until Resume.
func (d *Display) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resume == nil {
		d.resume = make(chan struct{})
	}
}

// Resume releases a paused machine.
func (d *Display) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resume != nil {
		close(d.resume)
		d.resume = nil
	}
}

// Paused reports whether the view holds the machine.
func (d *Display) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resume != nil
}

// SetContext replaces the run context. A nil context is ignored.
func (d *Display) SetContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
}

func (d *Display) runContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

// SetDelay changes the step delay.
func (d *Display) SetDelay(delay time.Duration) {
	d.delay.Store(int64(max(delay, 0)))
}

// Delay returns the current step delay.
func (d *Display) Delay() time.Duration {
	return time.Duration(d.delay.Load())
}

func (d *Display) waitWhilePaused(ctx context.Context) {
	d.mu.Lock()
	ch := d.resume
	d.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-d.done:
	case <-ctx.Done():
	}
}

// faster halves the delay, slower doubles it.
func (d *Display) faster() {
	delay := d.Delay() / 2
	if delay < minDelay {
		delay = 0
	}
	d.SetDelay(delay)
}

func (d *Display) slower() {
	delay := d.Delay() * 2
	if delay == 0 {
		delay = minDelay
	}
	d.SetDelay(min(delay, maxDelay))
}

func (d *Display) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyEscape:
		d.Stop()
		return nil
	case tcell.KeyRune:
	default:
		return ev
	}

	switch ev.Rune() {
	case 'q':
		d.Stop()
	case ' ', 'p':
		if d.Paused() {
			d.Resume()
		} else {
			d.Pause()
		}
	case '+', 'f':
		d.faster()
	case '-', 's':
		d.slower()
	default:
		return ev
	}
	d.drawStatus()
	return nil
}

// queue schedules f on the UI goroutine unless the view has stopped.
func (d *Display) queue(f func()) {
	select {
	case <-d.done:
	default:
		d.app.QueueUpdateDraw(f)
	}
}

// drain moves queued frames to the screen.
func (d *Display) drain() {
	for {
		select {
		case s := <-d.frames:
			d.mu.Lock()
			d.last = s
			d.mu.Unlock()
			d.queue(func() { d.draw(s) })
		case <-d.done:
			return
		}
	}
}

func (d *Display) draw(s vm.Snapshot) {
	d.tape.SetText(RenderTape(s, d.markers, d.window))
	d.program.SetText(RenderProgram(s))
	d.drawStatus()
}

func (d *Display) drawStatus() {
	d.mu.Lock()
	s, result := d.last, d.result
	paused := d.resume != nil
	d.mu.Unlock()

	text := RenderStatus(s, d.Delay(), d.Dropped(), paused)
	if result != "" {
		text += "\n" + result + "  [::d](q to quit)[::-]"
	} else {
		text += "\n[::d]space pause  +/- speed  q quit[::-]"
	}
	d.status.SetText(text)
}
