package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/akhildatla/hltm/pkg/vm"
)

// RenderTape draws the cells within window of the head, one per line, with
// the marker names that point at each cell. The head row is highlighted.
func RenderTape(s vm.Snapshot, markers map[string]int, window int) string {
	labels := make(map[int][]string, len(markers))
	for name, idx := range markers {
		labels[idx] = append(labels[idx], name)
	}

	from := max(s.HeadPos-window, 0)
	to := s.HeadPos + window
	if n := len(s.Tape) - 1; to > n {
		to = max(n, s.HeadPos)
	}

	var b strings.Builder
	for i := from; i <= to; i++ {
		var v int64
		if i < len(s.Tape) {
			v = s.Tape[i]
		}
		names := labels[i]
		sort.Strings(names)
		line := fmt.Sprintf("%6d %12d  %s", i, v, tview.Escape(strings.Join(names, " ")))
		if i == s.HeadPos {
			line = "[black:yellow]" + line + "[-:-]"
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderProgram lists the instructions of the state about to run, marking
// the next fetch.
func RenderProgram(s vm.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s:[::-]\n", tview.Escape(s.State))
	for pc, line := range s.Instructions[s.State] {
		text := fmt.Sprintf("%04d: %s", pc, tview.Escape(line))
		if pc == s.PC {
			text = "[black:green]> " + text + "[-:-]"
		} else {
			text = "  " + text
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderStatus is the one-line summary under the panes.
func RenderStatus(s vm.Snapshot, delay time.Duration, dropped int64, paused bool) string {
	text := fmt.Sprintf("step %d  %s pc %d  head %d = %d  tape %d  delay %v  dropped %d",
		s.Step, tview.Escape(s.State), s.PC, s.HeadPos, s.HeadValue(), len(s.Tape), delay, dropped)
	if paused {
		text += "  [yellow]PAUSED[-]"
	}
	return text
}
