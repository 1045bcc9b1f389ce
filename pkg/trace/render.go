package trace

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/hltm/pkg/vm"
)

// ErrNoColumn is returned when a frame lacks a requested column.
var ErrNoColumn = errors.New("no such column")

// TableOptions selects the tape cells rendered by WriteTapeTable.
type TableOptions struct {
	From, To  int  // half-open index range; To <= 0 means to the end of the tape
	Head      int  // head position to flag, -1 for none
	SkipZeros bool // omit zero cells that carry no marker and are not under the head
}

// WriteTapeTable renders tape cells with the markers that point at them.
func WriteTapeTable(w io.Writer, tape []int64, markers map[string]int, opts TableOptions) {
	names := make(map[int][]string)
	for name, idx := range markers {
		names[idx] = append(names[idx], name)
	}

	to := opts.To
	if to <= 0 || to > len(tape) {
		to = len(tape)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Index", "Value", "Markers"})
	for i := max(opts.From, 0); i < to; i++ {
		labels := names[i]
		sort.Strings(labels)
		if i == opts.Head {
			labels = append([]string{"<HEAD>"}, labels...)
		}
		if opts.SkipZeros && tape[i] == 0 && len(labels) == 0 {
			continue
		}
		table.Append([]string{
			strconv.Itoa(i),
			strconv.FormatInt(tape[i], 10),
			strings.Join(labels, " "),
		})
	}
	table.Render()
}

// WriteMarkerTable renders every marker with its index and current value,
// ordered by index.
func WriteMarkerTable(w io.Writer, tape []int64, markers map[string]int) {
	names := make([]string, 0, len(markers))
	for name := range markers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := markers[names[i]], markers[names[j]]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Marker", "Index", "Value"})
	for _, name := range names {
		idx := markers[name]
		value := "-"
		if idx >= 0 && idx < len(tape) {
			value = strconv.FormatInt(tape[idx], 10)
		}
		table.Append([]string{name, strconv.Itoa(idx), value})
	}
	table.Render()
}

// PlotOptions configures ASCII plots.
type PlotOptions struct {
	Height  int
	Width   int // 0 keeps one column per value
	Caption string
}

// Plot renders values as an ASCII line graph. It returns an empty string
// for an empty series.
func Plot(values []int64, opts PlotOptions) string {
	if len(values) == 0 {
		return ""
	}
	series := make([]float64, len(values))
	for i, v := range values {
		series[i] = float64(v)
	}
	return PlotFloats(series, opts)
}

// PlotFloats is Plot for float series.
func PlotFloats(series []float64, opts PlotOptions) string {
	if len(series) == 0 {
		return ""
	}
	var options []asciigraph.Option
	if opts.Height > 0 {
		options = append(options, asciigraph.Height(opts.Height))
	}
	if opts.Width > 0 {
		options = append(options, asciigraph.Width(opts.Width))
	}
	if opts.Caption != "" {
		options = append(options, asciigraph.Caption(opts.Caption))
	}
	return asciigraph.Plot(series, options...)
}

// ColumnValues returns a numeric column of a frame as floats.
// Missing values are skipped.
func ColumnValues(df *dataframe.DataFrame, name string) ([]float64, error) {
	s, err := column(df, name)
	if err != nil {
		return nil, err
	}

	out := make([]float64, 0, s.NRows())
	for row := 0; row < s.NRows(); row++ {
		switch v := s.Value(row).(type) {
		case int64:
			out = append(out, float64(v))
		case float64:
			out = append(out, v)
		case nil:
		default:
			return nil, fmt.Errorf("column %s: row %d is %T, not numeric", name, row+1, v)
		}
	}
	return out, nil
}

// StateCount is the number of steps executed in one state.
type StateCount struct {
	State string
	Steps int
}

// Summarize counts steps per state in a trace frame, busiest state first.
func Summarize(df *dataframe.DataFrame) ([]StateCount, error) {
	s, err := column(df, ColState)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for row := 0; row < s.NRows(); row++ {
		if v := s.Value(row); v != nil {
			counts[fmt.Sprint(v)]++
		}
	}

	out := make([]StateCount, 0, len(counts))
	for state, n := range counts {
		out = append(out, StateCount{State: state, Steps: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Steps != out[j].Steps {
			return out[i].Steps > out[j].Steps
		}
		return out[i].State < out[j].State
	})
	return out, nil
}

// WriteSummary renders the per-state step counts of a trace frame.
func WriteSummary(w io.Writer, df *dataframe.DataFrame) error {
	counts, err := Summarize(df)
	if err != nil {
		return err
	}

	total := 0
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"State", "Steps"})
	for _, c := range counts {
		total += c.Steps
		table.Append([]string{c.State, strconv.Itoa(c.Steps)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(total)})
	table.Render()
	return nil
}

// WriteStats renders execution statistics: a header line, then the
// per-opcode counts. Count has one entry per step, so its total equals the
// steps executed. Guarded counts the instructions run by a taken IF.
func WriteStats(w io.Writer, stats *vm.ExecutionStats) {
	fmt.Fprintf(w, "steps %d, transitions %d, tape %d cells, %v\n",
		stats.StepsExecuted, stats.Transitions, stats.MaxTapeLen, stats.Duration)

	seen := make(map[string]bool)
	for op := range stats.OpCounts {
		seen[op] = true
	}
	for op := range stats.GuardedCounts {
		seen[op] = true
	}
	ops := make([]string, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	total, guarded := 0, 0
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Opcode", "Count", "Guarded"})
	for _, op := range ops {
		total += stats.OpCounts[op]
		guarded += stats.GuardedCounts[op]
		table.Append([]string{
			op,
			strconv.Itoa(stats.OpCounts[op]),
			strconv.Itoa(stats.GuardedCounts[op]),
		})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(total), strconv.Itoa(guarded)})
	table.Render()
}

// column looks a series up by name. Parquet round trips may change the
// case of column names, so a case-insensitive match is accepted.
func column(df *dataframe.DataFrame, name string) (dataframe.Series, error) {
	if col, err := df.NameToColumn(name); err == nil {
		return df.Series[col], nil
	}
	for _, s := range df.Series {
		if strings.EqualFold(s.Name(), name) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
}
