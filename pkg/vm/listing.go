package vm

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Listing renders a program as a numbered listing, one block per state.
// The start state comes first, the remaining states in name order.
// Lines that do not decode are kept and flagged so the listing can be used
// to inspect broken programs.
func Listing(p *Program) string {
	var buf bytes.Buffer

	total := 0
	for _, lines := range p.Instructions {
		total += len(lines)
	}
	fmt.Fprintf(&buf, "; %d states, %d instructions, %d markers\n",
		len(p.Instructions), total, len(p.TapeMarkers))

	markers := slices.Collect(maps.Keys(p.TapeMarkers))
	sort.Slice(markers, func(i, j int) bool {
		a, b := p.TapeMarkers[markers[i]], p.TapeMarkers[markers[j]]
		if a != b {
			return a < b
		}
		return markers[i] < markers[j]
	})
	for _, name := range markers {
		fmt.Fprintf(&buf, "; %-12s = %d\n", name, p.TapeMarkers[name])
	}

	for _, state := range StateOrder(p.Instructions) {
		fmt.Fprintf(&buf, "\n%s:\n", state)
		for pc, line := range p.Instructions[state] {
			inst, err := Decode(line)
			if err != nil {
				fmt.Fprintf(&buf, "%04d: %s\t; %v\n", pc, line, err)
				continue
			}
			fmt.Fprintf(&buf, "%04d: %s\n", pc, inst)
		}
	}
	return buf.String()
}

// StateOrder returns the state names of an instruction table with the start
// state first and the rest sorted.
func StateOrder(instructions map[string][]string) []string {
	states := slices.Sorted(maps.Keys(instructions))
	if i := slices.Index(states, StartState); i > 0 {
		states = append([]string{StartState}, slices.Delete(states, i, i+1)...)
	}
	return states
}
