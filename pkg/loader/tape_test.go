package loader

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/akhildatla/hltm/internal/testutil"
)

func TestLoadTapeCSV(t *testing.T) {
	path := testutil.TempFile(t, testutil.TapeCSV(), ".csv")

	tape, err := LoadTapeCSV(path)
	if err != nil {
		t.Fatalf("LoadTapeCSV failed: %v", err)
	}
	want := map[int]int64{0: 3, 4: -1, 9: 42}
	if diff := cmp.Diff(want, tape); diff != "" {
		t.Errorf("tape mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTapeCSV_FeedsMachine(t *testing.T) {
	p := testutil.CountdownProgram()
	tape, err := LoadTapeCSV(testutil.TempFile(t, "index,value\n0,5\n", ".csv"))
	if err != nil {
		t.Fatalf("LoadTapeCSV failed: %v", err)
	}
	p.InitialTape = tape

	m := testutil.MustNew(t, p)
	if _, err := m.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// Two more loop iterations than the default countdown from 3.
	testutil.AssertInt64Equal(t, 28, m.Executed())
}

func TestLoadTapeCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"missing value column", "index,other\n1,2\n", ErrMissingColumn},
		{"missing index column", "value\n1\n", ErrMissingColumn},
		{"empty cell", "index,value\n1,\n", ErrMissingCell},
		{"negative index", "index,value\n-1,2\n", ErrInvalidTapeIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.TempFile(t, tt.content, ".csv")
			if _, err := LoadTapeCSV(path); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadTapeCSV_FileNotFound(t *testing.T) {
	if _, err := LoadTapeCSV("/nonexistent/path/tape.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTapeFromFrame(t *testing.T) {
	tape, err := TapeFromFrame(testutil.MakeTapeFrame())
	if err != nil {
		t.Fatalf("TapeFromFrame failed: %v", err)
	}
	if len(tape) != 3 || tape[9] != 42 {
		t.Errorf("unexpected tape: %v", tape)
	}
}
