package pi

import (
	"errors"
	"strings"
	"testing"

	"github.com/akhildatla/hltm/pkg/vm"
)

const piDigits = "3.14159265358979323846264338327950288419716939937510"

func run(t *testing.T, n int, opts ...vm.Option) (*vm.Machine, string, error) {
	t.Helper()
	p, err := Generate(n)
	if err != nil {
		t.Fatalf("Generate(%d) failed: %v", n, err)
	}
	m, err := vm.New(p, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	out, err := m.Execute()
	return m, out, err
}

func expected(n int) string {
	if n == 1 {
		return "3."
	}
	return piDigits[:n+1]
}

func TestGenerate_Digits(t *testing.T) {
	tests := []struct {
		n     int
		steps int64
	}{
		{1, 204},
		{2, 469},
		{3, 919},
		{5, 2025},
		{10, 7083},
		{20, 25996},
		{DefaultDigits, 69029},
	}

	for _, tt := range tests {
		m, out, err := run(t, tt.n)
		if err != nil {
			t.Fatalf("n=%d: Execute failed: %v", tt.n, err)
		}
		if out != expected(tt.n) {
			t.Errorf("n=%d: expected %q, got %q", tt.n, expected(tt.n), out)
		}
		if m.Executed() != tt.steps {
			t.Errorf("n=%d: expected %d steps, got %d", tt.n, tt.steps, m.Executed())
		}
	}
}

func TestGenerate_AllDigitCountsWithLargeBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long run in short mode")
	}
	for n := 1; n <= 50; n++ {
		_, out, err := run(t, n, vm.WithMaxInstructions(10_000_000))
		if err != nil {
			t.Fatalf("n=%d: Execute failed: %v", n, err)
		}
		if out != expected(n) {
			t.Errorf("n=%d: expected %q, got %q", n, expected(n), out)
		}
	}
}

func TestGenerate_BudgetBoundary(t *testing.T) {
	if _, out, err := run(t, MaxDigitsWithinDefaultBudget); err != nil || out != expected(MaxDigitsWithinDefaultBudget) {
		t.Errorf("n=%d should finish within the default budget: %q, %v", MaxDigitsWithinDefaultBudget, out, err)
	}

	_, _, err := run(t, MaxDigitsWithinDefaultBudget+1)
	if !errors.Is(err, vm.ErrInstructionBudgetExceeded) {
		t.Fatalf("expected ErrInstructionBudgetExceeded, got %v", err)
	}
}

func TestGenerate_InvalidDigits(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := Generate(n); !errors.Is(err, ErrInvalidDigits) {
			t.Errorf("Generate(%d): expected ErrInvalidDigits, got %v", n, err)
		}
	}
}

func TestGenerate_NoNegativeLiterals(t *testing.T) {
	p, err := Generate(DefaultDigits)
	if err != nil {
		t.Fatal(err)
	}
	for state, lines := range p.Instructions {
		for pc, line := range lines {
			for _, tok := range strings.Fields(line) {
				if strings.HasPrefix(tok, "-") {
					t.Errorf("%s[%d] %q uses a negative literal", state, pc, line)
				}
			}
		}
	}
}

func TestLayout(t *testing.T) {
	l := NewLayout(DefaultDigits)

	if l.ArrayLength != 111 {
		t.Errorf("expected array length 111, got %d", l.ArrayLength)
	}
	if l.Predigit != l.ArrayEnd+1 || l.Output != l.Nines+1 {
		t.Errorf("markers are not contiguous: %+v", l)
	}
	// OUTPUT+1 .. WORK-1 holds exactly the requested digits.
	if got := l.Work - (l.Output + 1); got != DefaultDigits {
		t.Errorf("expected %d output cells, got %d", DefaultDigits, got)
	}

	markers := l.Markers()
	if markers[vm.OutputMarker] != l.Output || markers[vm.WorkMarker] != l.Work || markers["COUNTER"] != l.Work {
		t.Errorf("unexpected markers: %v", markers)
	}
}

func TestGenerate_EveryStateTerminates(t *testing.T) {
	p, err := Generate(5)
	if err != nil {
		t.Fatal(err)
	}
	for state, lines := range p.Instructions {
		last, err := vm.Decode(lines[len(lines)-1])
		if err != nil {
			t.Fatalf("%s: %v", state, err)
		}
		if last.Op != vm.OpState {
			t.Errorf("%s does not end with a STATE transition: %q", state, lines[len(lines)-1])
		}
	}
}
