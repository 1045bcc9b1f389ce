// Package embed provides the Go embedding API for hltm.
//
// Pass a program description, get the formatted output.
//
// Basic usage:
//
//	out, err := embed.Execute(&vm.Program{
//	    TapeMarkers: map[string]int{"OUTPUT": 0, "WORK": 3},
//	    Instructions: map[string][]string{
//	        "start": {"MOVE 1", "SET 3", "MOVE 2", "SET 1", "STATE ACCEPT"},
//	    },
//	})
//	// out == "3.1"
//
// From a file, with limits:
//
//	out, err := embed.ExecuteFile("pi.json",
//	    embed.WithTimeout(5*time.Second),
//	    embed.WithMaxInstructions(1_000_000),
//	)
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/pi"
	"github.com/akhildatla/hltm/pkg/vm"
)

// Common errors
var (
	ErrTimeout          = errors.New("execution timeout exceeded")
	ErrInstructionLimit = errors.New("instruction limit exceeded")
	ErrNilProgram       = errors.New("nil program")
)

// Options configures execution behavior.
type Options struct {
	// Timeout sets maximum execution time. Zero means no timeout.
	Timeout time.Duration

	// MaxInstructions is the instruction budget.
	// Zero selects vm.DefaultMaxInstructions.
	MaxInstructions int64

	// NegativeLiterals accepts operands such as "-1" as literals.
	NegativeLiterals bool

	// Tape cells applied over the program's initial tape.
	Tape map[int]int64

	// TapeCSV names an index/value CSV file merged like Tape.
	TapeCSV string

	// Stats collects execution statistics into the Result.
	Stats bool

	Logger    *slog.Logger
	Observers []vm.Observer

	// Context for cancellation. If nil, context.Background() is used.
	Context context.Context
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithTimeout sets execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxInstructions sets the instruction budget.
func WithMaxInstructions(n int64) Option {
	return func(o *Options) {
		o.MaxInstructions = n
	}
}

// WithNegativeLiterals enables signed integer literals.
func WithNegativeLiterals() Option {
	return func(o *Options) {
		o.NegativeLiterals = true
	}
}

// WithTape overrides initial tape cells.
func WithTape(cells map[int]int64) Option {
	return func(o *Options) {
		o.Tape = cells
	}
}

// WithTapeCSV overrides initial tape cells from a CSV file.
func WithTapeCSV(path string) Option {
	return func(o *Options) {
		o.TapeCSV = path
	}
}

// WithStats enables execution statistics.
func WithStats() Option {
	return func(o *Options) {
		o.Stats = true
	}
}

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithObserver registers step observers.
func WithObserver(obs ...vm.Observer) Option {
	return func(o *Options) {
		o.Observers = append(o.Observers, obs...)
	}
}

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// Result is the outcome of an accepted run.
type Result struct {
	Output string
	Steps  int64
	Tape   []int64

	// Stats is nil unless WithStats was given.
	Stats *vm.ExecutionStats
}

// Execute runs a program and returns its output.
func Execute(p *vm.Program, opts ...Option) (string, error) {
	res, err := Run(p, opts...)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// ExecuteFile loads a program description (.json, .yaml, .cue) and runs it.
func ExecuteFile(path string, opts ...Option) (string, error) {
	p, err := loader.LoadProgram(path)
	if err != nil {
		return "", err
	}
	return Execute(p, opts...)
}

// ExecutePi generates the pi program for the given digit count and runs it.
//
// Example:
//
//	out, err := embed.ExecutePi(10)
//	// out == "3.141592653"
func ExecutePi(digits int, opts ...Option) (string, error) {
	p, err := pi.Generate(digits)
	if err != nil {
		return "", err
	}
	return Execute(p, opts...)
}

// Run executes a program with advanced configuration and returns the full
// result.
//
// Example:
//
//	res, err := embed.Run(program,
//	    embed.WithTimeout(5*time.Second),
//	    embed.WithMaxInstructions(10000),
//	    embed.WithStats(),
//	)
func Run(p *vm.Program, opts ...Option) (*Result, error) {
	if p == nil {
		return nil, ErrNilProgram
	}

	// Apply options
	options := &Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(options)
	}

	program, err := withTape(p, options)
	if err != nil {
		return nil, err
	}

	// Setup timeout context
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	machine, err := vm.New(program,
		vm.WithContext(ctx),
		vm.WithMaxInstructions(options.MaxInstructions),
		vm.WithNegativeLiterals(options.NegativeLiterals),
		vm.WithLogger(options.Logger),
		vm.WithObserver(options.Observers...),
	)
	if err != nil {
		return nil, err
	}
	if options.Stats {
		machine.EnableStats()
	}

	out, err := machine.Execute()
	if err != nil {
		// Map machine errors to embed package errors
		switch {
		case errors.Is(err, vm.ErrInstructionBudgetExceeded):
			return nil, fmt.Errorf("%w: %w", ErrInstructionLimit, err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, err
	}

	res := &Result{
		Output: out,
		Steps:  machine.Executed(),
		Tape:   machine.Tape(),
	}
	if options.Stats {
		res.Stats = machine.Stats()
	}
	return res, nil
}

// withTape returns p, or a copy of p with the requested tape cells applied.
func withTape(p *vm.Program, o *Options) (*vm.Program, error) {
	if len(o.Tape) == 0 && o.TapeCSV == "" {
		return p, nil
	}

	cp := *p
	cp.InitialTape = maps.Clone(p.InitialTape)
	if cp.InitialTape == nil {
		cp.InitialTape = make(map[int]int64)
	}
	if o.TapeCSV != "" {
		cells, err := loader.LoadTapeCSV(o.TapeCSV)
		if err != nil {
			return nil, err
		}
		maps.Copy(cp.InitialTape, cells)
	}
	maps.Copy(cp.InitialTape, o.Tape)
	return &cp, nil
}
