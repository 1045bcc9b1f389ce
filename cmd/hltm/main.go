// Package main provides the CLI entry point for hltm, a higher-level
// Turing machine.
//
// Usage:
//
//	hltm run program.json              # Run a program description
//	hltm run -display program.yaml     # Run in the terminal view
//	hltm pi -n 33                      # Compute 33 digits of pi
//	hltm pi -n 10 -o pi10.json         # Write the generated program
//	hltm dump trace.parquet            # Summarize a recorded trace
//	hltm watch program.cue             # Re-run on every save
//	hltm repl program.json             # Step through interactively
//
// Exit status is 0 on ACCEPT, 3 when the instruction budget ran out and 1
// for every other error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/akhildatla/hltm/internal/logs"
	"github.com/akhildatla/hltm/pkg/config"
	"github.com/akhildatla/hltm/pkg/vm"
)

// Version info set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitError        = 1
	exitInconclusive = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	err := c.run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if vm.IsInconclusive(err) {
		return exitInconclusive
	}
	return exitError
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return c.printUsage()
	}

	cmd := args[0]

	switch cmd {
	case "run":
		return c.runCommand(ctx, args[1:])
	case "pi":
		return c.piCommand(ctx, args[1:])
	case "dump":
		return c.dumpCommand(ctx, args[1:])
	case "watch":
		return c.watchCommand(ctx, args[1:])
	case "repl":
		return c.replCommand(args[1:])
	case "version":
		fmt.Fprintf(c.stdout, "hltm version %s\n", version)
		if commit != "none" {
			fmt.Fprintf(c.stdout, "  commit: %s\n", commit)
		}
		if date != "unknown" {
			fmt.Fprintf(c.stdout, "  built:  %s\n", date)
		}
		return nil
	case "help", "-h", "--help":
		return c.printUsage()
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// common holds the flags every machine-running command accepts.
type common struct {
	fs         *flag.FlagSet
	configPath string
	max        int64
	neg        bool
	verbose    bool
	journal    bool
}

func (c *cli) newFlagSet(name string) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	cf := &common{fs: fs}
	fs.StringVar(&cf.configPath, "config", "", "CUE configuration file")
	fs.Int64Var(&cf.max, "max", vm.DefaultMaxInstructions, "instruction budget")
	fs.BoolVar(&cf.neg, "neg", false, "accept negative integer literals")
	fs.BoolVar(&cf.verbose, "v", false, "debug logging")
	fs.BoolVar(&cf.journal, "journal", false, "also log to the systemd journal")
	return fs, cf
}

// setup loads the configuration, lets flags given on the command line
// override it and builds the logger.
func (cf *common) setup(logOut io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadDefault(cf.configPath)
	if err != nil {
		return cfg, nil, err
	}

	cf.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max":
			cfg.MaxInstructions = cf.max
		case "neg":
			cfg.NegativeLiterals = cf.neg
		case "journal":
			cfg.Journal = cf.journal
		}
	})
	if cf.verbose {
		cfg.LogLevel = "debug"
	}

	level, err := logs.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	logger := logs.New(logs.Options{
		Writer:  logOut,
		Level:   level,
		Journal: cfg.Journal,
	})
	return cfg, logger, nil
}

func (c *cli) printUsage() error {
	fmt.Fprintln(c.stdout, `hltm - higher-level Turing machine

Usage:
  hltm <command> [arguments]

Commands:
  run <program>         Run a program description (.json, .yaml, .cue)
  pi                    Generate and run the pi program
  dump <trace>          Summarize and plot a recorded trace (.csv, .json, .parquet)
  watch <program>       Re-run a program whenever the file changes
  repl [program]        Start interactive REPL
  version               Print version information
  help                  Show this help message

Common Options:
  -config <file>        CUE configuration file (default: user config dir)
  -max <n>              Instruction budget (default: 100000)
  -neg                  Accept negative integer literals
  -v                    Debug logging
  -journal              Also log to the systemd journal

Run Options (run, pi, watch):
  -tape <file.csv>      Initial tape cells (index,value)
  -trace <file>         Record every step (.csv, .json, .parquet)
  -stream <file>        Write every step as a JSON line ("-" for stderr)
  -tape-out <file>      Write the final tape (.csv, .json, .parquet)
  -stats                Print execution statistics
  -plot                 Plot the head position over time
  -timeout <d>          Abort after a duration
  -display              Show the run in the terminal view (run, pi)
  -delay <d>            Display step delay (default: config displayDelay)

Pi Options:
  -n <digits>           Digit count (default: 33)
  -o <file>             Write the program instead of running it (.json, .yaml)

Dump Options:
  -list                 Treat the argument as a program and print its listing
  -plot <column>        Plot a trace column (default: head)
  -height <n>           Plot height

Examples:
  hltm pi
  hltm pi -n 50 -max 200000 -stats
  hltm run -trace steps.parquet pi.json
  hltm dump -plot tape_len steps.parquet
  hltm dump -list pi.json
  hltm repl pi.json`)
	return nil
}

// timeoutContext derives a context bounded by d when d is positive.
func timeoutContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// userQuit reports whether err only says the run was interrupted.
func userQuit(err error) bool {
	return errors.Is(err, context.Canceled)
}
