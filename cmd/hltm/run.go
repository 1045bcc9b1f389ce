package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akhildatla/hltm/pkg/config"
	"github.com/akhildatla/hltm/pkg/display"
	"github.com/akhildatla/hltm/pkg/embed"
	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/pi"
	"github.com/akhildatla/hltm/pkg/trace"
	"github.com/akhildatla/hltm/pkg/vm"
)

// runFlags are the options of a single run.
type runFlags struct {
	tape    string
	trace   string
	stream  string
	tapeOut string
	stats   bool
	plot    bool
	timeout time.Duration
	display bool
	delay   time.Duration
}

func addRunFlags(fs *flag.FlagSet, withDisplay bool) *runFlags {
	rf := &runFlags{delay: -1}
	fs.StringVar(&rf.tape, "tape", "", "initial tape CSV (index,value)")
	fs.StringVar(&rf.trace, "trace", "", "record every step to a file")
	fs.StringVar(&rf.stream, "stream", "", `write every step as a JSON line, "-" for stderr`)
	fs.StringVar(&rf.tapeOut, "tape-out", "", "write the final tape to a file")
	fs.BoolVar(&rf.stats, "stats", false, "print execution statistics")
	fs.BoolVar(&rf.plot, "plot", false, "plot the head position over time")
	fs.DurationVar(&rf.timeout, "timeout", 0, "abort the run after a duration")
	if withDisplay {
		fs.BoolVar(&rf.display, "display", false, "show the run in the terminal view")
		fs.DurationVar(&rf.delay, "delay", -1, "display step delay")
	}
	return rf
}

func (c *cli) runCommand(ctx context.Context, args []string) error {
	fs, cf := c.newFlagSet("run")
	rf := addRunFlags(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: hltm run <program.json|yaml|cue>")
	}

	p, err := loader.LoadProgram(fs.Arg(0))
	if err != nil {
		return err
	}
	return c.execute(ctx, cf, rf, p)
}

func (c *cli) piCommand(ctx context.Context, args []string) error {
	fs, cf := c.newFlagSet("pi")
	rf := addRunFlags(fs, true)
	digits := fs.Int("n", pi.DefaultDigits, "digit count")
	output := fs.String("o", "", "write the program instead of running it (.json, .yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := pi.Generate(*digits)
	if err != nil {
		return err
	}
	if *output != "" {
		if err := loader.SaveProgramFile(*output, p); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Wrote %s (%d states) to %s\n", p.Name, len(p.Instructions), *output)
		return nil
	}
	return c.execute(ctx, cf, rf, p)
}

// execute runs p with the configured options and reports the result.
func (c *cli) execute(ctx context.Context, cf *common, rf *runFlags, p *vm.Program) error {
	logOut := c.stderr
	var view *display.Display
	if rf.display {
		view = display.New(p.TapeMarkers)
		logOut = view.LogWriter()
	}

	cfg, logger, err := cf.setup(logOut)
	if err != nil {
		return err
	}

	opts := []embed.Option{
		embed.WithContext(ctx),
		embed.WithMaxInstructions(cfg.MaxInstructions),
		embed.WithTimeout(rf.timeout),
		embed.WithLogger(logger),
	}
	if cfg.NegativeLiterals {
		opts = append(opts, embed.WithNegativeLiterals())
	}
	if rf.tape != "" {
		opts = append(opts, embed.WithTapeCSV(rf.tape))
	}
	if rf.stats {
		opts = append(opts, embed.WithStats())
	}

	var rec *trace.Recorder
	if rf.trace != "" || rf.plot {
		rec = trace.NewRecorder()
		opts = append(opts, embed.WithObserver(rec))
	}
	if rf.stream != "" {
		w, closeStream, err := c.openStream(rf.stream)
		if err != nil {
			return err
		}
		defer closeStream()
		opts = append(opts, embed.WithObserver(trace.NewStream(w, false)))
	}

	var res *embed.Result
	if view != nil {
		delay := rf.delay
		if delay < 0 {
			delay = cfg.DisplayDelay
		}
		view.SetDelay(delay)
		res, err = runInDisplay(ctx, view, p, rf.timeout, opts)
		if userQuit(err) {
			return nil
		}
	} else {
		res, err = embed.Run(p, opts...)
	}

	// A trace of a failed run is kept, it shows where it went wrong.
	if rec != nil && rf.trace != "" && rec.Len() > 0 {
		path := tracePath(rf.trace, cfg)
		if werr := trace.WriteFile(ctx, path, rec.Frame()); werr != nil {
			logger.Error("write trace", "path", path, "error", werr)
		} else {
			logger.Info("trace written", "path", path, "steps", rec.Len())
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, res.Output)

	if rf.stats && res.Stats != nil {
		trace.WriteStats(c.stdout, res.Stats)
	}
	if rf.plot && rec != nil {
		fmt.Fprintln(c.stdout, trace.Plot(rec.HeadPositions(), trace.PlotOptions{
			Height:  12,
			Width:   72,
			Caption: "head position",
		}))
	}
	if rf.tapeOut != "" {
		if err := trace.WriteFile(ctx, tracePath(rf.tapeOut, cfg), trace.TapeFrame(res.Tape, true)); err != nil {
			return err
		}
	}
	return nil
}

// runInDisplay runs the machine and the terminal view side by side. Quitting
// the view cancels the run. The timeout also ends a paused run.
func runInDisplay(ctx context.Context, view *display.Display, p *vm.Program, timeout time.Duration, opts []embed.Option) (*embed.Result, error) {
	ctx, cancel := timeoutContext(ctx, timeout)
	defer cancel()

	var (
		res    *embed.Result
		runErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	view.SetContext(gctx)
	g.Go(func() error {
		defer cancel()
		return view.Run()
	})
	g.Go(func() error {
		res, runErr = embed.Run(p, append(opts, embed.WithContext(gctx), embed.WithObserver(view))...)
		if userQuit(runErr) {
			return nil
		}
		var out string
		if res != nil {
			out = res.Output
		}
		view.Finish(out, runErr)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, runErr
}

// tracePath appends the configured trace format to paths without an
// extension.
func tracePath(path string, cfg config.Config) string {
	if filepath.Ext(path) == "" {
		return path + "." + cfg.TraceFormat
	}
	return path
}

func (c *cli) openStream(path string) (io.Writer, func(), error) {
	if path == "-" {
		return c.stderr, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// machineOptions turns a configuration into machine options for commands
// that drive the machine directly.
func machineOptions(cfg config.Config, logger *slog.Logger) []vm.Option {
	return append(cfg.MachineOptions(), vm.WithLogger(logger))
}
