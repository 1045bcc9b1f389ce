package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/akhildatla/hltm/pkg/loader"
)

func (c *cli) watchCommand(ctx context.Context, args []string) error {
	fs, cf := c.newFlagSet("watch")
	rf := addRunFlags(fs, false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: hltm watch <program.json|yaml|cue>")
	}

	file, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(file)); err != nil {
		return err
	}

	runOnce := func() {
		fmt.Fprintf(c.stdout, "--- %s %s\n", filepath.Base(file), time.Now().Format(time.TimeOnly))
		p, err := loader.LoadProgram(file)
		if err == nil {
			err = c.execute(ctx, cf, rf, p)
		}
		if err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
		}
	}
	runOnce()

	var rerun <-chan time.Time
	for {
		select {
		case ev := <-watcher.Event:
			if filepath.Clean(ev.Name) == file && !ev.IsAttrib() {
				rerun = time.After(100 * time.Millisecond)
			}
		case err := <-watcher.Error:
			fmt.Fprintf(c.stderr, "watch: %v\n", err)
		case <-rerun:
			rerun = nil
			runOnce()
		case <-ctx.Done():
			return nil
		}
	}
}
