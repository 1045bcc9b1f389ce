package main

import (
	"context"
	"fmt"

	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/trace"
	"github.com/akhildatla/hltm/pkg/vm"
)

func (c *cli) dumpCommand(ctx context.Context, args []string) error {
	fs, _ := c.newFlagSet("dump")
	list := fs.Bool("list", false, "treat the argument as a program and print its listing")
	column := fs.String("plot", trace.ColHead, "trace column to plot, empty for none")
	height := fs.Int("height", 10, "plot height")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: hltm dump [-list] <file>")
	}
	path := fs.Arg(0)

	if *list {
		p, err := loader.LoadProgram(path)
		if err != nil {
			return err
		}
		fmt.Fprint(c.stdout, vm.Listing(p))
		m, err := vm.New(p)
		if err != nil {
			return err
		}
		trace.WriteMarkerTable(c.stdout, m.Tape(), p.TapeMarkers)
		return nil
	}

	df, err := loader.LoadTrace(ctx, path)
	if err != nil {
		return err
	}
	if err := trace.WriteSummary(c.stdout, df); err != nil {
		return err
	}
	if *column == "" {
		return nil
	}
	values, err := trace.ColumnValues(df, *column)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, trace.PlotFloats(values, trace.PlotOptions{
		Height:  *height,
		Width:   72,
		Caption: *column,
	}))
	return nil
}
