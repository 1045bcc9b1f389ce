package main

import (
	"fmt"

	"github.com/akhildatla/hltm/pkg/loader"
	"github.com/akhildatla/hltm/pkg/repl"
)

func (c *cli) replCommand(args []string) error {
	fs, cf := c.newFlagSet("repl")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("usage: hltm repl [program]")
	}

	cfg, logger, err := cf.setup(c.stderr)
	if err != nil {
		return err
	}

	r := repl.New(machineOptions(cfg, logger)...)
	if fs.NArg() == 1 {
		path := fs.Arg(0)
		p, err := loader.LoadProgram(path)
		if err != nil {
			return err
		}
		if err := r.SetProgram(p, path); err != nil {
			return err
		}
	}

	r.Start(c.stdin, c.stdout)
	return nil
}
