package loader

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/akhildatla/hltm/pkg/vm"
)

// programSchema constrains CUE program files. Initial tape labels must be
// decimal indices and values integers.
const programSchema = `
name?:        string
description?: string
tape_markers: [string]: int & >=0
instructions: [string]: [...string]
initial_tape?: [=~"^[0-9]+$"]: int
`

type cueProgram struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	TapeMarkers  map[string]int      `json:"tape_markers"`
	Instructions map[string][]string `json:"instructions"`
	InitialTape  map[string]int64    `json:"initial_tape"`
}

func decodeCUE(data []byte, filename string) (*vm.Program, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString("close({" + programSchema + "})")
	if err := schema.Err(); err != nil {
		return nil, err
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}

	var raw cueProgram
	if err := value.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}

	tape := make(map[string]any, len(raw.InitialTape))
	for k, v := range raw.InitialTape {
		tape[k] = v
	}
	initial, err := initialTape(tape)
	if err != nil {
		return nil, err
	}
	return &vm.Program{
		Name:         raw.Name,
		Description:  raw.Description,
		TapeMarkers:  raw.TapeMarkers,
		Instructions: raw.Instructions,
		InitialTape:  initial,
	}, nil
}
