package loader

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/akhildatla/hltm/pkg/vm"
)

// jsonProgram mirrors vm.Program with a loosely typed initial tape so that
// string cell labels and exact integers both decode.
type jsonProgram struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	TapeMarkers  map[string]int      `json:"tape_markers"`
	Instructions map[string][]string `json:"instructions"`
	InitialTape  map[string]any      `json:"initial_tape"`
}

func decodeJSON(data []byte) (*vm.Program, error) {
	var raw jsonProgram
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}

	tape, err := initialTape(raw.InitialTape)
	if err != nil {
		return nil, err
	}
	return &vm.Program{
		Name:         raw.Name,
		Description:  raw.Description,
		TapeMarkers:  raw.TapeMarkers,
		Instructions: raw.Instructions,
		InitialTape:  tape,
	}, nil
}
