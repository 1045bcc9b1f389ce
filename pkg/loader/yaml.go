package loader

import (
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/akhildatla/hltm/pkg/vm"
)

type yamlProgram struct {
	Name         string              `yaml:"name"`
	Description  string              `yaml:"description"`
	TapeMarkers  map[string]int      `yaml:"tape_markers"`
	Instructions map[string][]string `yaml:"instructions"`
	InitialTape  map[any]any         `yaml:"initial_tape"`
}

func decodeYAML(data []byte) (*vm.Program, error) {
	var raw yamlProgram
	if err := yaml.Unmarshal(data, &raw); err != nil {
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

func marshalYAML(p *vm.Program) ([]byte, error) {
	return yaml.Marshal(p)
}
