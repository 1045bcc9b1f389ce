// Package loader reads and writes program descriptions and the tabular
// files produced around a run (initial tape CSV, step traces).
package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/akhildatla/hltm/pkg/vm"
)

// Error definitions
var (
	ErrEmptyFile           = errors.New("empty program file")
	ErrUnknownFormat       = errors.New("unknown program format")
	ErrInvalidProgram      = errors.New("invalid program")
	ErrInvalidTapeIndex    = errors.New("invalid initial tape index")
	ErrInvalidTapeValue    = errors.New("invalid initial tape value")
	ErrMissingInstructions = errors.New("program has no instructions")
)

// Format is a program file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// LoadProgram reads a program description, choosing the decoder from the
// file extension.
func LoadProgram(path string) (*vm.Program, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := DecodeProgram(data, format, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// DecodeProgram decodes a program description. The filename is only used
// in CUE error positions and may be empty.
//
// Initial tape values that are strings are cell labels: the cell is
// created with value 0.
func DecodeProgram(data []byte, format Format, filename string) (*vm.Program, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		p   *vm.Program
		err error
	)
	switch format {
	case FormatJSON:
		p, err = decodeJSON(data)
	case FormatYAML:
		p, err = decodeYAML(data)
	case FormatCUE:
		p, err = decodeCUE(data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if len(p.Instructions) == 0 {
		return nil, ErrMissingInstructions
	}
	if p.TapeMarkers == nil {
		p.TapeMarkers = make(map[string]int)
	}
	return p, nil
}

// SaveProgram writes a program description as JSON or YAML.
func SaveProgram(w io.Writer, p *vm.Program, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(p, "", "    ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = marshalYAML(p)
	default:
		return fmt.Errorf("%w: cannot write %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SaveProgramFile writes a program description to path, choosing the
// encoding from the extension.
func SaveProgramFile(path string, p *vm.Program) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := SaveProgram(f, p, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tapeIndex(key any) (int, error) {
	switch k := key.(type) {
	case int:
		if k >= 0 {
			return k, nil
		}
	case int64:
		if k >= 0 && k <= math.MaxInt32 {
			return int(k), nil
		}
	case uint64:
		if k <= math.MaxInt32 {
			return int(k), nil
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(k)); err == nil && i >= 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidTapeIndex, key)
}

func tapeValue(v any) (int64, error) {
	switch n := v.(type) {
	case nil, string:
		return 0, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<63 {
			return int64(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidTapeValue, v)
}

func initialTape[K comparable](raw map[K]any) (map[int]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tape := make(map[int]int64, len(raw))
	for k, v := range raw {
		idx, err := tapeIndex(k)
		if err != nil {
			return nil, err
		}
		val, err := tapeValue(v)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", idx, err)
		}
		tape[idx] = val
	}
	return tape, nil
}
