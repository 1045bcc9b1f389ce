// Package config loads the command line configuration from CUE files.
//
// A configuration file is a CUE struct with these optional fields:
//
//	maxInstructions:  200000
//	negativeLiterals: true
//	logLevel:         "debug"
//	journal:          false
//	traceFormat:      "parquet"
//	displayDelay:     "20ms"
//
// Later files override earlier ones, field by field.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/akhildatla/hltm/pkg/vm"
)

// ErrInvalidConfig is returned for files that do not satisfy the schema.
var ErrInvalidConfig = errors.New("invalid configuration")

// Schema is the CUE schema every configuration file is unified with.
const Schema = `
maxInstructions?:  int & >=0
negativeLiterals?: bool
logLevel?:         "debug" | "info" | "warn" | "error"
journal?:          bool
traceFormat?:      "csv" | "json" | "parquet"
displayDelay?:     =~"^[0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h)$"
`

// Config holds the settings shared by the subcommands.
type Config struct {
	MaxInstructions  int64
	NegativeLiterals bool
	LogLevel         string
	Journal          bool
	TraceFormat      string
	DisplayDelay     time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxInstructions: vm.DefaultMaxInstructions,
		LogLevel:        "info",
		TraceFormat:     "csv",
		DisplayDelay:    50 * time.Millisecond,
	}
}

// file mirrors Config with optional fields, so absent fields keep the
// value from the previous layer.
type file struct {
	MaxInstructions  *int64  `json:"maxInstructions"`
	NegativeLiterals *bool   `json:"negativeLiterals"`
	LogLevel         *string `json:"logLevel"`
	Journal          *bool   `json:"journal"`
	TraceFormat      *string `json:"traceFormat"`
	DisplayDelay     *string `json:"displayDelay"`
}

// DefaultPath is the per-user configuration file, which may not exist.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hltm", "config.cue")
}

// Load applies the given files over Default.
func Load(paths ...string) (Config, error) {
	cfg := Default()

	ctx := cuecontext.New()
	schema := ctx.CompileString("close({" + Schema + "})")
	if err := schema.Err(); err != nil {
		return cfg, err
	}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := cfg.apply(ctx, schema, content, path); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cfg, nil
}

// LoadDefault loads DefaultPath when it exists, then the explicit file if
// one is given.
func LoadDefault(explicit string) (Config, error) {
	var paths []string
	if p := DefaultPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	if explicit != "" {
		paths = append(paths, explicit)
	}
	return Load(paths...)
}

func (c *Config) apply(ctx *cue.Context, schema cue.Value, content []byte, path string) error {
	value := ctx.CompileBytes(content, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var f file
	if err := value.Decode(&f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if f.MaxInstructions != nil {
		c.MaxInstructions = *f.MaxInstructions
	}
	if f.NegativeLiterals != nil {
		c.NegativeLiterals = *f.NegativeLiterals
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.Journal != nil {
		c.Journal = *f.Journal
	}
	if f.TraceFormat != nil {
		c.TraceFormat = *f.TraceFormat
	}
	if f.DisplayDelay != nil {
		d, err := time.ParseDuration(*f.DisplayDelay)
		if err != nil {
			return fmt.Errorf("%w: displayDelay: %v", ErrInvalidConfig, err)
		}
		c.DisplayDelay = d
	}
	return nil
}

// MachineOptions returns the machine options the configuration implies.
func (c Config) MachineOptions() []vm.Option {
	return []vm.Option{
		vm.WithMaxInstructions(c.MaxInstructions),
		vm.WithNegativeLiterals(c.NegativeLiterals),
	}
}
