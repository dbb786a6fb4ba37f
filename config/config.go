// Package config handles opprof.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/opprof/profiler"
)

// FileName is the name of the configuration file.
const FileName = "opprof.toml"

// Report formats.
const (
	FormatLines     = "lines"
	FormatCallgrind = "callgrind"
)

// DefaultMaxDepth is the frame limit used when [vm] max-depth is unset.
const DefaultMaxDepth = 1024

// Config represents an opprof.toml configuration.
type Config struct {
	Profiler Profiler `toml:"profiler"`
	Report   Report   `toml:"report"`
	Log      Log      `toml:"log"`
	VM       VM       `toml:"vm"`

	// Dir is the directory containing the opprof.toml file (set at load
	// time). Empty when no file was found.
	Dir string `toml:"-"`
}

// Profiler configures profiling sessions.
type Profiler struct {
	InitialCapacity int    `toml:"initial-capacity"`
	Clock           string `toml:"clock"`
}

// Report configures what is written at teardown.
type Report struct {
	Format string `toml:"format"`
	Output string `toml:"output"`

	// Highlight marks the hottest line of each file. Unset means highlight
	// only when writing to a terminal.
	Highlight *bool `toml:"highlight"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// VM configures the interpreter.
type VM struct {
	MaxDepth int `toml:"max-depth"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Profiler: Profiler{
			InitialCapacity: profiler.DefaultCapacity,
			Clock:           "monotonic",
		},
		Report: Report{Format: FormatLines},
		VM:     VM{MaxDepth: DefaultMaxDepth},
	}
}

// Load parses an opprof.toml file from the given directory. Keys missing
// from the file keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find an opprof.toml file, then
// loads and returns the configuration. Returns Default() if no file is
// found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.Profiler.InitialCapacity < 0 {
		return fmt.Errorf("profiler.initial-capacity must not be negative, got %d", c.Profiler.InitialCapacity)
	}
	if _, ok := profiler.ClockByName(c.Profiler.Clock); !ok {
		return fmt.Errorf("profiler.clock: unknown clock %q", c.Profiler.Clock)
	}
	switch c.Report.Format {
	case FormatLines, FormatCallgrind:
	default:
		return fmt.Errorf("report.format: unknown format %q (want %s or %s)", c.Report.Format, FormatLines, FormatCallgrind)
	}
	if c.VM.MaxDepth < 0 {
		return fmt.Errorf("vm.max-depth must not be negative, got %d", c.VM.MaxDepth)
	}
	return nil
}

// Clock returns the configured clock.
func (c *Config) Clock() profiler.Clock {
	clock, _ := profiler.ClockByName(c.Profiler.Clock)
	return clock
}

// OutputPath returns the report destination, resolved against Dir. Empty
// means standard output.
func (c *Config) OutputPath() string {
	return c.resolve(c.Report.Output)
}

// LogPath returns the log file, resolved against Dir. Empty means standard
// error.
func (c *Config) LogPath() string {
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
