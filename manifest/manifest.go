// Package manifest handles codel.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
)

// FileName is the manifest file looked for by Load and FindAndLoad.
const FileName = "codel.toml"

// Defaults applied at load time.
const (
	DefaultProgram    = "main.codel"
	DefaultMaxSteps   = 100000
	DefaultPort       = 4700
	DefaultDatabase   = "codel.db"
	DefaultSessionTTL = "30m"
)

// Manifest represents a codel.toml project configuration.
type Manifest struct {
	Program  Program  `toml:"program"`
	Compiler Compiler `toml:"compiler"`
	Run      Run      `toml:"run"`
	Debug    Debug    `toml:"debug"`
	Server   Server   `toml:"server"`
	Log      Log      `toml:"log"`

	// Dir is the directory containing the codel.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program locates the grid and its run inputs.
type Program struct {
	Name     string `toml:"name"`
	Path     string `toml:"path"`
	Input    string `toml:"input"`
	StartRow int    `toml:"start-row"`
	StartCol int    `toml:"start-col"`
	DP       string `toml:"dp"`
	CC       string `toml:"cc"`
}

// Compiler configures compilation.
type Compiler struct {
	MaxTransitions int `toml:"max-transitions"`
}

// Run configures batch execution.
type Run struct {
	MaxSteps  int  `toml:"max-steps"`
	Interpret bool `toml:"interpret"`
}

// Debug configures debug sessions.
type Debug struct {
	// Breakpoints are [row, col] codels; each marks the block containing it.
	Breakpoints [][]int `toml:"breakpoints"`
}

// Server configures the debug server.
type Server struct {
	Port       int    `toml:"port"`
	Database   string `toml:"database"`
	SessionTTL string `toml:"session-ttl"`
}

// Log configures logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no codel.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Program.Path == "" {
		m.Program.Path = DefaultProgram
	}
	if m.Program.DP == "" {
		m.Program.DP = grid.Right.String()
	}
	if m.Program.CC == "" {
		m.Program.CC = grid.ChooseLeft.String()
	}
	if m.Compiler.MaxTransitions <= 0 {
		m.Compiler.MaxTransitions = compiler.DefaultMaxTransitions
	}
	if m.Run.MaxSteps <= 0 {
		m.Run.MaxSteps = DefaultMaxSteps
	}
	if m.Server.Port == 0 {
		m.Server.Port = DefaultPort
	}
	if m.Server.Database == "" {
		m.Server.Database = DefaultDatabase
	}
	if m.Server.SessionTTL == "" {
		m.Server.SessionTTL = DefaultSessionTTL
	}
}

// Load parses a codel.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a codel.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
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
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values that toml decoding cannot.
func (m *Manifest) Validate() error {
	var errs []error
	if _, err := m.CompileOptions(); err != nil {
		errs = append(errs, err)
	}
	if _, err := m.SessionTTL(); err != nil {
		errs = append(errs, err)
	}
	for i, bp := range m.Debug.Breakpoints {
		if len(bp) != 2 {
			errs = append(errs, fmt.Errorf("breakpoint %d: want [row, col], got %v", i, bp))
		}
	}
	return errors.Join(errs...)
}

// CompileOptions returns the compiler options described by the manifest.
func (m *Manifest) CompileOptions() (compiler.Options, error) {
	dp, err := grid.ParseDirection(m.Program.DP)
	if err != nil {
		return compiler.Options{}, fmt.Errorf("program.dp: %w", err)
	}
	cc, err := grid.ParseChooser(m.Program.CC)
	if err != nil {
		return compiler.Options{}, fmt.Errorf("program.cc: %w", err)
	}
	return compiler.Options{
		StartRow:       m.Program.StartRow,
		StartCol:       m.Program.StartCol,
		DP:             dp,
		CC:             cc,
		MaxTransitions: m.Compiler.MaxTransitions,
	}, nil
}

// SessionTTL parses server.session-ttl.
func (m *Manifest) SessionTTL() (time.Duration, error) {
	d, err := time.ParseDuration(m.Server.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("server.session-ttl: %w", err)
	}
	return d, nil
}

// ProgramPath returns the absolute path of the program grid.
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Program.Path)
}

// DatabasePath returns the absolute path of the program library.
func (m *Manifest) DatabasePath() string {
	return m.resolve(m.Server.Database)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
