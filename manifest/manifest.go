// Package manifest handles avmrt.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "avmrt.toml"

// Manifest represents an avmrt.toml configuration.
type Manifest struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Log     LogConfig     `toml:"log"`
	Bundles BundleConfig  `toml:"bundles"`
	Layout  LayoutConfig  `toml:"layout"`

	// Dir is the directory containing the avmrt.toml file (set at load time).
	Dir string `toml:"-"`
}

// RuntimeConfig tunes the class runtime.
type RuntimeConfig struct {
	MaxCallDepth int    `toml:"max-call-depth"`
	Interpreter  string `toml:"interpreter"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// BundleConfig lists the class bundles to load.
type BundleConfig struct {
	Paths []string `toml:"paths"`
}

// LayoutConfig locates the slot layout database.
type LayoutConfig struct {
	DB string `toml:"db"`
}

// Default returns the configuration used when no avmrt.toml exists.
// Load decodes over these values, so keys absent from a file keep them.
func Default() *Manifest {
	m := &Manifest{Log: LogConfig{Verbosity: 1}}
	m.applyDefaults()
	return m
}

// applyDefaults fills keys that are present but empty or out of range.
// Verbosity 0 is a valid setting and is left alone.
func (m *Manifest) applyDefaults() {
	if m.Runtime.MaxCallDepth <= 0 {
		m.Runtime.MaxCallDepth = 256
	}
	if m.Runtime.Interpreter == "" {
		m.Runtime.Interpreter = "inert"
	}
	if m.Layout.DB == "" {
		m.Layout.DB = filepath.Join(".avmrt", "layouts.db")
	}
}

// Load parses an avmrt.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if m.Runtime.Interpreter != "" && !KnownInterpreter(m.Runtime.Interpreter) {
		return nil, fmt.Errorf("%s: unknown interpreter %q", path, m.Runtime.Interpreter)
	}

	m.applyDefaults()
	return m, nil
}

// Interpreters lists the accepted values of runtime.interpreter.
var Interpreters = []string{"inert"}

// KnownInterpreter reports whether name is listed in Interpreters.
func KnownInterpreter(name string) bool {
	for _, known := range Interpreters {
		if name == known {
			return true
		}
	}
	return false
}

// FindAndLoad walks up from startDir to find an avmrt.toml file,
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

// BundlePaths returns absolute paths for the configured bundles.
func (m *Manifest) BundlePaths() []string {
	var paths []string
	for _, p := range m.Bundles.Paths {
		paths = append(paths, m.resolve(p))
	}
	return paths
}

// LayoutDBPath returns the absolute path of the layout database.
func (m *Manifest) LayoutDBPath() string {
	return m.resolve(m.Layout.DB)
}

// LogFilePath returns the log file, or "" to log to stderr.
func (m *Manifest) LogFilePath() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
