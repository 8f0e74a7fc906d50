// Package config loads refscope settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the working directory.
const FileName = ".refscope.toml"

// EmbeddedPrefix marks a loader script shipped inside the binary, as in
// `script = "embedded:loaders/bundler.risor"`.
const EmbeddedPrefix = "embedded:"

type Config struct {
	Project Project `toml:"project"`
	Sandbox Sandbox `toml:"sandbox"`
	Loader  Loader  `toml:"loader"`
	Output  Output  `toml:"output"`
}

// Project controls root detection and which files are loaded.
type Project struct {
	Manifest         string   `toml:"manifest"`
	Extensions       []string `toml:"extensions"`
	DefaultExcludes  []string `toml:"default_excludes"`
	RespectGitignore bool     `toml:"respect_gitignore"`
}

// Sandbox describes the test fixture layout `<marker>/.../<input_dir>/`.
type Sandbox struct {
	InputDir string   `toml:"input_dir"`
	Markers  []string `toml:"markers"`
}

// Loader configures which calls count as runtime module loads.
type Loader struct {
	Functions     []string `toml:"functions"`
	DynamicImport bool     `toml:"dynamic_import"`
	Script        string   `toml:"script"`
}

type Output struct {
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Project: Project{
			Manifest:         "tsconfig.json",
			Extensions:       []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
			DefaultExcludes:  []string{"node_modules", "dist", "build", "coverage"},
			RespectGitignore: true,
		},
		Sandbox: Sandbox{
			InputDir: "input",
			Markers:  []string{"fixtures", "__fixtures__", "testdata"},
		},
		Loader: Loader{
			Functions:     []string{"require"},
			DynamicImport: true,
		},
		Output: Output{Format: "json"},
	}
}

// Load reads the config at path on top of the defaults. Keys that do not
// map to a setting are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if s := cfg.Loader.Script; s != "" && !strings.HasPrefix(s, EmbeddedPrefix) && !filepath.IsAbs(s) {
		cfg.Loader.Script = filepath.Join(filepath.Dir(path), cfg.Loader.Script)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads FileName from dir, falling back to the defaults when the
// file does not exist.
func Discover(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks settings that would otherwise fail later in confusing
// ways.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Project.Manifest) == "" {
		return errors.New("project.manifest must not be empty")
	}
	if len(c.Project.Extensions) == 0 {
		return errors.New("project.extensions must not be empty")
	}
	for _, ext := range c.Project.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("project.extensions: %q must start with a dot", ext)
		}
	}
	if strings.TrimSpace(c.Sandbox.InputDir) == "" {
		return errors.New("sandbox.input_dir must not be empty")
	}
	if !slices.Contains([]string{"json", "text"}, c.Output.Format) {
		return fmt.Errorf("output.format must be one of: json, text (got %q)", c.Output.Format)
	}
	return nil
}

// IsSourceExtension reports whether ext is one of the configured source
// extensions.
func (c *Config) IsSourceExtension(ext string) bool {
	return slices.Contains(c.Project.Extensions, ext)
}
