// Package config loads and validates the optional .clicheck YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/clicheck/internal/logging"
	"github.com/deixis/clicheck/internal/runner"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".clicheck"

// Default values for runner configuration.
const (
	DefaultTimeout   = 5 * time.Minute
	DefaultMaxOutput = 64 << 20 // 64 MiB per stream

	// UnlimitedOutput as max_output keeps every byte of output.
	UnlimitedOutput = -1
)

// Config holds the parsed .clicheck configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int            `yaml:"version"`
	RawTimeout   string         `yaml:"timeout"`    // e.g. "5m", "30s"; "0" disables
	RawMaxOutput int            `yaml:"max_output"` // bytes per stream; -1 is unlimited
	RawWaitDelay string         `yaml:"wait_delay"` // grace period after kill
	RawEncoding  string         `yaml:"encoding"`   // WHATWG encoding label
	Log          logging.Config `yaml:"log"`
	Suites       []string       `yaml:"suites"` // relative to the config root
}

// Timeout returns the configured timeout or the default. An explicit "0"
// disables the deadline.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d >= 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
// It returns 0, which the runner treats as no cap, for UnlimitedOutput.
func (c *Config) MaxOutputBytes() int {
	switch {
	case c.RawMaxOutput == UnlimitedOutput:
		return 0
	case c.RawMaxOutput > 0:
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// WaitDelay returns the configured wait delay or the runner default.
func (c *Config) WaitDelay() time.Duration {
	if c.RawWaitDelay != "" {
		d, err := time.ParseDuration(c.RawWaitDelay)
		if err == nil && d > 0 {
			return d
		}
	}
	return runner.DefaultWaitDelay
}

// Encoding returns the configured output encoding or UTF-8.
func (c *Config) Encoding() string {
	if c.RawEncoding != "" {
		return c.RawEncoding
	}
	return runner.DefaultEncoding
}

// Validate reports malformed values that the accessors would otherwise
// silently replace with defaults.
func (c *Config) Validate() error {
	var errs []error
	for _, d := range []struct{ key, raw string }{
		{"timeout", c.RawTimeout},
		{"wait_delay", c.RawWaitDelay},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
		} else if v < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", d.key))
		}
	}
	if c.RawMaxOutput < UnlimitedOutput {
		errs = append(errs, fmt.Errorf("max_output: must be positive, or -1 for unlimited"))
	}
	if _, err := runner.LookupEncoding(c.RawEncoding); err != nil {
		errs = append(errs, fmt.Errorf("encoding: %w", err))
	}
	if c.Log.Level != "" {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Runner returns a runner configured from c, rooted at dir.
func (c *Config) Runner(dir string) *runner.Runner {
	return &runner.Runner{
		Dir:       dir,
		Timeout:   c.Timeout(),
		MaxOutput: c.MaxOutputBytes(),
		WaitDelay: c.WaitDelay(),
		Encoding:  c.Encoding(),
	}
}

// SuitePaths returns the configured suite files as absolute paths.
func (c *Config) SuitePaths(root string) []string {
	paths := make([]string, 0, len(c.Suites))
	for _, s := range c.Suites {
		if !filepath.IsAbs(s) {
			s = filepath.Join(root, s)
		}
		paths = append(paths, s)
	}
	return paths
}

// LoadResult holds the parsed config and the discovered root.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .clicheck or .git; falls back to dir
}

// Load reads the .clicheck file for dir. The root is discovered by walking
// upward from dir to the first directory containing .clicheck or .git.
// If no .clicheck file exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	root, err := findRoot(dir)
	if err != nil {
		// Nothing found; use dir as root.
		root = dir
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, Root: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findRoot walks upward from dir looking for a directory containing
// .clicheck or .git.
func findRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range []string{FileName, ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
