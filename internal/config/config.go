// Package config loads and validates the optional .testpilot YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for executor configuration.
const (
	DefaultTimeout   = 30 * time.Minute
	DefaultMaxOutput = 4 << 20 // 4 MiB
)

// Default report-store settings.
const (
	DefaultReportDir = "test-results"
	DefaultHistory   = 5
)

// Config holds the parsed .testpilot configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int               `yaml:"version"`
	RawTimeout   string            `yaml:"timeout"`    // e.g. "30m", "90s"
	RawMaxOutput int               `yaml:"max_output"` // bytes
	Tool         ToolConfig        `yaml:"tool"`
	Env          map[string]string `yaml:"env"` // overrides applied to every run
	Watch        WatchConfig       `yaml:"watch"`
	Report       ReportConfig      `yaml:"report"`
	Artifacts    ArtifactsConfig   `yaml:"artifacts"`
}

// Timeout returns the configured run timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ToolConfig describes how the external test tool is invoked.
type ToolConfig struct {
	Executable string   `yaml:"executable"` // default: python3
	Args       []string `yaml:"args"`       // default: -m pytest
	BaseArgs   []string `yaml:"base_args"`  // default: tests/
}

// Invocation returns the base argv for the test tool, before any profile
// arguments are appended.
func (t *ToolConfig) Invocation() []string {
	var argv []string
	if t.Executable != "" {
		argv = append([]string{t.Executable}, t.Args...)
	} else {
		argv = []string{"python3", "-m", "pytest"}
	}
	if len(t.BaseArgs) > 0 {
		argv = append(argv, t.BaseArgs...)
	} else {
		argv = append(argv, "tests/")
	}
	return argv
}

// WatchConfig controls the continuous (watch) mode.
type WatchConfig struct {
	Dir      string   `yaml:"dir"`      // default: tests
	Patterns []string `yaml:"patterns"` // default: ["*.py"]
	Profile  string   `yaml:"profile"`  // default: smoke
}

// WatchDir returns the configured watch directory, falling back to "tests".
func (w *WatchConfig) WatchDir() string {
	if w.Dir != "" {
		return w.Dir
	}
	return "tests"
}

// WatchPatterns returns the configured glob patterns, falling back to *.py.
func (w *WatchConfig) WatchPatterns() []string {
	if len(w.Patterns) > 0 {
		return w.Patterns
	}
	return []string{"*.py"}
}

// WatchProfile returns the profile spec triggered on change, default smoke.
func (w *WatchConfig) WatchProfile() string {
	if w.Profile != "" {
		return w.Profile
	}
	return "smoke"
}

// ReportConfig controls report rendering and run-history storage.
type ReportConfig struct {
	Dir     string `yaml:"dir"`     // default: test-results
	History int    `yaml:"history"` // in-memory LRU capacity, default 5
}

// ReportDir returns the directory for stored runs and reports.
func (r *ReportConfig) ReportDir() string {
	if r.Dir != "" {
		return r.Dir
	}
	return DefaultReportDir
}

// HistorySize returns the in-memory run-history capacity.
func (r *ReportConfig) HistorySize() int {
	if r.History > 0 {
		return r.History
	}
	return DefaultHistory
}

// ArtifactsConfig lists directories ensured before each run. The test suite
// writes screenshots, videos, traces and HAR captures into them.
type ArtifactsConfig struct {
	Dirs []string `yaml:"dirs"`
}

// DefaultArtifactDirs are created when no dirs are configured.
var DefaultArtifactDirs = []string{
	"test-results/screenshots",
	"test-results/videos",
	"test-results/traces",
	"test-results/har",
}

// ArtifactDirs returns the configured artifact directories or the defaults.
func (a *ArtifactsConfig) ArtifactDirs() []string {
	if len(a.Dirs) > 0 {
		return a.Dirs
	}
	return DefaultArtifactDirs
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing a pytest marker file; falls back to workspace
}

// rootMarkers identify the root of a test repository, in priority order.
var rootMarkers = []string{"pytest.ini", "pyproject.toml", "setup.cfg", "conftest.py"}

// Load reads the .testpilot file from the repository root.
// The repository root is discovered by walking upward from workspace looking
// for a pytest marker file. If no .testpilot file exists, a default Config
// is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		// No marker found; use workspace as root.
		root = workspace
	}

	path := filepath.Join(root, ".testpilot")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, RepoRoot: root}, nil
		}
		return nil, fmt.Errorf("reading .testpilot: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .testpilot: %w", err)
	}
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// findRepoRoot walks upward from dir looking for a pytest marker file.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no pytest marker file found")
		}
		dir = parent
	}
}
