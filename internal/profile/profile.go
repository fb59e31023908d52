// Package profile defines the catalog of named run profiles: presets of
// command-line arguments (and environment overrides) for the external test
// tool. The catalog is static; lookups return copies so callers can never
// mutate a preset.
package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Profile is a named preset appended to the base test-tool invocation.
type Profile struct {
	Name string
	Args []string
	Env  map[string]string
}

// Defaults for the parameterized profiles.
const (
	DefaultWorkers     = 4
	DefaultMinCoverage = 80
)

// BrowserEnvVar is the environment variable the test suite reads to select
// a browser.
const BrowserEnvVar = "PLAYWRIGHT_BROWSER"

// KnownBrowsers are the browser names the underlying driver ships with.
// Other identifiers pass through unvalidated.
var KnownBrowsers = []string{"chromium", "firefox", "webkit"}

// fixed holds the profiles that take no parameters.
var fixed = map[string]Profile{
	"smoke":       {Name: "smoke", Args: []string{"-m", "smoke", "-v"}},
	"api":         {Name: "api", Args: []string{"-m", "api", "-v"}},
	"ui":          {Name: "ui", Args: []string{"-m", "ui", "-v"}},
	"integration": {Name: "integration", Args: []string{"-m", "integration", "-v"}},
	"performance": {Name: "performance", Args: []string{"-m", "slow", "-v", "--tb=short"}},
}

// Smoke returns the smoke-marker profile.
func Smoke() Profile { return clone(fixed["smoke"]) }

// Parallel returns a profile that distributes tests across workers.
// Workers below 1 fall back to DefaultWorkers.
func Parallel(workers int) Profile {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return Profile{
		Name: "parallel",
		Args: []string{"-n", strconv.Itoa(workers), "-v"},
	}
}

// Coverage returns a profile that collects coverage and fails the run when
// it drops below minPercent. Values outside 0–100 fall back to
// DefaultMinCoverage.
func Coverage(minPercent int) Profile {
	if minPercent < 0 || minPercent > 100 {
		minPercent = DefaultMinCoverage
	}
	return Profile{
		Name: "coverage",
		Args: []string{
			"--cov=src",
			"--cov-report=html",
			"--cov-report=term-missing",
			"--cov-fail-under=" + strconv.Itoa(minPercent),
			"-v",
		},
	}
}

// Browser returns a profile that runs the full suite against the named
// browser via an environment override.
func Browser(name string) Profile {
	return Profile{
		Name: "browser",
		Args: []string{"-v"},
		Env:  map[string]string{BrowserEnvVar: name},
	}
}

// Names lists every profile spec the catalog accepts, in sorted order.
// Parameterized profiles are listed in name=value form.
func Names() []string {
	names := make([]string, 0, len(fixed)+3)
	for name := range fixed {
		names = append(names, name)
	}
	names = append(names, "parallel[=workers]", "coverage[=min-percent]", "browser=<name>")
	sort.Strings(names)
	return names
}

// Lookup resolves a profile spec of the form "name" or "name=value":
// "smoke", "parallel=8", "coverage=90", "browser=firefox".
func Lookup(spec string) (Profile, error) {
	name, value := spec, ""
	if idx := strings.IndexByte(spec, '='); idx >= 0 {
		name, value = spec[:idx], spec[idx+1:]
	}

	if p, ok := fixed[name]; ok {
		if value != "" {
			return Profile{}, fmt.Errorf("profile %q takes no parameter", name)
		}
		return clone(p), nil
	}

	switch name {
	case "parallel":
		if value == "" {
			return Parallel(DefaultWorkers), nil
		}
		workers, err := strconv.Atoi(value)
		if err != nil || workers < 1 {
			return Profile{}, fmt.Errorf("parallel workers must be a positive integer, got %q", value)
		}
		return Parallel(workers), nil

	case "coverage":
		if value == "" {
			return Coverage(DefaultMinCoverage), nil
		}
		min, err := strconv.Atoi(value)
		if err != nil || min < 0 || min > 100 {
			return Profile{}, fmt.Errorf("coverage threshold must be 0-100, got %q", value)
		}
		return Coverage(min), nil

	case "browser":
		if value == "" {
			return Profile{}, fmt.Errorf("browser profile requires a name, e.g. browser=%s", KnownBrowsers[0])
		}
		return Browser(value), nil
	}

	return Profile{}, fmt.Errorf("unknown profile %q (valid: %s)", name, strings.Join(Names(), ", "))
}

func clone(p Profile) Profile {
	out := Profile{Name: p.Name, Args: append([]string(nil), p.Args...)}
	if p.Env != nil {
		out.Env = make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			out.Env[k] = v
		}
	}
	return out
}
