package profile

import (
	"reflect"
	"strings"
	"testing"
)

func TestSmoke_Arguments(t *testing.T) {
	p := Smoke()
	want := []string{"-m", "smoke", "-v"}
	if !reflect.DeepEqual(p.Args, want) {
		t.Errorf("Args = %v, want %v", p.Args, want)
	}
}

func TestFixedProfiles_Arguments(t *testing.T) {
	cases := map[string][]string{
		"api":         {"-m", "api", "-v"},
		"ui":          {"-m", "ui", "-v"},
		"integration": {"-m", "integration", "-v"},
		"performance": {"-m", "slow", "-v", "--tb=short"},
	}
	for name, want := range cases {
		p, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if !reflect.DeepEqual(p.Args, want) {
			t.Errorf("Lookup(%q).Args = %v, want %v", name, p.Args, want)
		}
	}
}

func TestParallel_Defaults(t *testing.T) {
	p := Parallel(0)
	want := []string{"-n", "4", "-v"}
	if !reflect.DeepEqual(p.Args, want) {
		t.Errorf("Parallel(0).Args = %v, want %v", p.Args, want)
	}
}

func TestParallel_Workers(t *testing.T) {
	p := Parallel(8)
	want := []string{"-n", "8", "-v"}
	if !reflect.DeepEqual(p.Args, want) {
		t.Errorf("Parallel(8).Args = %v, want %v", p.Args, want)
	}
}

func TestCoverage_Threshold(t *testing.T) {
	p := Coverage(90)
	found := false
	for _, arg := range p.Args {
		if arg == "--cov-fail-under=90" {
			found = true
		}
	}
	if !found {
		t.Errorf("Coverage(90).Args = %v, want to contain --cov-fail-under=90", p.Args)
	}
}

func TestCoverage_OutOfRange(t *testing.T) {
	p := Coverage(150)
	found := false
	for _, arg := range p.Args {
		if arg == "--cov-fail-under=80" {
			found = true
		}
	}
	if !found {
		t.Errorf("Coverage(150).Args = %v, want default threshold 80", p.Args)
	}
}

func TestBrowser_EnvOverride(t *testing.T) {
	p := Browser("firefox")
	if got := p.Env[BrowserEnvVar]; got != "firefox" {
		t.Errorf("Env[%s] = %q, want %q", BrowserEnvVar, got, "firefox")
	}
	want := []string{"-v"}
	if !reflect.DeepEqual(p.Args, want) {
		t.Errorf("Args = %v, want %v", p.Args, want)
	}
}

func TestLookup_Parameterized(t *testing.T) {
	p, err := Lookup("parallel=8")
	if err != nil {
		t.Fatalf("Lookup(parallel=8): %v", err)
	}
	if !reflect.DeepEqual(p.Args, []string{"-n", "8", "-v"}) {
		t.Errorf("Args = %v, want [-n 8 -v]", p.Args)
	}

	p, err = Lookup("coverage=90")
	if err != nil {
		t.Fatalf("Lookup(coverage=90): %v", err)
	}
	if !strings.Contains(strings.Join(p.Args, " "), "--cov-fail-under=90") {
		t.Errorf("Args = %v, want --cov-fail-under=90", p.Args)
	}

	p, err = Lookup("browser=webkit")
	if err != nil {
		t.Fatalf("Lookup(browser=webkit): %v", err)
	}
	if p.Env[BrowserEnvVar] != "webkit" {
		t.Errorf("Env = %v, want %s=webkit", p.Env, BrowserEnvVar)
	}
}

func TestLookup_Invalid(t *testing.T) {
	for _, spec := range []string{
		"nosuchprofile",
		"smoke=2",       // fixed profile takes no parameter
		"parallel=zero", // not an integer
		"parallel=0",    // below 1
		"coverage=200",  // out of range
		"browser",       // requires a name
	} {
		if _, err := Lookup(spec); err == nil {
			t.Errorf("Lookup(%q): expected error", spec)
		}
	}
}

func TestLookup_ReturnsCopies(t *testing.T) {
	p, err := Lookup("smoke")
	if err != nil {
		t.Fatal(err)
	}
	p.Args[0] = "mutated"

	fresh, err := Lookup("smoke")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Args[0] != "-m" {
		t.Errorf("catalog mutated through a lookup copy: %v", fresh.Args)
	}
}
