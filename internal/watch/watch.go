// Package watch re-runs a test profile whenever matching files change under
// a directory tree. At most one triggered run is in flight at a time; change
// events arriving mid-run are dropped, not queued.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/deixis/testpilot/internal/executor"
	"github.com/deixis/testpilot/internal/profile"
)

// ErrBackendUnavailable reports that the filesystem-notification backend
// could not be initialised. The watch feature degrades; nothing crashes.
var ErrBackendUnavailable = errors.New("file watching unavailable")

// ProfileRunner runs one profile to completion. Implemented by runner.Runner.
type ProfileRunner interface {
	Run(ctx context.Context, p profile.Profile) (*executor.RunResult, error)
}

// Watcher owns one watch session. The in-flight guard lives on the instance,
// not in package state, so independent sessions never interfere.
type Watcher struct {
	Runner   ProfileRunner
	Dir      string          // root of the watched tree
	Patterns []string        // glob patterns matched against file base names
	Profile  profile.Profile // profile triggered on change
	Out      io.Writer       // console output; defaults to os.Stdout

	// OnResult, when set, observes every completed run.
	OnResult func(*executor.RunResult)

	inFlight atomic.Bool
	runs     sync.WaitGroup
}

// Watch blocks watching the tree until ctx is cancelled. Cancellation stops
// the intake of events and waits for any in-flight run to finish; it never
// kills the child process.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, err)
	}
	defer fsw.Close()

	if err := addTree(fsw, w.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.Dir, err)
	}

	fmt.Fprintf(w.out(), "Watching %s for changes... Press Ctrl+C to stop.\n", w.Dir)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w.out(), "Stopped watching for changes.")
			w.runs.Wait()
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				w.runs.Wait()
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				// New subdirectories join the watched tree.
				if ev.Op&fsnotify.Create != 0 {
					_ = addTree(fsw, ev.Name)
				}
				continue
			}
			if !w.matches(ev.Name) {
				continue
			}
			w.trigger(ctx, ev.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				w.runs.Wait()
				return nil
			}
			fmt.Fprintf(w.out(), "watch error: %v\n", err)
		}
	}
}

// trigger starts a run for the changed path unless one is already in flight.
// It reports whether a run was started.
func (w *Watcher) trigger(ctx context.Context, path string) bool {
	if !w.inFlight.CompareAndSwap(false, true) {
		// A run is in flight; this event is coalesced away.
		return false
	}

	w.runs.Add(1)
	go func() {
		defer w.runs.Done()
		defer w.inFlight.Store(false)

		out := w.out()
		fmt.Fprintf(out, "File changed: %s\n", path)
		fmt.Fprintln(out, "Running tests...")

		// Session cancellation stops event intake only; the run,
		// and the child process under it, finish on their own.
		res, err := w.Runner.Run(context.WithoutCancel(ctx), w.Profile)
		if err != nil {
			fmt.Fprintln(out, color.RedString("✘ could not run tests: %v", err))
			return
		}

		w.report(out, res)
		if w.OnResult != nil {
			w.OnResult(res)
		}
	}()
	return true
}

// report prints the pass/fail indicator and, on failure, the captured stderr.
func (w *Watcher) report(out io.Writer, res *executor.RunResult) {
	switch {
	case res.Succeeded:
		fmt.Fprintln(out, color.GreenString("✔ Tests passed!"))
	case !res.Started:
		fmt.Fprintln(out, color.RedString("✘ Tests could not start: %s", res.FailureReason))
	default:
		fmt.Fprintln(out, color.RedString("✘ Tests failed! (exit %d)", res.ExitCode))
		if res.Stderr != "" {
			fmt.Fprintln(out, res.Stderr)
		}
	}
}

// matches reports whether the file's base name matches any configured
// pattern. Patterns that fail to parse match nothing.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.Patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *Watcher) out() io.Writer {
	if w.Out != nil {
		return w.Out
	}
	return os.Stdout
}

// addTree registers dir and every subdirectory with the fsnotify watcher.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}
