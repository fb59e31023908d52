// Command testpilot orchestrates a web-UI test suite: profile-based runs,
// continuous watch mode, HTML reports, and an MCP server surface.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/testpilot"
	"github.com/deixis/testpilot/internal/config"
	"github.com/deixis/testpilot/internal/executor"
	tpmcp "github.com/deixis/testpilot/internal/mcp"
	"github.com/deixis/testpilot/internal/profile"
	"github.com/deixis/testpilot/internal/report"
	"github.com/deixis/testpilot/internal/runner"
	"github.com/deixis/testpilot/internal/watch"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("testpilot: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "watch":
		err = watchMain(args)
	case "profiles":
		err = profilesMain(args)
	case "report":
		err = reportMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(testpilot.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "testpilot: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		// Infrastructure faults: bad invocation, unreadable config,
		// unstartable tool. Failing tests exit 1 inside runMain.
		log.Print(err)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: testpilot <command> [flags]

Commands:
  run         Run the test suite with a profile (default: smoke)
  watch       Watch the source tree and run a profile on change
  profiles    List available run profiles
  report      Render the HTML report for a stored run
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "testpilot <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	reportFlag := fs.String("report", "", "write an HTML report to this file")
	jsonFlag := fs.Bool("json", false, "output the result as JSON")
	verboseFlag := fs.Bool("v", false, "print captured stdout")
	timeoutFlag := fs.Duration("timeout", 0, "override configured run timeout (e.g. 10m)")
	_ = fs.Parse(args)

	spec := "smoke"
	if fs.NArg() > 0 {
		spec = fs.Arg(0)
	}
	p, err := profile.Lookup(spec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, loaded, err := newRunner(*timeoutFlag)
	if err != nil {
		return err
	}

	res, err := r.Run(ctx, p)
	if err != nil {
		return err
	}

	store := report.NewDiskStore(loaded.Config.Report.ReportDir())
	if err := store.Save(res); err != nil {
		log.Printf("saving run %s: %v", res.RunID, err)
	}

	if *reportFlag != "" {
		renderer, err := report.NewRenderer()
		if err != nil {
			return err
		}
		if err := renderer.WriteReport(res, *reportFlag); err != nil {
			return err
		}
		fmt.Printf("Test report saved to: %s\n", *reportFlag)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printRun(res, *verboseFlag)
	}

	switch {
	case res.Succeeded:
		return nil
	case !res.Started:
		// Infrastructure fault, already reported via FailureReason.
		os.Exit(2)
	default:
		os.Exit(1)
	}
	return nil
}

func printRun(res *executor.RunResult, verbose bool) {
	switch {
	case res.Succeeded:
		fmt.Println(color.GreenString("✔ Tests passed!"))
	case !res.Started:
		fmt.Println(color.RedString("✘ Tests could not start: %s", res.FailureReason))
	default:
		fmt.Println(color.RedString("✘ Tests failed! (exit %d)", res.ExitCode))
	}
	fmt.Printf("Run: %s\n", res.RunID)
	fmt.Printf("Command: %s\n", strings.Join(res.Command, " "))

	if verbose && res.Stdout != "" {
		fmt.Println()
		fmt.Println(res.Stdout)
	}
	if !res.Succeeded && res.Stderr != "" {
		fmt.Println()
		fmt.Println(res.Stderr)
	}
}

// --- watch ---

func watchMain(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "directory tree to watch (default from config, tests)")
	profileFlag := fs.String("profile", "", "profile spec to run on change (default from config, smoke)")
	patternsFlag := fs.String("patterns", "", "comma-separated glob patterns (default from config, *.py)")
	timeoutFlag := fs.Duration("timeout", 0, "override configured run timeout")
	_ = fs.Parse(args)

	r, loaded, err := newRunner(*timeoutFlag)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	spec := cfg.Watch.WatchProfile()
	if *profileFlag != "" {
		spec = *profileFlag
	}
	p, err := profile.Lookup(spec)
	if err != nil {
		return err
	}

	dir := cfg.Watch.WatchDir()
	if *dirFlag != "" {
		dir = *dirFlag
	}

	patterns := cfg.Watch.WatchPatterns()
	if *patternsFlag != "" {
		patterns = strings.Split(*patternsFlag, ",")
	}

	store := report.NewDiskStore(cfg.Report.ReportDir())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := &watch.Watcher{
		Runner:   r,
		Dir:      dir,
		Patterns: patterns,
		Profile:  p,
		Out:      os.Stdout,
		OnResult: func(res *executor.RunResult) {
			if err := store.Save(res); err != nil {
				log.Printf("saving run %s: %v", res.RunID, err)
			}
		},
	}

	if err := w.Watch(ctx); err != nil {
		if errors.Is(err, watch.ErrBackendUnavailable) {
			// Watch mode degrades to unavailable rather than crashing.
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
		return err
	}
	return nil
}

// --- profiles ---

func profilesMain(args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	_ = fs.Parse(args)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Profile", "Arguments", "Environment"})

	for _, name := range []string{"smoke", "api", "ui", "integration", "performance"} {
		p, err := profile.Lookup(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{name, strings.Join(p.Args, " "), ""})
	}
	t.AppendRow(table.Row{
		fmt.Sprintf("parallel[=N] (default %d)", profile.DefaultWorkers),
		"-n <N> -v", "",
	})
	t.AppendRow(table.Row{
		fmt.Sprintf("coverage[=MIN] (default %d)", profile.DefaultMinCoverage),
		"--cov=src --cov-report=html --cov-report=term-missing --cov-fail-under=<MIN> -v", "",
	})
	t.AppendRow(table.Row{
		"browser=NAME",
		"-v",
		fmt.Sprintf("%s=<%s>", profile.BrowserEnvVar, strings.Join(profile.KnownBrowsers, "|")),
	})

	t.Render()
	return nil
}

// --- report ---

func reportMain(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	outFlag := fs.String("o", "test-report.html", "report destination file")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: testpilot report [-o file] <run-id>")
	}
	runID := fs.Arg(0)

	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return err
	}

	store := report.NewDiskStore(loaded.Config.Report.ReportDir())
	res, err := store.Load(runID)
	if err != nil {
		return err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return err
	}
	if err := renderer.WriteReport(res, *outFlag); err != nil {
		return err
	}
	fmt.Printf("Test report saved to: %s\n", *outFlag)
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(tpmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, loaded, err := newRunner(0)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	disk := report.NewDiskStore(cfg.Report.ReportDir())
	store := report.NewLRUStore(cfg.Report.HistorySize(), disk)

	renderer, err := report.NewRenderer()
	if err != nil {
		return err
	}

	server := tpmcp.NewServer(r, store, renderer)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

func newRunner(timeoutOverride time.Duration) (*runner.Runner, *config.LoadResult, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	exec := &executor.Executor{
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	r := &runner.Runner{
		Config:    cfg,
		Executor:  exec,
		Workspace: loaded.RepoRoot,
	}
	return r, loaded, nil
}
