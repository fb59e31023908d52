// Package report turns run results into HTML documents and persists run
// history. Rendering is deterministic: identical results produce identical
// bytes. Captured output is embedded through html/template so tool output
// containing markup cannot alter the document structure.
package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/deixis/testpilot/internal/executor"
)

//go:embed report.html.tmpl
var reportTemplate string

// Renderer renders RunResults as standalone HTML reports.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded report template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// reportData is the view model handed to the template.
type reportData struct {
	Status        string // PASSED or FAILED
	StatusClass   string // success or failure
	Started       bool
	ExitCode      int
	Profile       string
	RunID         string
	Command       string
	Stdout        string
	Stderr        string
	FailureReason string
	Truncated     bool
}

// Render produces the HTML document for a result.
func (r *Renderer) Render(res *executor.RunResult) (string, error) {
	status, class := "FAILED", "failure"
	if res.Succeeded {
		status, class = "PASSED", "success"
	}

	stdout := res.Stdout
	if stdout == "" {
		stdout = "No output"
	}

	data := reportData{
		Status:        status,
		StatusClass:   class,
		Started:       res.Started,
		ExitCode:      res.ExitCode,
		Profile:       res.Profile,
		RunID:         res.RunID,
		Command:       strings.Join(res.Command, " "),
		Stdout:        stdout,
		Stderr:        res.Stderr,
		FailureReason: res.FailureReason,
		Truncated:     res.Truncated,
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return b.String(), nil
}

// WriteReport renders res and writes the document to path. The write goes
// through a temp file in the destination directory followed by a rename, so
// a failure on any path leaves no partial file behind.
func (r *Renderer) WriteReport(res *executor.RunResult, path string) error {
	doc, err := r.Render(res)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".report-*.html")
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.WriteString(doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing report file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalising report %s: %w", path, err)
	}
	return nil
}
