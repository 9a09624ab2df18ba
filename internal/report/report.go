// Package report collects scenario outcomes of one run and renders them as
// Markdown and sanitized HTML.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/hashicorp/go-multierror"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/urlutil"
)

// Status is the result of one scenario.
type Status string

const (
	Passed  Status = "pass"
	Failed  Status = "fail"
	Skipped Status = "skip"
)

// Outcome is the recorded result of one scenario.
type Outcome struct {
	Scenario string
	Status   Status
	Duration time.Duration
	Code     errs.Code // failure class, empty on pass
	Detail   string    // failure message or skip reason
	Artifact string    // screenshot location, if any
}

// Run describes the run a report belongs to.
type Run struct {
	ID      string
	BaseURL string
	Browser string
	Started time.Time
}

// Recorder collects outcomes. It is safe for concurrent use.
type Recorder struct {
	run      Run
	mu       sync.Mutex
	outcomes []Outcome
}

// NewRecorder returns an empty recorder for run.
func NewRecorder(run Run) *Recorder {
	return &Recorder{run: run}
}

// Record adds o.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns the recorded outcomes sorted by scenario name.
func (r *Recorder) Outcomes() []Outcome {
	r.mu.Lock()
	out := append([]Outcome(nil), r.outcomes...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Scenario < out[j].Scenario })
	return out
}

// Counts returns how many scenarios ended in each status.
func (r *Recorder) Counts() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, o := range r.Outcomes() {
		counts[o.Status]++
	}
	return counts
}

// Markdown renders the report.
func (r *Recorder) Markdown() string {
	counts := r.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "# Blog list E2E run %s\n\n", r.run.ID)
	fmt.Fprintf(&b, "- target: `%s`\n", urlutil.Redact(r.run.BaseURL))
	fmt.Fprintf(&b, "- browser: %s\n", r.run.Browser)
	if !r.run.Started.IsZero() {
		fmt.Fprintf(&b, "- started: %s\n", r.run.Started.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- passed: %d, failed: %d, skipped: %d\n\n", counts[Passed], counts[Failed], counts[Skipped])

	b.WriteString("| scenario | result | duration | detail |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, o := range r.Outcomes() {
		detail := o.Detail
		if o.Code != "" {
			detail = fmt.Sprintf("[%s] %s", o.Code, detail)
		}
		if o.Artifact != "" {
			detail = strings.TrimSpace(detail + " (screenshot: " + o.Artifact + ")")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(o.Scenario), o.Status, o.Duration.Round(time.Millisecond), cell(detail))
	}
	return b.String()
}

// cell makes text safe inside one Markdown table cell.
func cell(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "|", `\|`)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 1000px; margin: 0 auto; padding: 2rem 1rem; }
        table { width: 100%; border-collapse: collapse; }
        th, td { border: 1px solid #e0e0e0; padding: 0.4em 0.8em; text-align: left; vertical-align: top; }
        code { background-color: #f5f5f5; padding: 0.1em 0.3em; }
    </style>
</head>
<body>
    <article>
        {{.Content}}
    </article>
</body>
</html>`

var pageTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// HTML renders the Markdown report to a standalone HTML page. Scenario
// details quote page text, so the rendered body is sanitized.
func (r *Recorder) HTML() ([]byte, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(r.Markdown()))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	body := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title   string
		Content template.HTML
	}{
		Title:   "Blog list E2E run " + r.run.ID,
		Content: template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDir writes report.md and report.html into dir.
func (r *Recorder) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}

	var result *multierror.Error
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(r.Markdown()), 0o644); err != nil {
		result = multierror.Append(result, fmt.Errorf("report: write markdown: %w", err))
	}
	page, err := r.HTML()
	if err != nil {
		result = multierror.Append(result, err)
	} else if err := os.WriteFile(filepath.Join(dir, "report.html"), page, 0o644); err != nil {
		result = multierror.Append(result, fmt.Errorf("report: write html: %w", err))
	}
	return result.ErrorOrNil()
}
