// Package browser runs the blog application scenarios in a real browser.
// All scenario files use BrowserTestEnv via SetupBrowserTestEnv(t).
//
// The scenarios need a running blog application (frontend plus a backend
// exposing POST /api/testing/reset) at BLOG_E2E_BASE_URL. Without it, or
// without a usable Playwright install, every scenario skips.
package browser

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/bloglist-e2e/internal/artifact"
	"github.com/kuitang/bloglist-e2e/internal/config"
	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/driver/pwdriver"
	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/fixture"
	"github.com/kuitang/bloglist-e2e/internal/obs"
	"github.com/kuitang/bloglist-e2e/internal/oracle"
	"github.com/kuitang/bloglist-e2e/internal/report"
	"github.com/kuitang/bloglist-e2e/internal/scenario"
)

var browserFixtureMu sync.Mutex
var browserSharedFixture *BrowserTestEnv

// BrowserTestEnv is the shared environment of one test binary run. The
// browser process is shared; pages and their sessions never are.
type BrowserTestEnv struct {
	Config    *config.Config
	Data      fixture.Data
	Fixtures  *fixture.Client
	Artifacts artifact.Store
	Report    *report.Recorder
	RunID     string

	// runCtx carries the run-wide correlation fields
	runCtx context.Context

	browser   *pwdriver.Browser
	browserMu sync.Mutex

	// scenarios run one at a time because the reset clears shared backend state
	scenarioMu sync.Mutex
}

// SetupBrowserTestEnv returns the shared environment with a launched
// browser, skipping the test when the application or Playwright is not
// available.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	env := getOrCreateSharedBrowserTestEnv(t)
	env.InitBrowser(t)
	return env
}

func getOrCreateSharedBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if browserSharedFixture != nil {
		return browserSharedFixture
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("invalid configuration: %v", err)
	}
	if !cfg.BrowserEnabled() {
		t.Skip("BLOG_E2E_BASE_URL not set; skipping browser scenarios")
	}

	data, err := fixture.Load(cfg.FixturesFile)
	if err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}

	obs.Init()
	runID := obs.NewRunID()
	ctx := obs.WithCorrelation(context.Background(), obs.Correlation{RunID: runID, Browser: cfg.Browser})

	store, err := artifact.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to open artifact store: %v", err)
	}

	browserSharedFixture = &BrowserTestEnv{
		Config: cfg,
		Data:   data,
		Fixtures: fixture.NewClient(fixture.Options{
			APIURL:  cfg.APIURL,
			RPS:     cfg.SetupRPS,
			Burst:   cfg.SetupBurst,
			Timeout: cfg.ActionTimeout,
		}),
		Artifacts: store,
		Report: report.NewRecorder(report.Run{
			ID:      runID,
			BaseURL: cfg.BaseURL,
			Browser: cfg.Browser,
			Started: time.Now(),
		}),
		RunID:  runID,
		runCtx: ctx,
	}
	return browserSharedFixture
}

// InitBrowser launches the configured browser once per test binary.
func (env *BrowserTestEnv) InitBrowser(t *testing.T) {
	t.Helper()

	env.browserMu.Lock()
	defer env.browserMu.Unlock()

	if env.browser != nil {
		return
	}

	browser, err := pwdriver.Launch(pwdriver.Options{
		BaseURL:       env.Config.BaseURL,
		Browser:       env.Config.Browser,
		Headless:      env.Config.Headless,
		ActionTimeout: env.Config.ActionTimeout,
	})
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	env.browser = browser
}

func cleanupSharedBrowserTestEnv() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	env := browserSharedFixture
	if env == nil {
		return
	}
	l := obs.Pkg("browser")
	if env.browser != nil {
		if err := env.browser.Close(); err != nil {
			l.Warn("browser_close_failed", "error", err)
		}
	}
	env.Fixtures.Close()
	if dir := env.Config.ReportDir; dir != "" {
		if err := env.Report.WriteDir(dir); err != nil {
			l.Warn("report_write_failed", "error", err)
		} else {
			l.Info("report_written", "dir", dir, "run_id", env.RunID)
		}
	}
	browserSharedFixture = nil
}

// =============================================================================
// Scenario runs
// =============================================================================

// Run is one scenario in progress: its precondition state plus the context
// carrying its correlation fields.
type Run struct {
	*scenario.State
	Ctx context.Context

	t       *testing.T
	env     *BrowserTestEnv
	lastErr error
}

// Start builds the precondition stage for t and registers the teardown
// that screenshots failures, records the outcome and closes the page.
func (env *BrowserTestEnv) Start(t *testing.T, stage scenario.Stage) *Run {
	t.Helper()

	env.scenarioMu.Lock()
	started := time.Now()
	ctx := obs.WithScenario(env.runCtx, t.Name())
	r := &Run{Ctx: ctx, t: t, env: env}

	t.Cleanup(func() {
		defer env.scenarioMu.Unlock()
		r.finish(started)
	})

	build := scenario.SetupBase
	switch stage {
	case scenario.StageAuthenticated:
		build = scenario.SetupAuthenticated
	case scenario.StageBlogPresent:
		build = scenario.SetupWithBlog
	}

	st, err := build(ctx, scenario.Env{
		Browser:       env.browser,
		Fixtures:      env.Fixtures,
		Data:          env.Data,
		AssertTimeout: env.Config.AssertTimeout,
	})
	if err != nil {
		r.lastErr = err
		t.Fatalf("setup %s: %v", stage, err)
	}
	r.State = st
	return r
}

func (r *Run) finish(started time.Time) {
	outcome := report.Outcome{
		Scenario: r.t.Name(),
		Status:   report.Passed,
		Duration: time.Since(started),
	}
	switch {
	case r.t.Skipped():
		outcome.Status = report.Skipped
	case r.t.Failed():
		outcome.Status = report.Failed
		if r.lastErr != nil {
			outcome.Code = errs.CodeOf(r.lastErr)
			outcome.Detail = r.lastErr.Error()
		}
		if r.State != nil {
			location, err := artifact.SaveScreenshot(r.Ctx, r.env.Artifacts, r.Page, r.env.RunID, r.t.Name())
			if err != nil {
				r.t.Logf("could not save screenshot: %v", err)
			} else if location != "" {
				outcome.Artifact = location
				r.t.Logf("screenshot: %s", location)
			}
		}
	}
	r.env.Report.Record(outcome)

	if r.State != nil {
		if err := r.Close(); err != nil {
			r.t.Logf("close page: %v", err)
		}
	}
}

// Must fails the scenario with what when err is not nil.
func (r *Run) Must(err error, what string) {
	r.t.Helper()
	if err != nil {
		r.lastErr = err
		r.t.Fatalf("%s: %v", what, err)
	}
}

// Expect returns the oracle checker of the scenario's page.
func (r *Run) Expect() *oracle.Checker {
	return r.State.Expect()
}

// TextRe compiles a case-insensitive pattern matching text literally.
func TextRe(text string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(text))
}

// Likes matches a like-count label showing exactly n.
func Likes(n int) *regexp.Regexp {
	return regexp.MustCompile(`likes: ` + strconv.Itoa(n) + `\b`)
}

// Scoped returns sel as a pointer, for flows that take an optional scope.
func Scoped(sel driver.Selector) *driver.Selector {
	return &sel
}
