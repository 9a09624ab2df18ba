// Package pwdriver implements driver.Browser and driver.Page on playwright-go.
package pwdriver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/obs"
)

const computedStyleJS = `(el, prop) => window.getComputedStyle(el).getPropertyValue(prop)`

// Options configures the launched browser and every page it opens.
type Options struct {
	BaseURL       string // relative Goto paths resolve against it
	Browser       string // chromium, firefox or webkit
	Headless      bool
	ActionTimeout time.Duration
}

// Browser is a launched Playwright browser.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

var _ driver.Browser = (*Browser)(nil)

// Launch starts the Playwright driver and launches the configured browser.
// The returned error means Playwright or the browser binary is not usable;
// callers in tests usually skip on it.
func Launch(opts Options) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("pwdriver: start playwright: %w", err)
	}

	browserType, err := browserTypeFor(pw, opts.Browser)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("pwdriver: launch %s: %w", opts.Browser, err)
	}

	obs.Pkg("pwdriver").Info("browser_launched",
		"browser", opts.Browser,
		"headless", opts.Headless,
		"version", browser.Version(),
	)
	return &Browser{pw: pw, browser: browser, opts: opts}, nil
}

func browserTypeFor(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch strings.ToLower(name) {
	case "", "chromium":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("pwdriver: unknown browser %q", name)
	}
}

// NewPage opens a page in a fresh browser context, so cookies and storage
// are never shared with another page.
func (b *Browser) NewPage(ctx context.Context) (driver.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := playwright.BrowserNewContextOptions{}
	if b.opts.BaseURL != "" {
		options.BaseURL = playwright.String(b.opts.BaseURL)
	}
	bctx, err := b.browser.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("pwdriver: new context: %w", err)
	}
	timeoutMS := float64(b.opts.ActionTimeout.Milliseconds())
	if timeoutMS > 0 {
		bctx.SetDefaultTimeout(timeoutMS)
		bctx.SetDefaultNavigationTimeout(timeoutMS)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("pwdriver: new page: %w", err)
	}
	return &Page{bctx: bctx, page: page}, nil
}

// Close closes the browser and stops the Playwright driver.
func (b *Browser) Close() error {
	var result *multierror.Error
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Page is a Playwright page with its own browser context.
type Page struct {
	bctx playwright.BrowserContext
	page playwright.Page
}

var _ driver.Page = (*Page)(nil)

func (p *Page) Goto(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", path, err)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, sel driver.Selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.locate(sel).Fill(value); err != nil {
		return fmt.Errorf("fill %s: %w", sel, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, sel driver.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.locate(sel).Click(); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

func (p *Page) ClickEach(ctx context.Context, sel driver.Selector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	all, err := p.locate(sel).All()
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", sel, err)
	}
	for i, loc := range all {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := loc.Click(); err != nil {
			return i, fmt.Errorf("click %s #%d: %w", sel, i, err)
		}
	}
	return len(all), nil
}

func (p *Page) Count(ctx context.Context, sel driver.Selector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.locate(sel).Count()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", sel, err)
	}
	return n, nil
}

func (p *Page) Texts(ctx context.Context, sel driver.Selector) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts, err := p.locate(sel).AllTextContents()
	if err != nil {
		return nil, fmt.Errorf("text of %s: %w", sel, err)
	}
	return texts, nil
}

// IsVisible reports whether any match is visible. It does not wait.
func (p *Page) IsVisible(ctx context.Context, sel driver.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	all, err := p.locate(sel).All()
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", sel, err)
	}
	for _, loc := range all {
		visible, err := loc.IsVisible()
		if err != nil {
			return false, fmt.Errorf("visibility of %s: %w", sel, err)
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

func (p *Page) IsEnabled(ctx context.Context, sel driver.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	enabled, err := p.locate(sel).First().IsEnabled()
	if err != nil {
		return false, fmt.Errorf("enabled state of %s: %w", sel, err)
	}
	return enabled, nil
}

func (p *Page) InputValue(ctx context.Context, sel driver.Selector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := p.locate(sel).First().InputValue()
	if err != nil {
		return "", fmt.Errorf("input value of %s: %w", sel, err)
	}
	return value, nil
}

func (p *Page) ComputedStyle(ctx context.Context, sel driver.Selector, property string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := p.locate(sel).First().Evaluate(computedStyleJS, property)
	if err != nil {
		return "", fmt.Errorf("computed %s of %s: %w", property, sel, err)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("computed %s of %s: unexpected %T", property, sel, raw)
	}
	return value, nil
}

func (p *Page) OnDialog(handler func(driver.Dialog)) {
	p.page.OnDialog(func(d playwright.Dialog) {
		handler(dialog{d: d})
	})
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}

// Close closes the page and its browser context.
func (p *Page) Close() error {
	var result *multierror.Error
	if err := p.page.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close page: %w", err))
	}
	if err := p.bctx.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close context: %w", err))
	}
	return result.ErrorOrNil()
}

type dialog struct {
	d playwright.Dialog
}

func (d dialog) Type() string    { return d.d.Type() }
func (d dialog) Message() string { return d.d.Message() }
func (d dialog) Accept() error   { return d.d.Accept() }
func (d dialog) Dismiss() error  { return d.d.Dismiss() }
