// Package oracle checks observable page state. Every check polls the page
// until its condition holds or the timeout elapses, then reports the literal
// expected and last observed values.
package oracle

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/errs"
)

// DefaultInterval is the polling interval of a Checker.
const DefaultInterval = 100 * time.Millisecond

// AssertionError is an unmet expectation.
type AssertionError struct {
	Selector    string
	Expectation string // e.g. "to be visible", "to have css color"
	Expected    string
	Actual      string
	Timeout     time.Duration
	Err         error // last driver error while polling, if any
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "expected %s %s", e.Selector, e.Expectation)
	if e.Expected != "" {
		fmt.Fprintf(&b, " %q", e.Expected)
	}
	fmt.Fprintf(&b, ", got %q", e.Actual)
	if e.Timeout > 0 {
		fmt.Fprintf(&b, " after %s", e.Timeout)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (last error: %v)", e.Err)
	}
	return b.String()
}

// Unwrap exposes the assertion as an errs.AssertionFailed error.
func (e *AssertionError) Unwrap() error {
	return &errs.Error{Code: errs.AssertionFailed, Message: "assertion failed", Err: e.Err}
}

// Checker evaluates expectations against one page.
type Checker struct {
	page     driver.Page
	timeout  time.Duration
	interval time.Duration
}

// Expect returns a Checker polling page for up to timeout.
func Expect(page driver.Page, timeout time.Duration) *Checker {
	return &Checker{page: page, timeout: timeout, interval: DefaultInterval}
}

// WithInterval returns a copy polling at interval.
func (c *Checker) WithInterval(interval time.Duration) *Checker {
	cp := *c
	if interval > 0 {
		cp.interval = interval
	}
	return &cp
}

// probe reads the page once and reports whether the condition holds and
// what was observed.
type probe func(ctx context.Context) (ok bool, actual string, err error)

func (c *Checker) poll(ctx context.Context, sel driver.Selector, expectation, expected string, p probe) error {
	deadline := time.Now().Add(c.timeout)
	var (
		actual  string
		lastErr error
	)
	for {
		ok, got, err := p(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			actual, lastErr = got, nil
		}

		if ctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		wait := c.interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}
	if lastErr == nil && ctx.Err() != nil {
		lastErr = ctx.Err()
	}
	return &AssertionError{
		Selector:    sel.String(),
		Expectation: expectation,
		Expected:    expected,
		Actual:      actual,
		Timeout:     c.timeout,
		Err:         lastErr,
	}
}

// Visible waits until any match of sel is visible.
func (c *Checker) Visible(ctx context.Context, sel driver.Selector) error {
	return c.poll(ctx, sel, "to be visible", "", func(ctx context.Context) (bool, string, error) {
		visible, err := c.page.IsVisible(ctx, sel)
		return visible, visibility(visible), err
	})
}

// Hidden waits until no match of sel is visible. Absent elements count as
// hidden.
func (c *Checker) Hidden(ctx context.Context, sel driver.Selector) error {
	return c.poll(ctx, sel, "to be hidden", "", func(ctx context.Context) (bool, string, error) {
		visible, err := c.page.IsVisible(ctx, sel)
		return !visible, visibility(visible), err
	})
}

// Text waits until sel has at least one match and every match's text
// matches re.
func (c *Checker) Text(ctx context.Context, sel driver.Selector, re *regexp.Regexp) error {
	return c.poll(ctx, sel, "to have text matching", re.String(), func(ctx context.Context) (bool, string, error) {
		texts, err := c.page.Texts(ctx, sel)
		if err != nil {
			return false, "", err
		}
		if len(texts) == 0 {
			return false, "<no elements>", nil
		}
		for _, text := range texts {
			if !re.MatchString(text) {
				return false, strings.Join(texts, " | "), nil
			}
		}
		return true, "", nil
	})
}

// ContainsText waits until some match of sel contains substr.
func (c *Checker) ContainsText(ctx context.Context, sel driver.Selector, substr string) error {
	return c.poll(ctx, sel, "to contain text", substr, func(ctx context.Context) (bool, string, error) {
		texts, err := c.page.Texts(ctx, sel)
		if err != nil {
			return false, "", err
		}
		if len(texts) == 0 {
			return false, "<no elements>", nil
		}
		for _, text := range texts {
			if strings.Contains(text, substr) {
				return true, "", nil
			}
		}
		return false, strings.Join(texts, " | "), nil
	})
}

// Count waits until sel has exactly n matches.
func (c *Checker) Count(ctx context.Context, sel driver.Selector, n int) error {
	return c.poll(ctx, sel, "to have count", strconv.Itoa(n), func(ctx context.Context) (bool, string, error) {
		got, err := c.page.Count(ctx, sel)
		return got == n, strconv.Itoa(got), err
	})
}

// CSS waits until the computed value of property on the first match of sel
// equals want.
func (c *Checker) CSS(ctx context.Context, sel driver.Selector, property, want string) error {
	return c.poll(ctx, sel, "to have css "+property, want, func(ctx context.Context) (bool, string, error) {
		got, err := c.page.ComputedStyle(ctx, sel, property)
		return got == want, got, err
	})
}

// Empty waits until the input value of sel is empty.
func (c *Checker) Empty(ctx context.Context, sel driver.Selector) error {
	return c.poll(ctx, sel, "to be empty", "", func(ctx context.Context) (bool, string, error) {
		got, err := c.page.InputValue(ctx, sel)
		return got == "", got, err
	})
}

// Enabled waits until sel is enabled.
func (c *Checker) Enabled(ctx context.Context, sel driver.Selector) error {
	return c.poll(ctx, sel, "to be enabled", "", func(ctx context.Context) (bool, string, error) {
		enabled, err := c.page.IsEnabled(ctx, sel)
		if enabled {
			return true, "enabled", err
		}
		return false, "disabled", err
	})
}

func visibility(visible bool) string {
	if visible {
		return "visible"
	}
	return "hidden"
}
