// Package driver defines the browser capability the suite consumes.
//
// The suite never talks to a browser engine directly. Flow helpers and
// oracles work against Page, and pwdriver provides the Playwright-backed
// implementation used by the browser scenarios.
package driver

import (
	"context"
)

// Browser hands out isolated pages. Each page has its own cookie jar and
// storage, so two pages never share a login session.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one exclusive browser session positioned on the application.
// Every operation blocks until the driver finished it or its action timeout
// elapsed; operations on an element wait for the element to be actionable.
type Page interface {
	// Goto navigates to path relative to the application root.
	Goto(ctx context.Context, path string) error

	Fill(ctx context.Context, sel Selector, value string) error
	Click(ctx context.Context, sel Selector) error
	// ClickEach clicks every element matching sel, in document order, as
	// resolved at call time.
	ClickEach(ctx context.Context, sel Selector) (int, error)

	// Count returns the number of matching elements without waiting.
	Count(ctx context.Context, sel Selector) (int, error)
	// Texts returns the text content of every match, top to bottom.
	Texts(ctx context.Context, sel Selector) ([]string, error)
	IsVisible(ctx context.Context, sel Selector) (bool, error)
	IsEnabled(ctx context.Context, sel Selector) (bool, error)
	InputValue(ctx context.Context, sel Selector) (string, error)
	// ComputedStyle returns getComputedStyle(el)[property] of the first match.
	ComputedStyle(ctx context.Context, sel Selector, property string) (string, error)

	// OnDialog registers handler for native dialogs (alert, confirm,
	// prompt). The handler runs when a dialog opens; registering it after
	// the triggering action races the dialog and must be avoided.
	OnDialog(handler func(Dialog))

	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialog is an open native browser dialog.
type Dialog interface {
	Type() string
	Message() string
	Accept() error
	Dismiss() error
}

// Dialog types as reported by Dialog.Type.
const (
	DialogAlert        = "alert"
	DialogConfirm      = "confirm"
	DialogPrompt       = "prompt"
	DialogBeforeUnload = "beforeunload"
)
