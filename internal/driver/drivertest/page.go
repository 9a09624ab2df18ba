// Package drivertest provides a scripted in-memory driver.Page for unit tests
// of flows, oracles and scenario builders. It has no DOM: each selector key
// maps to an Element state the test sets up, and clicks can trigger scripted
// reactions such as opening a dialog or revealing new elements.
package drivertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kuitang/bloglist-e2e/internal/driver"
)

// ErrNoElement is returned by actions on a selector with no element.
var ErrNoElement = errors.New("drivertest: no element matches selector")

// Element is the observable state of every match of one selector.
type Element struct {
	Count    int // number of matches; Texts wins when longer
	Texts    []string
	Hidden   bool
	Disabled bool
	Value    string
	Style    map[string]string
}

// Shown is a single visible, enabled element.
func Shown() Element {
	return Element{Count: 1}
}

// WithText is a single visible element with the given text.
func WithText(text string) Element {
	return Element{Count: 1, Texts: []string{text}}
}

func (e Element) count() int {
	if len(e.Texts) > e.Count {
		return len(e.Texts)
	}
	return e.Count
}

// Action is one recorded page interaction.
type Action struct {
	Op       string // goto, fill, click, screenshot, close
	Selector string
	Value    string
}

// Page is a scripted driver.Page. The zero value is not usable; use NewPage.
type Page struct {
	mu        sync.Mutex
	elements  map[string][]Element // script of states; the last one sticks
	reactions map[string]func(p *Page) error
	failures  map[string]error // "op selector" -> error
	handlers  []func(driver.Dialog)
	actions   []Action
	dialogs   []*Dialog
	closed    bool
	reads     int
}

var _ driver.Page = (*Page)(nil)

// NewPage returns an empty scripted page.
func NewPage() *Page {
	return &Page{
		elements:  make(map[string][]Element),
		reactions: make(map[string]func(p *Page) error),
		failures:  make(map[string]error),
	}
}

// Set makes el the state of sel.
func (p *Page) Set(sel driver.Selector, el Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[sel.String()] = []Element{el}
	return p
}

// Script makes each read of sel advance through states; the last state sticks.
func (p *Page) Script(sel driver.Selector, states ...Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[sel.String()] = append([]Element(nil), states...)
	return p
}

// Remove deletes every element matching sel.
func (p *Page) Remove(sel driver.Selector) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, sel.String())
	return p
}

// Update mutates the current state of sel, creating it when missing.
func (p *Page) Update(sel driver.Selector, fn func(el *Element)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := sel.String()
	states := p.elements[key]
	var el Element
	if len(states) > 0 {
		el = states[0]
	}
	fn(&el)
	p.elements[key] = []Element{el}
	return p
}

// OnClick registers a reaction run after sel is clicked.
func (p *Page) OnClick(sel driver.Selector, reaction func(p *Page) error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions[sel.String()] = reaction
	return p
}

// FailOn makes op ("goto", "fill", "click", ...) on sel return err.
// For goto the selector is ignored and the key is the path.
func (p *Page) FailOn(op string, key string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op+" "+key] = err
	return p
}

// OpenDialog opens a native dialog and runs the registered handlers
// synchronously. Like a real browser driver, a dialog nobody handles is
// dismissed.
func (p *Page) OpenDialog(kind, message string) *Dialog {
	d := &Dialog{kind: kind, message: message}
	p.mu.Lock()
	handlers := append(([]func(driver.Dialog))(nil), p.handlers...)
	p.dialogs = append(p.dialogs, d)
	p.mu.Unlock()

	if len(handlers) == 0 {
		_ = d.Dismiss()
		return d
	}
	for _, h := range handlers {
		h(d)
	}
	return d
}

// Actions returns the recorded interactions.
func (p *Page) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}

// Dialogs returns every dialog opened so far.
func (p *Page) Dialogs() []*Dialog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Dialog(nil), p.dialogs...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Reads returns how many state reads the page served.
func (p *Page) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

func (p *Page) record(op string, sel string, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("drivertest: %s on closed page", op)
	}
	p.actions = append(p.actions, Action{Op: op, Selector: sel, Value: value})
	if err, ok := p.failures[op+" "+sel]; ok {
		return err
	}
	return nil
}

// read returns the current state of sel and advances its script.
func (p *Page) read(sel driver.Selector) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	key := sel.String()
	states, ok := p.elements[key]
	if !ok || len(states) == 0 {
		return Element{}, false
	}
	el := states[0]
	if len(states) > 1 {
		p.elements[key] = states[1:]
	}
	return el, true
}

// peek returns the current state of sel without advancing its script.
func (p *Page) peek(sel driver.Selector) (Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	states, ok := p.elements[sel.String()]
	if !ok || len(states) == 0 {
		return Element{}, false
	}
	return states[0], true
}

func (p *Page) Goto(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.record("goto", path, "")
}

func (p *Page) Fill(ctx context.Context, sel driver.Selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if el, ok := p.peek(sel); !ok || el.count() == 0 || el.Hidden {
		return fmt.Errorf("fill %s: %w", sel, ErrNoElement)
	}
	if err := p.record("fill", sel.String(), value); err != nil {
		return err
	}
	p.Update(sel, func(el *Element) { el.Value = value })
	return nil
}

func (p *Page) Click(ctx context.Context, sel driver.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if el, ok := p.peek(sel); !ok || el.count() == 0 || el.Hidden {
		return fmt.Errorf("click %s: %w", sel, ErrNoElement)
	}
	if err := p.record("click", sel.String(), ""); err != nil {
		return err
	}

	p.mu.Lock()
	reaction := p.reactions[sel.String()]
	p.mu.Unlock()
	if reaction != nil {
		return reaction(p)
	}
	return nil
}

func (p *Page) ClickEach(ctx context.Context, sel driver.Selector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	el, _ := p.peek(sel)
	n := el.count()
	for i := 0; i < n; i++ {
		if err := p.Click(ctx, sel); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (p *Page) Count(ctx context.Context, sel driver.Selector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	el, ok := p.read(sel)
	if !ok {
		return 0, nil
	}
	return el.count(), nil
}

func (p *Page) Texts(ctx context.Context, sel driver.Selector) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, ok := p.read(sel)
	if !ok {
		return nil, nil
	}
	return append([]string(nil), el.Texts...), nil
}

func (p *Page) IsVisible(ctx context.Context, sel driver.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	el, ok := p.read(sel)
	if !ok {
		return false, nil
	}
	return el.count() > 0 && !el.Hidden, nil
}

func (p *Page) IsEnabled(ctx context.Context, sel driver.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	el, ok := p.read(sel)
	if !ok {
		return false, fmt.Errorf("is enabled %s: %w", sel, ErrNoElement)
	}
	return !el.Disabled, nil
}

func (p *Page) InputValue(ctx context.Context, sel driver.Selector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	el, ok := p.read(sel)
	if !ok {
		return "", fmt.Errorf("input value %s: %w", sel, ErrNoElement)
	}
	return el.Value, nil
}

func (p *Page) ComputedStyle(ctx context.Context, sel driver.Selector, property string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	el, ok := p.read(sel)
	if !ok {
		return "", fmt.Errorf("computed style %s: %w", sel, ErrNoElement)
	}
	return el.Style[property], nil
}

func (p *Page) OnDialog(handler func(driver.Dialog)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.record("screenshot", "", ""); err != nil {
		return nil, err
	}
	return []byte("\x89PNG drivertest"), nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.actions = append(p.actions, Action{Op: "close"})
	return nil
}

// Dialog is a scripted native dialog.
type Dialog struct {
	mu        sync.Mutex
	kind      string
	message   string
	accepted  bool
	dismissed bool
}

var _ driver.Dialog = (*Dialog)(nil)

func (d *Dialog) Type() string    { return d.kind }
func (d *Dialog) Message() string { return d.message }

func (d *Dialog) Accept() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accepted || d.dismissed {
		return errors.New("drivertest: dialog already handled")
	}
	d.accepted = true
	return nil
}

func (d *Dialog) Dismiss() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accepted || d.dismissed {
		return errors.New("drivertest: dialog already handled")
	}
	d.dismissed = true
	return nil
}

// Accepted reports whether the dialog was accepted.
func (d *Dialog) Accepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted
}

// Dismissed reports whether the dialog was dismissed.
func (d *Dialog) Dismissed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dismissed
}
