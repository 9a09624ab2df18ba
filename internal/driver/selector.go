package driver

import (
	"fmt"
	"strings"
)

// Kind is the strategy a Selector uses to find elements.
type Kind string

const (
	ByTestID Kind = "testid" // data-testid attribute
	ByRole   Kind = "role"   // ARIA role plus accessible name
	ByLabel  Kind = "label"  // form control by its label text
	ByText   Kind = "text"   // element by visible text
	ByCSS    Kind = "css"    // CSS selector
)

// Selector locates elements on a page. Selectors are values: deriving a
// scoped or filtered selector never mutates the receiver.
type Selector struct {
	Kind  Kind
	Value string // test id, role, label text, text or CSS, depending on Kind
	// Name is the accessible name for ByRole.
	Name string
	// Exact disables the default case-insensitive substring match for
	// ByRole names, ByLabel and ByText.
	Exact bool
	// HasText keeps only matches containing this text.
	HasText string
	// Within scopes the search to descendants of another selector.
	Within *Selector
}

// TestID selects by data-testid.
func TestID(id string) Selector {
	return Selector{Kind: ByTestID, Value: id}
}

// Button selects a button by accessible name.
func Button(name string) Selector {
	return Role("button", name)
}

// Role selects by ARIA role and accessible name.
func Role(role, name string) Selector {
	return Selector{Kind: ByRole, Value: role, Name: name}
}

// Label selects a form control by label text.
func Label(text string) Selector {
	return Selector{Kind: ByLabel, Value: text}
}

// Text selects by visible text.
func Text(text string) Selector {
	return Selector{Kind: ByText, Value: text}
}

// CSS selects by CSS selector.
func CSS(css string) Selector {
	return Selector{Kind: ByCSS, Value: css}
}

// Exactly returns a copy matching names/text exactly.
func (s Selector) Exactly() Selector {
	s.Exact = true
	return s
}

// Filter returns a copy keeping only matches that contain text.
func (s Selector) Filter(text string) Selector {
	s.HasText = text
	return s
}

// In returns a copy scoped to descendants of parent.
func (s Selector) In(parent Selector) Selector {
	p := parent
	s.Within = &p
	return s
}

// Scope returns s scoped to parent, or s unchanged when parent is nil.
func (s Selector) Scope(parent *Selector) Selector {
	if parent == nil {
		return s
	}
	return s.In(*parent)
}

// Validate reports selectors no driver can resolve.
func (s Selector) Validate() error {
	switch s.Kind {
	case ByTestID, ByRole, ByLabel, ByText, ByCSS:
	default:
		return fmt.Errorf("driver: unknown selector kind %q", s.Kind)
	}
	if strings.TrimSpace(s.Value) == "" {
		return fmt.Errorf("driver: empty %s selector", s.Kind)
	}
	if s.Within != nil {
		return s.Within.Validate()
	}
	return nil
}

// String renders the selector in a Playwright-like notation used as a stable
// key in logs, assertion messages and the scripted test page.
func (s Selector) String() string {
	var b strings.Builder
	if s.Within != nil {
		b.WriteString(s.Within.String())
		b.WriteString(" >> ")
	}
	b.WriteString(string(s.Kind))
	b.WriteString("=")
	switch s.Kind {
	case ByRole:
		b.WriteString(s.Value)
		if s.Name != "" {
			fmt.Fprintf(&b, "[name=%q%s]", s.Name, exactSuffix(s.Exact))
		}
	case ByLabel, ByText:
		fmt.Fprintf(&b, "%q%s", s.Value, exactSuffix(s.Exact))
	default:
		b.WriteString(s.Value)
	}
	if s.HasText != "" {
		fmt.Fprintf(&b, ":has-text(%q)", s.HasText)
	}
	return b.String()
}

func exactSuffix(exact bool) string {
	if exact {
		return "s"
	}
	return "i"
}
