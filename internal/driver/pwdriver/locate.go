package pwdriver

import (
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/bloglist-e2e/internal/driver"
)

// locate resolves sel to a lazy Playwright locator. Scoped selectors chain
// from their parent's locator; everything else starts at the page.
func (p *Page) locate(sel driver.Selector) playwright.Locator {
	var loc playwright.Locator
	if sel.Within != nil {
		loc = locateIn(p.locate(*sel.Within), sel)
	} else {
		loc = locateOnPage(p.page, sel)
	}
	if sel.HasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: sel.HasText})
	}
	return loc
}

func locateOnPage(page playwright.Page, sel driver.Selector) playwright.Locator {
	switch sel.Kind {
	case driver.ByTestID:
		return page.GetByTestId(sel.Value)
	case driver.ByRole:
		opts := playwright.PageGetByRoleOptions{Exact: playwright.Bool(sel.Exact)}
		if sel.Name != "" {
			opts.Name = sel.Name
		}
		return page.GetByRole(playwright.AriaRole(sel.Value), opts)
	case driver.ByLabel:
		return page.GetByLabel(sel.Value, playwright.PageGetByLabelOptions{Exact: playwright.Bool(sel.Exact)})
	case driver.ByText:
		return page.GetByText(sel.Value, playwright.PageGetByTextOptions{Exact: playwright.Bool(sel.Exact)})
	default:
		return page.Locator(sel.Value)
	}
}

func locateIn(parent playwright.Locator, sel driver.Selector) playwright.Locator {
	switch sel.Kind {
	case driver.ByTestID:
		return parent.GetByTestId(sel.Value)
	case driver.ByRole:
		opts := playwright.LocatorGetByRoleOptions{Exact: playwright.Bool(sel.Exact)}
		if sel.Name != "" {
			opts.Name = sel.Name
		}
		return parent.GetByRole(playwright.AriaRole(sel.Value), opts)
	case driver.ByLabel:
		return parent.GetByLabel(sel.Value, playwright.LocatorGetByLabelOptions{Exact: playwright.Bool(sel.Exact)})
	case driver.ByText:
		return parent.GetByText(sel.Value, playwright.LocatorGetByTextOptions{Exact: playwright.Bool(sel.Exact)})
	default:
		return parent.Locator(sel.Value)
	}
}
