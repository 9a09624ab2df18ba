package drivertest

import (
	"context"
	"errors"
	"sync"

	"github.com/kuitang/bloglist-e2e/internal/driver"
)

// Browser hands out scripted pages built by Build.
type Browser struct {
	mu     sync.Mutex
	Build  func() *Page // defaults to NewPage
	Err    error        // returned by NewPage when set
	pages  []*Page
	closed bool
}

var _ driver.Browser = (*Browser)(nil)

func (b *Browser) NewPage(ctx context.Context) (driver.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("drivertest: browser closed")
	}
	if b.Err != nil {
		return nil, b.Err
	}
	build := b.Build
	if build == nil {
		build = NewPage
	}
	page := build()
	b.pages = append(b.pages, page)
	return page, nil
}

// Pages returns every page handed out so far.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
