// Package flows holds the user-level operations the scenarios are built
// from. Each flow awaits every primitive action in order and stops at the
// first failure.
package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/fixture"
	"github.com/kuitang/bloglist-e2e/internal/obs"
	"github.com/kuitang/bloglist-e2e/internal/ui"
)

// DialogWait bounds how long RemoveBlog waits for the confirmation dialog
// after the remove click returned.
var DialogWait = 5 * time.Second

// LoginWith fills the login form and submits it. Both fields are filled
// before the login button is clicked.
func LoginWith(ctx context.Context, page driver.Page, username, password string) error {
	obs.From(ctx).Debug("flow_login", "pkg", "flows", "username", username)
	if err := page.Fill(ctx, ui.UsernameInput, username); err != nil {
		return fmt.Errorf("login %s: %w", username, err)
	}
	if err := page.Fill(ctx, ui.PasswordInput, password); err != nil {
		return fmt.Errorf("login %s: %w", username, err)
	}
	if err := page.Click(ctx, ui.LoginButton); err != nil {
		return fmt.Errorf("login %s: %w", username, err)
	}
	return nil
}

// CreateBlog opens the new-blog form, fills it and submits it.
func CreateBlog(ctx context.Context, page driver.Page, blog fixture.Blog) error {
	obs.From(ctx).Debug("flow_create_blog", "pkg", "flows", "blog", blog.Summary())
	steps := []struct {
		sel   driver.Selector
		value string
		fill  bool
	}{
		{sel: ui.NewBlogButton},
		{sel: ui.TitleInput, value: blog.Title, fill: true},
		{sel: ui.AuthorInput, value: blog.Author, fill: true},
		{sel: ui.URLInput, value: blog.URL, fill: true},
		{sel: ui.CreateButton},
	}
	for _, step := range steps {
		var err error
		if step.fill {
			err = page.Fill(ctx, step.sel, step.value)
		} else {
			err = page.Click(ctx, step.sel)
		}
		if err != nil {
			return fmt.Errorf("create blog %q: %w", blog.Summary(), err)
		}
	}
	return nil
}

// Logout ends the current session.
func Logout(ctx context.Context, page driver.Page) error {
	if err := page.Click(ctx, ui.LogoutButton); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CancelForm closes the new-blog form without submitting it.
func CancelForm(ctx context.Context, page driver.Page) error {
	if err := page.Click(ctx, ui.CancelButton); err != nil {
		return fmt.Errorf("cancel form: %w", err)
	}
	return nil
}

// OpenBlog expands a blog's details. A nil scope clicks the only view
// button on the page.
func OpenBlog(ctx context.Context, page driver.Page, scope *driver.Selector) error {
	return clickIn(ctx, page, ui.ViewButton, scope, "open blog")
}

// HideBlog collapses a blog's details.
func HideBlog(ctx context.Context, page driver.Page, scope *driver.Selector) error {
	return clickIn(ctx, page, ui.HideButton, scope, "hide blog")
}

// LikeBlog clicks the like button once.
func LikeBlog(ctx context.Context, page driver.Page, scope *driver.Selector) error {
	return clickIn(ctx, page, ui.LikeButton, scope, "like blog")
}

// ExpandAll clicks every show/hide toggle on the page and returns how many
// were clicked.
func ExpandAll(ctx context.Context, page driver.Page) (int, error) {
	n, err := page.ClickEach(ctx, ui.ToggleButton)
	if err != nil {
		return n, fmt.Errorf("expand all: %w", err)
	}
	return n, nil
}

// RemoveBlog clicks remove and answers the confirmation dialog with
// confirm. The dialog handler is registered before the click. The returned
// error is the click failure or confirm's verdict; a dialog that never
// opens is a dialog-contract violation. A nil confirm accepts any dialog.
//
// Handlers stay registered for the life of the page, so call RemoveBlog at
// most once per page.
func RemoveBlog(ctx context.Context, page driver.Page, scope *driver.Selector, confirm func(driver.Dialog) error) error {
	if confirm == nil {
		confirm = func(d driver.Dialog) error { return d.Accept() }
	}

	verdict := make(chan error, 1)
	page.OnDialog(func(d driver.Dialog) {
		err := confirm(d)
		select {
		case verdict <- err:
		default:
		}
	})

	if err := clickIn(ctx, page, ui.RemoveButton, scope, "remove blog"); err != nil {
		return err
	}

	timer := time.NewTimer(DialogWait)
	defer timer.Stop()
	select {
	case err := <-verdict:
		return err
	case <-timer.C:
		return errs.New(errs.DialogContract, "remove blog: no confirmation dialog opened")
	case <-ctx.Done():
		return errs.Wrap(errs.DialogContract, "remove blog: no confirmation dialog opened", ctx.Err())
	}
}

func clickIn(ctx context.Context, page driver.Page, button driver.Selector, scope *driver.Selector, what string) error {
	if err := page.Click(ctx, button.Scope(scope)); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
