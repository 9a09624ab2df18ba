// Package scenario builds the precondition states the scenarios start from.
//
// The states nest strictly: Base, then Authenticated, then BlogPresent. Each
// builder calls the narrower one and adds one step, so every scenario gets a
// fresh backend and a fresh page regardless of what ran before it.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/fixture"
	"github.com/kuitang/bloglist-e2e/internal/flows"
	"github.com/kuitang/bloglist-e2e/internal/obs"
	"github.com/kuitang/bloglist-e2e/internal/oracle"
)

// Stage names a precondition state.
type Stage string

const (
	StageBase          Stage = "base"
	StageAuthenticated Stage = "authenticated"
	StageBlogPresent   Stage = "blog_present"
)

// Resetter returns the backend to its empty baseline and registers users.
type Resetter interface {
	ResetAndRegister(ctx context.Context, users ...fixture.User) error
}

// Env is what the builders need from the run.
type Env struct {
	Browser       driver.Browser
	Fixtures      Resetter
	Data          fixture.Data
	AssertTimeout time.Duration
}

// State is a ready precondition. The caller owns the page and must Close
// the state.
type State struct {
	Page  driver.Page
	Owner fixture.User
	Blog  *fixture.Blog // set from StageBlogPresent on
	Stage Stage
	env   Env
}

// Expect returns an oracle checker for the state's page.
func (s *State) Expect() *oracle.Checker {
	return oracle.Expect(s.Page, s.env.AssertTimeout)
}

// Close releases the page.
func (s *State) Close() error {
	if s == nil || s.Page == nil {
		return nil
	}
	return s.Page.Close()
}

// SetupBase resets the backend, registers the owner and opens a new page on
// the application root.
func SetupBase(ctx context.Context, env Env) (*State, error) {
	ctx = obs.WithStage(ctx, string(StageBase))
	owner := env.Data.Owner()

	if err := env.Fixtures.ResetAndRegister(ctx, owner); err != nil {
		return nil, errs.Setup("reset fixtures", err)
	}

	page, err := env.Browser.NewPage(ctx)
	if err != nil {
		return nil, errs.Setup("open page", err)
	}
	st := &State{Page: page, Owner: owner, Stage: StageBase, env: env}

	if err := page.Goto(ctx, "/"); err != nil {
		return nil, st.fail("open application", err)
	}
	obs.From(ctx).Info("stage_ready", "pkg", "scenario")
	return st, nil
}

// SetupAuthenticated builds Base and logs the owner in.
func SetupAuthenticated(ctx context.Context, env Env) (*State, error) {
	st, err := SetupBase(ctx, env)
	if err != nil {
		return nil, err
	}
	ctx = obs.WithCorrelation(ctx, obs.Correlation{
		Stage:    string(StageAuthenticated),
		Username: st.Owner.Username,
	})

	if err := flows.LoginWith(ctx, st.Page, st.Owner.Username, st.Owner.Password); err != nil {
		return nil, st.fail("log in", err)
	}
	if err := st.Expect().Visible(ctx, driver.Text(st.Owner.Greeting())); err != nil {
		return nil, st.fail("log in", err)
	}
	st.Stage = StageAuthenticated
	obs.From(ctx).Info("stage_ready", "pkg", "scenario")
	return st, nil
}

// SetupWithBlog builds Authenticated and creates the fixture blog through
// the UI.
func SetupWithBlog(ctx context.Context, env Env) (*State, error) {
	st, err := SetupAuthenticated(ctx, env)
	if err != nil {
		return nil, err
	}
	ctx = obs.WithCorrelation(ctx, obs.Correlation{
		Stage:    string(StageBlogPresent),
		Username: st.Owner.Username,
	})

	blog := env.Data.Blog()
	if err := flows.CreateBlog(ctx, st.Page, blog); err != nil {
		return nil, st.fail("create blog", err)
	}
	if err := st.Expect().Visible(ctx, driver.Text(blog.Summary()).Exactly()); err != nil {
		return nil, st.fail("create blog", err)
	}
	st.Blog = &blog
	st.Stage = StageBlogPresent
	obs.From(ctx).Info("stage_ready", "pkg", "scenario", "blog", blog.Summary())
	return st, nil
}

// fail closes the page and returns a setup failure for step.
func (s *State) fail(step string, cause error) error {
	var result *multierror.Error
	result = multierror.Append(result, cause)
	if err := s.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close page: %w", err))
	}
	if len(result.Errors) == 1 {
		return errs.Setup(step, cause)
	}
	return errs.Setup(step, result)
}
