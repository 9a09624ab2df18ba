package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/driver/drivertest"
	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/fixture"
	"github.com/kuitang/bloglist-e2e/internal/ui"
)

type fakeFixtures struct {
	err   error
	calls [][]string
}

func (f *fakeFixtures) ResetAndRegister(_ context.Context, users ...fixture.User) error {
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	f.calls = append(f.calls, names)
	return f.err
}

// appPage scripts the parts of the blog app the builders touch.
func appPage(data fixture.Data) *drivertest.Page {
	owner := data.Owner()
	blog := data.Blog()
	page := drivertest.NewPage().
		Set(ui.UsernameInput, drivertest.Shown()).
		Set(ui.PasswordInput, drivertest.Shown()).
		Set(ui.LoginButton, drivertest.Shown())

	page.OnClick(ui.LoginButton, func(p *drivertest.Page) error {
		p.Set(driver.Text(owner.Greeting()), drivertest.Shown()).
			Set(ui.NewBlogButton, drivertest.Shown()).
			Set(ui.TitleInput, drivertest.Shown()).
			Set(ui.AuthorInput, drivertest.Shown()).
			Set(ui.URLInput, drivertest.Shown()).
			Set(ui.CreateButton, drivertest.Shown())
		return nil
	})
	page.OnClick(ui.CreateButton, func(p *drivertest.Page) error {
		p.Set(driver.Text(blog.Summary()).Exactly(), drivertest.Shown())
		return nil
	})
	return page
}

func newEnv(build func() *drivertest.Page) (Env, *fakeFixtures, *drivertest.Browser) {
	fx := &fakeFixtures{}
	b := &drivertest.Browser{Build: build}
	return Env{
		Browser:       b,
		Fixtures:      fx,
		Data:          fixture.Default(),
		AssertTimeout: 50 * time.Millisecond,
	}, fx, b
}

func TestSetupBase(t *testing.T) {
	data := fixture.Default()
	env, fx, b := newEnv(func() *drivertest.Page { return appPage(data) })

	st, err := SetupBase(context.Background(), env)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, StageBase, st.Stage)
	assert.Equal(t, data.Owner(), st.Owner)
	assert.Nil(t, st.Blog)
	assert.Equal(t, [][]string{{"QXyGeN"}}, fx.calls)

	pages := b.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, []drivertest.Action{{Op: "goto", Selector: "/"}}, pages[0].Actions())
}

func TestSetupWithBlog_NestsEveryStage(t *testing.T) {
	data := fixture.Default()
	env, fx, b := newEnv(func() *drivertest.Page { return appPage(data) })

	st, err := SetupWithBlog(context.Background(), env)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, StageBlogPresent, st.Stage)
	require.NotNil(t, st.Blog)
	assert.Equal(t, "test title - test author", st.Blog.Summary())
	assert.Len(t, fx.calls, 1, "one reset per scenario")

	var ops []string
	for _, a := range b.Pages()[0].Actions() {
		ops = append(ops, a.Op+" "+a.Selector)
	}
	assert.Equal(t, []string{
		"goto /",
		"fill " + ui.UsernameInput.String(),
		"fill " + ui.PasswordInput.String(),
		"click " + ui.LoginButton.String(),
		"click " + ui.NewBlogButton.String(),
		"fill " + ui.TitleInput.String(),
		"fill " + ui.AuthorInput.String(),
		"fill " + ui.URLInput.String(),
		"click " + ui.CreateButton.String(),
	}, ops)
}

func TestSetup_FixtureFailureIsSetupFailure(t *testing.T) {
	env, fx, b := newEnv(nil)
	fx.err = errs.Wrap(errs.Unavailable, "reset backend", errors.New("connection refused"))

	_, err := SetupAuthenticated(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errs.IsSetup(err))
	assert.True(t, errs.Has(err, errs.Unavailable))
	assert.Empty(t, b.Pages(), "no page is opened when the reset fails")
}

func TestSetup_FailedLoginClosesPage(t *testing.T) {
	data := fixture.Default()
	env, _, b := newEnv(func() *drivertest.Page {
		// Login submits but the greeting never shows.
		return drivertest.NewPage().
			Set(ui.UsernameInput, drivertest.Shown()).
			Set(ui.PasswordInput, drivertest.Shown()).
			Set(ui.LoginButton, drivertest.Shown())
	})
	env.Data = data

	st, err := SetupAuthenticated(context.Background(), env)
	require.Error(t, err)
	assert.Nil(t, st)
	assert.True(t, errs.IsSetup(err))
	assert.True(t, errs.Has(err, errs.AssertionFailed))
	assert.Contains(t, err.Error(), "Mehmet Aydar logged in")
	assert.True(t, b.Pages()[0].Closed())
}

func TestSetup_NavigationFailureClosesPage(t *testing.T) {
	boom := errors.New("net::ERR_CONNECTION_REFUSED")
	env, _, b := newEnv(func() *drivertest.Page {
		return drivertest.NewPage().FailOn("goto", "/", boom)
	})

	_, err := SetupBase(context.Background(), env)
	require.ErrorIs(t, err, boom)
	assert.True(t, errs.IsSetup(err))
	assert.True(t, b.Pages()[0].Closed())
}

func TestSetup_BrowserFailure(t *testing.T) {
	env, _, b := newEnv(nil)
	b.Err = errors.New("browser has been closed")

	_, err := SetupBase(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errs.IsSetup(err))
}

func TestStateClose_NilSafe(t *testing.T) {
	var st *State
	assert.NoError(t, st.Close())
}
