package pwdriver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/driver/pwdriver"
	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/flows"
	"github.com/kuitang/bloglist-e2e/internal/oracle"
	"github.com/kuitang/bloglist-e2e/internal/ui"
)

// blogPage mimics the DOM hooks of the blog application: notifications,
// the login form and two collapsible blog entries.
const blogPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>blogs</title>
<style>
  .error { color: red; border-style: solid; }
  .success { color: green; border-style: solid; }
  .hidden { display: none; }
</style>
</head>
<body>
  <h2>login to application</h2>
  <input data-testid="username">
  <input data-testid="password" type="password">
  <button type="button" id="login">login</button>
  <button type="button" disabled>logout</button>

  <div class="error">invalid username or password</div>
  <div class="success">a new blog first - alpha added</div>

  <button type="button">create new blog</button>
  <label>title <input id="title"></label>
  <button type="button">create</button>

  <div class="blog-item" data-title="first" data-author="alpha">
    <span class="blogInfo">first - alpha</span>
    <button type="button" class="toggleButton">view</button>
    <div class="details hidden">
      <span class="likes">likes: 3</span>
      <button type="button" class="like">like</button>
      <button type="button" class="remove">remove</button>
    </div>
  </div>
  <div class="blog-item" data-title="second" data-author="beta">
    <span class="blogInfo">second - beta</span>
    <button type="button" class="toggleButton">view</button>
    <div class="details hidden">
      <span class="likes">likes: 7</span>
      <button type="button" class="like">like</button>
      <button type="button" class="remove">remove</button>
    </div>
  </div>
  <div id="clicks"></div>

<script>
document.querySelectorAll('.blog-item').forEach(item => {
  const toggle = item.querySelector('.toggleButton');
  const details = item.querySelector('.details');
  toggle.addEventListener('click', () => {
    const hidden = details.classList.toggle('hidden');
    toggle.textContent = hidden ? 'view' : 'hide';
    document.getElementById('clicks').textContent += item.dataset.title + ',';
  });
  item.querySelector('.like').addEventListener('click', () => {
    const likes = item.querySelector('.likes');
    likes.textContent = 'likes: ' + (parseInt(likes.textContent.slice(7), 10) + 1);
  });
  item.querySelector('.remove').addEventListener('click', () => {
    if (window.confirm('Remove blog ' + item.dataset.title + ' by ' + item.dataset.author)) {
      item.remove();
    }
  });
});
</script>
</body>
</html>`

var (
	sharedMu      sync.Mutex
	sharedBrowser *pwdriver.Browser
	sharedServer  *httptest.Server
	launchErr     error
)

func TestMain(m *testing.M) {
	code := m.Run()
	sharedMu.Lock()
	if sharedBrowser != nil {
		_ = sharedBrowser.Close()
	}
	if sharedServer != nil {
		sharedServer.Close()
	}
	sharedMu.Unlock()
	os.Exit(code)
}

// newBlogPage opens blogPage in a fresh context of the shared browser,
// skipping when Playwright is not installed.
func newBlogPage(t *testing.T) driver.Page {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	sharedMu.Lock()
	if sharedServer == nil {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(blogPage))
		})
		sharedServer = httptest.NewServer(mux)
	}
	if sharedBrowser == nil && launchErr == nil {
		sharedBrowser, launchErr = pwdriver.Launch(pwdriver.Options{
			BaseURL:       sharedServer.URL,
			Browser:       "chromium",
			Headless:      os.Getenv("HEADLESS") != "false",
			ActionTimeout: 5 * time.Second,
		})
	}
	browser, err := sharedBrowser, launchErr
	sharedMu.Unlock()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	ctx := context.Background()
	page, err := browser.NewPage(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = page.Close() })
	require.NoError(t, page.Goto(ctx, "/"))
	return page
}

func expect(page driver.Page) *oracle.Checker {
	return oracle.Expect(page, 3*time.Second).WithInterval(50 * time.Millisecond)
}

// =============================================================================
// Selector resolution
// =============================================================================

func TestPage_SelectorKinds(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()

	count := func(sel driver.Selector) int {
		t.Helper()
		n, err := page.Count(ctx, sel)
		require.NoError(t, err, sel.String())
		return n
	}

	// text: substring by default, whole text when exact
	assert.Equal(t, 2, count(driver.Text("first - alpha")))
	assert.Equal(t, 1, count(driver.Text("first - alpha").Exactly()))

	// role names behave the same way
	assert.Equal(t, 2, count(driver.Button("create")))
	assert.Equal(t, 1, count(ui.CreateButton))

	// the filter narrows the outer locator, scoping chains from it
	assert.Equal(t, 2, count(driver.CSS(".blog-item")))
	assert.Equal(t, 1, count(ui.BlogItem("second - beta")))
	assert.Equal(t, 2, count(ui.ViewButton))
	assert.Equal(t, 1, count(ui.ViewButton.In(ui.BlogItem("second - beta"))))
	assert.Equal(t, 1, count(driver.Text("second - beta").Exactly().In(ui.BlogItem("second - beta"))))
	assert.Equal(t, 0, count(driver.Text("first - alpha").Exactly().In(ui.BlogItem("second - beta"))))

	texts, err := page.Texts(ctx, ui.Likes.In(ui.BlogItem("second - beta")))
	require.NoError(t, err)
	assert.Equal(t, []string{"likes: 7"}, texts)

	// test ids and labels resolve to the form controls
	require.NoError(t, page.Fill(ctx, ui.UsernameInput, "QXyGeN"))
	value, err := page.InputValue(ctx, ui.UsernameInput)
	require.NoError(t, err)
	assert.Equal(t, "QXyGeN", value)

	require.NoError(t, page.Fill(ctx, ui.TitleInput, "Gürcan Çekiç"))
	value, err = page.InputValue(ctx, ui.TitleInput)
	require.NoError(t, err)
	assert.Equal(t, "Gürcan Çekiç", value)
}

func TestPage_EnabledState(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()

	require.NoError(t, expect(page).Enabled(ctx, ui.LoginButton))
	enabled, err := page.IsEnabled(ctx, ui.LogoutButton)
	require.NoError(t, err)
	assert.False(t, enabled)
	require.NoError(t, expect(page).Empty(ctx, ui.PasswordInput))
}

// =============================================================================
// Visibility and style
// =============================================================================

func TestPage_IsVisibleWhenAnyMatchIs(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()

	visible, err := page.IsVisible(ctx, ui.Likes)
	require.NoError(t, err)
	assert.False(t, visible, "details start collapsed")

	// only the second entry is expanded, so the first match stays hidden
	second := ui.BlogItem("second - beta")
	require.NoError(t, flows.OpenBlog(ctx, page, &second))
	require.NoError(t, expect(page).Visible(ctx, ui.Likes))
	require.NoError(t, expect(page).Hidden(ctx, ui.Likes.In(ui.BlogItem("first - alpha"))))

	require.NoError(t, flows.HideBlog(ctx, page, &second))
	require.NoError(t, expect(page).Hidden(ctx, ui.Likes))
}

func TestPage_ComputedStyle(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()

	color, err := page.ComputedStyle(ctx, ui.ErrorNotice, "color")
	require.NoError(t, err)
	assert.Equal(t, ui.ErrorColor, color)

	require.NoError(t, expect(page).CSS(ctx, ui.ErrorNotice, "border-style", ui.NoticeBorder))
	require.NoError(t, expect(page).CSS(ctx, ui.SuccessNotice, "color", ui.SuccessColor))
	require.NoError(t, expect(page).CSS(ctx, ui.SuccessNotice, "border-style", ui.NoticeBorder))
	require.NoError(t, expect(page).ContainsText(ctx, ui.ErrorNotice, "invalid username or password"))

	err = oracle.Expect(page, 200*time.Millisecond).CSS(ctx, ui.ErrorNotice, "color", ui.SuccessColor)
	require.Error(t, err)
	assert.True(t, errs.IsAssertion(err))
	assert.Contains(t, err.Error(), ui.ErrorColor)
}

// =============================================================================
// Clicks and likes
// =============================================================================

func TestPage_ClickEachInDocumentOrder(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()

	n, err := flows.ExpandAll(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clicks, err := page.Texts(ctx, driver.CSS("#clicks"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first,second,"}, clicks)

	counts, err := oracle.LikeCounts(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, counts)
	require.Error(t, oracle.CheckDescending(counts))
}

func TestPage_ScopedLikes(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()
	first := ui.BlogItem("first - alpha")

	require.NoError(t, flows.OpenBlog(ctx, page, &first))
	for i := 4; i <= 8; i++ {
		require.NoError(t, flows.LikeBlog(ctx, page, &first))
		re := regexp.MustCompile(`likes: ` + strconv.Itoa(i) + `\b`)
		require.NoError(t, expect(page).Text(ctx, ui.Likes.In(first), re))
	}

	_, err := flows.ExpandAll(ctx, page)
	require.NoError(t, err)
	require.NoError(t, expect(page).LikesDescending(ctx, 2))
}

// =============================================================================
// Dialogs
// =============================================================================

func TestPage_DialogDismissedOnMismatch(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()
	second := ui.BlogItem("second - beta")

	require.NoError(t, flows.OpenBlog(ctx, page, &second))
	err := flows.RemoveBlog(ctx, page, &second, oracle.ExpectDialog(driver.DialogConfirm, "Remove blog first by alpha"))
	require.Error(t, err)
	assert.Equal(t, errs.DialogContract, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "Remove blog second by beta")

	require.NoError(t, expect(page).Count(ctx, second, 1))
}

func TestPage_DialogAccepted(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()
	first := ui.BlogItem("first - alpha")

	require.NoError(t, flows.OpenBlog(ctx, page, &first))
	require.NoError(t, flows.RemoveBlog(ctx, page, &first, oracle.ExpectDialog(driver.DialogConfirm, "Remove blog first by alpha")))

	require.NoError(t, expect(page).Count(ctx, driver.Text("first - alpha").Exactly(), 0))
	require.NoError(t, expect(page).Count(ctx, driver.CSS(".blog-item"), 1))
}

func TestPage_ScreenshotAndClose(t *testing.T) {
	page := newBlogPage(t)
	ctx := context.Background()

	png, err := page.Screenshot(ctx)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, page.Click(cancelled, ui.LoginButton), context.Canceled)
}
