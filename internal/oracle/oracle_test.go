package oracle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/driver/drivertest"
	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/ui"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fast(page driver.Page) *Checker {
	return Expect(page, 200*time.Millisecond).WithInterval(time.Millisecond)
}

// =============================================================================
// Polling
// =============================================================================

func TestVisible_PollsUntilShown(t *testing.T) {
	greeting := driver.Text("Mehmet Aydar logged in")
	page := drivertest.NewPage().Script(greeting,
		drivertest.Element{},
		drivertest.Element{Count: 1, Hidden: true},
		drivertest.Shown(),
	)

	require.NoError(t, fast(page).Visible(context.Background(), greeting))
	assert.GreaterOrEqual(t, page.Reads(), 3)
}

func TestVisible_TimeoutReportsAssertion(t *testing.T) {
	greeting := driver.Text("Mehmet Aydar logged in")
	page := drivertest.NewPage()

	err := Expect(page, 20*time.Millisecond).WithInterval(5*time.Millisecond).Visible(context.Background(), greeting)
	require.Error(t, err)
	assert.True(t, errs.IsAssertion(err))

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, greeting.String(), ae.Selector)
	assert.Equal(t, "hidden", ae.Actual)
}

func TestHidden_AbsentCountsAsHidden(t *testing.T) {
	require.NoError(t, fast(drivertest.NewPage()).Hidden(context.Background(), driver.Text("Mehmet Aydar logged in")))
}

func TestText_RequiresEveryMatch(t *testing.T) {
	re := regexp.MustCompile(`(?i)test title - test author`)
	ctx := context.Background()

	page := drivertest.NewPage().Set(ui.BlogInfo, drivertest.WithText("Test Title - Test Author"))
	require.NoError(t, fast(page).Text(ctx, ui.BlogInfo, re))

	page = drivertest.NewPage().Set(ui.BlogInfo, drivertest.Element{Texts: []string{"test title - test author", "other - blog"}})
	err := fast(page).Text(ctx, ui.BlogInfo, re)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "test title - test author | other - blog", ae.Actual)

	err = fast(drivertest.NewPage()).Text(ctx, ui.BlogInfo, re)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "<no elements>", ae.Actual)
}

func TestLikesText_ProgressesAsClicksLand(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage().Script(ui.Likes,
		drivertest.WithText("likes: 0 like"),
		drivertest.WithText("likes: 1 like"),
	)
	c := fast(page)

	require.NoError(t, c.Text(ctx, ui.Likes, regexp.MustCompile(`likes: 0`)))
	require.NoError(t, c.Text(ctx, ui.Likes, regexp.MustCompile(`likes: 1`)))
}

func TestContainsText(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage().Set(ui.ErrorNotice, drivertest.WithText("invalid username or password"))

	require.NoError(t, fast(page).ContainsText(ctx, ui.ErrorNotice, "invalid username or password"))
	err := fast(page).ContainsText(ctx, ui.ErrorNotice, "a new blog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a new blog"`)
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	summary := driver.Text("test title - test author")
	page := drivertest.NewPage().Script(summary, drivertest.Shown(), drivertest.Element{})

	require.NoError(t, fast(page).Count(ctx, summary, 0))

	err := fast(page).Count(ctx, summary, 1)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "1", ae.Expected)
	assert.Equal(t, "0", ae.Actual)
}

func TestCSS_LiteralComputedValues(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage().Set(ui.ErrorNotice, drivertest.Element{
		Count: 1,
		Style: map[string]string{"color": ui.ErrorColor, "border-style": ui.NoticeBorder},
	})
	c := fast(page)

	require.NoError(t, c.CSS(ctx, ui.ErrorNotice, "color", ui.ErrorColor))
	require.NoError(t, c.CSS(ctx, ui.ErrorNotice, "border-style", ui.NoticeBorder))

	err := c.CSS(ctx, ui.ErrorNotice, "color", ui.SuccessColor)
	require.Error(t, err)
	assert.Equal(t, `expected css=.error to have css color "rgb(0, 128, 0)", got "rgb(255, 0, 0)" after 200ms`, err.Error())
}

func TestCSS_DriverErrorIsKept(t *testing.T) {
	err := fast(drivertest.NewPage()).CSS(context.Background(), ui.SuccessNotice, "color", ui.SuccessColor)
	require.Error(t, err)
	assert.ErrorIs(t, err, drivertest.ErrNoElement)
	assert.Equal(t, errs.AssertionFailed, errs.CodeOf(err))
}

func TestEmptyAndEnabled(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage().
		Set(ui.UsernameInput, drivertest.Shown()).
		Set(ui.PasswordInput, drivertest.Element{Count: 1, Value: "secret"}).
		Set(ui.LoginButton, drivertest.Shown()).
		Set(ui.CreateButton, drivertest.Element{Count: 1, Disabled: true})
	c := fast(page)

	require.NoError(t, c.Empty(ctx, ui.UsernameInput))
	require.Error(t, c.Empty(ctx, ui.PasswordInput))
	require.NoError(t, c.Enabled(ctx, ui.LoginButton))
	require.Error(t, c.Enabled(ctx, ui.CreateButton))
}

func TestPoll_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Expect(drivertest.NewPage(), time.Minute).Visible(ctx, ui.LoginHeading)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Dialogs
// =============================================================================

func TestExpectDialog(t *testing.T) {
	check := ExpectDialog(driver.DialogConfirm, "Remove blog test title by test author")
	page := drivertest.NewPage()
	var verdicts []error
	page.OnDialog(func(d driver.Dialog) { verdicts = append(verdicts, check(d)) })

	ok := page.OpenDialog(driver.DialogConfirm, "Remove blog test title by test author")
	wrongType := page.OpenDialog(driver.DialogAlert, "Remove blog test title by test author")
	wrongMessage := page.OpenDialog(driver.DialogConfirm, "Remove blog other by someone")

	require.Len(t, verdicts, 3)
	assert.NoError(t, verdicts[0])
	assert.True(t, ok.Accepted())

	for i, d := range []*drivertest.Dialog{wrongType, wrongMessage} {
		err := verdicts[i+1]
		require.Error(t, err)
		assert.Equal(t, errs.DialogContract, errs.CodeOf(err))
		assert.True(t, errs.IsAssertion(err))
		assert.True(t, d.Dismissed())
	}
}

// =============================================================================
// Like counts
// =============================================================================

func TestParseLikes(t *testing.T) {
	cases := map[string]int{
		"likes: 0":         0,
		"likes: 7 like":    7,
		"likes: 12likes 3": 12,
	}
	for text, want := range cases {
		got, err := ParseLikes(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
	_, err := ParseLikes("likes: none")
	require.Error(t, err)
}

func TestLikeCounts_TopToBottom(t *testing.T) {
	page := drivertest.NewPage().Set(ui.Likes, drivertest.Element{Texts: []string{"likes: 7 like", "likes: 3 like"}})

	counts, err := LikeCounts(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 3}, counts)
	require.NoError(t, CheckDescending(counts))
}

func testSortedDescending_IsNonIncreasingPermutation(t *rapid.T) {
	counts := rapid.SliceOf(rapid.IntRange(0, 1000)).Draw(t, "counts")
	sorted := SortedDescending(counts)

	if len(sorted) != len(counts) {
		t.Fatalf("length changed: %d -> %d", len(counts), len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] > sorted[i-1] {
			t.Fatalf("not descending at %d: %v", i, sorted)
		}
	}
	a, b := slices.Clone(counts), slices.Clone(sorted)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		t.Fatalf("not a permutation: %v vs %v", counts, sorted)
	}
	if err := CheckDescending(sorted); err != nil {
		t.Fatalf("sorted list rejected: %v", err)
	}
}

func TestSortedDescending_IsNonIncreasingPermutation(t *testing.T) {
	rapid.Check(t, testSortedDescending_IsNonIncreasingPermutation)
}

func testCheckDescending_RejectsAnyAscentPair(t *rapid.T) {
	counts := rapid.SliceOfN(rapid.IntRange(0, 100), 2, 20).Draw(t, "counts")
	i := rapid.IntRange(0, len(counts)-2).Draw(t, "i")
	counts[i+1] = counts[i] + 1 + rapid.IntRange(0, 10).Draw(t, "gap")

	err := CheckDescending(counts)
	if err == nil {
		t.Fatalf("ascent at %d accepted: %v", i, counts)
	}
	if !errs.IsAssertion(err) {
		t.Fatalf("expected assertion failure, got %v", err)
	}
}

func TestCheckDescending_RejectsAnyAscentPair(t *testing.T) {
	rapid.Check(t, testCheckDescending_RejectsAnyAscentPair)
}

func TestLikesDescending_WaitsForAllCounts(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage().Script(ui.Likes,
		drivertest.Element{Texts: []string{"likes: 7"}},
		drivertest.Element{Texts: []string{"likes: 3", "likes: 7"}},
		drivertest.Element{Texts: []string{"likes: 7", "likes: 3"}},
	)
	require.NoError(t, fast(page).LikesDescending(ctx, 2))

	page = drivertest.NewPage().Set(ui.Likes, drivertest.Element{Texts: []string{"likes: 3", "likes: 7"}})
	err := fast(page).LikesDescending(ctx, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint([]int{3, 7}))
}

func TestAssertionError_WrapsLastDriverError(t *testing.T) {
	boom := errors.New("target closed")
	ae := &AssertionError{Selector: "css=.likes", Expectation: "to be visible", Actual: "hidden", Err: boom}
	assert.ErrorIs(t, ae, boom)
	assert.Equal(t, errs.AssertionFailed, errs.CodeOf(ae))
	assert.Contains(t, ae.Error(), "target closed")
}
