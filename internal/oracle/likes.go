package oracle

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/kuitang/bloglist-e2e/internal/driver"
	"github.com/kuitang/bloglist-e2e/internal/ui"
)

var digits = regexp.MustCompile(`\d+`)

// ParseLikes extracts the first run of digits from a like-count label such
// as "likes: 7".
func ParseLikes(text string) (int, error) {
	m := digits.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("oracle: no like count in %q", text)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("oracle: like count in %q: %w", text, err)
	}
	return n, nil
}

// LikeCounts reads every displayed like count, top to bottom.
func LikeCounts(ctx context.Context, page driver.Page) ([]int, error) {
	texts, err := page.Texts(ctx, ui.Likes)
	if err != nil {
		return nil, err
	}
	counts := make([]int, 0, len(texts))
	for _, text := range texts {
		n, err := ParseLikes(text)
		if err != nil {
			return nil, err
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// SortedDescending returns a sorted copy of counts, largest first.
func SortedDescending(counts []int) []int {
	sorted := slices.Clone(counts)
	slices.SortFunc(sorted, func(a, b int) int { return b - a })
	return sorted
}

// CheckDescending reports an *AssertionError unless counts is already in
// non-increasing order.
func CheckDescending(counts []int) error {
	want := SortedDescending(counts)
	if slices.Equal(counts, want) {
		return nil
	}
	return &AssertionError{
		Selector:    ui.Likes.String(),
		Expectation: "to be sorted by likes descending",
		Expected:    fmt.Sprint(want),
		Actual:      fmt.Sprint(counts),
	}
}

// LikesDescending waits until exactly n like counts are displayed and they
// are in non-increasing order top to bottom.
func (c *Checker) LikesDescending(ctx context.Context, n int) error {
	return c.poll(ctx, ui.Likes, "to show like counts sorted descending", fmt.Sprintf("%d counts", n), func(ctx context.Context) (bool, string, error) {
		counts, err := LikeCounts(ctx, c.page)
		if err != nil {
			return false, "", err
		}
		if len(counts) != n {
			return false, fmt.Sprint(counts), nil
		}
		return CheckDescending(counts) == nil, fmt.Sprint(counts), nil
	})
}
