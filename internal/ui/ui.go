// Package ui lists the DOM hooks the blog application exposes to the suite.
// Flows act on them and oracles read them; nothing else should spell out a
// selector literal.
package ui

import (
	"github.com/kuitang/bloglist-e2e/internal/driver"
)

// Login form.
var (
	UsernameInput = driver.TestID("username")
	PasswordInput = driver.TestID("password")
	LoginButton   = driver.Button("login")
	LoginHeading  = driver.Text("login to application")
)

// Session and blog form.
var (
	LogoutButton  = driver.Button("logout")
	NewBlogButton = driver.Button("create new blog")
	CreateButton  = driver.Button("create").Exactly()
	CancelButton  = driver.Button("cancel")
	TitleInput    = driver.Label("title")
	AuthorInput   = driver.Label("author")
	URLInput      = driver.Label("url")
)

// Blog entries. The per-blog buttons are usually scoped with BlogItem.
var (
	ViewButton   = driver.Button("view")
	HideButton   = driver.Button("hide")
	LikeButton   = driver.Button("like")
	RemoveButton = driver.Button("remove")
	BlogInfo     = driver.CSS(".blogInfo")
	Likes        = driver.CSS(".likes")
	ToggleButton = driver.CSS(".toggleButton")
)

// Notifications.
var (
	ErrorNotice   = driver.CSS(".error")
	SuccessNotice = driver.CSS(".success")
)

// Literal computed styles of the notifications.
const (
	ErrorColor   = "rgb(255, 0, 0)"
	SuccessColor = "rgb(0, 128, 0)"
	NoticeBorder = "solid"
)

// BlogItem selects the list entry whose text contains summary.
func BlogItem(summary string) driver.Selector {
	return driver.CSS(".blog-item").Filter(summary)
}
