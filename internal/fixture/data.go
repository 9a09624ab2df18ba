package fixture

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// User is an account registered through POST /api/users.
type User struct {
	Name     string `yaml:"name" json:"name"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Greeting is the text the app shows once the user is logged in.
func (u User) Greeting() string {
	return u.Name + " logged in"
}

// Blog is a blog entry created through the UI.
type Blog struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	URL    string `yaml:"url"`
	// Likes is the like count the ordering scenario drives the blog to.
	// The app starts every blog at zero.
	Likes int `yaml:"likes"`
}

// Summary is the "<title> - <author>" line the blog list renders.
func (b Blog) Summary() string {
	return b.Title + " - " + b.Author
}

// Data is the full fixture set of a run.
type Data struct {
	// Users[0] owns every blog; Users[1] is the second account of the
	// visibility scenario.
	Users []User `yaml:"users"`
	// Blogs[0] is the blog created by the blog-present precondition.
	Blogs []Blog `yaml:"blogs"`
	// SortBlogs are created and liked by the ordering scenario.
	SortBlogs []Blog `yaml:"sort_blogs"`
}

// Default returns the fixture set the suite ships with.
func Default() Data {
	return Data{
		Users: []User{
			{Name: "Mehmet Aydar", Username: "QXyGeN", Password: "M12345678"},
			{Name: "Ali Aksan", Username: "kralim", Password: "A12345678"},
		},
		Blogs: []Blog{
			{Title: "test title", Author: "test author", URL: "test url"},
		},
		SortBlogs: []Blog{
			{
				Title:  "API Layer & Fetch Functions",
				Author: "Johannes Kettmann",
				URL:    "https://profy.dev/article/react-architecture-api-layer-and-fetch-functions",
				Likes:  3,
			},
			{
				Title:  "Rest API Architecture",
				Author: "Ritu Shikha",
				URL:    "https://medium.com/@shikha.ritu17/rest-api-architecture-6f1c3c99f0d3",
				Likes:  7,
			},
		},
	}
}

// Owner is the user registered by every reset.
func (d Data) Owner() User { return d.Users[0] }

// Visitor is the user who did not create any blog.
func (d Data) Visitor() User { return d.Users[1] }

// Blog is the blog created by the blog-present precondition.
func (d Data) Blog() Blog { return d.Blogs[0] }

// Validate reports fixture sets the scenarios cannot run with.
func (d Data) Validate() error {
	var problems []string
	if len(d.Users) < 2 {
		problems = append(problems, "need at least two users")
	}
	usernames := make(map[string]bool, len(d.Users))
	for i, u := range d.Users {
		if strings.TrimSpace(u.Username) == "" || u.Password == "" {
			problems = append(problems, fmt.Sprintf("users[%d]: username and password are required", i))
		}
		if usernames[u.Username] {
			problems = append(problems, fmt.Sprintf("users[%d]: duplicate username %q", i, u.Username))
		}
		usernames[u.Username] = true
	}
	if len(d.Blogs) == 0 {
		problems = append(problems, "need at least one blog")
	}
	if len(d.SortBlogs) < 2 {
		problems = append(problems, "need at least two sort_blogs")
	}
	check := func(field string, blogs []Blog) {
		for i, b := range blogs {
			if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Author) == "" {
				problems = append(problems, fmt.Sprintf("%s[%d]: title and author are required", field, i))
			}
			if b.Likes < 0 {
				problems = append(problems, fmt.Sprintf("%s[%d]: likes must not be negative", field, i))
			}
		}
	}
	check("blogs", d.Blogs)
	check("sort_blogs", d.SortBlogs)
	problems = append(problems, overlappingSummaries(d)...)

	if len(problems) > 0 {
		return fmt.Errorf("fixture: invalid data: %s", strings.Join(problems, "; "))
	}
	return nil
}

// overlappingSummaries reports blogs on the same page whose summary contains
// another's. Blog entries are matched by case-insensitive substring, so such
// a pair makes a scoped selector resolve to two entries.
func overlappingSummaries(d Data) []string {
	type entry struct {
		field   string
		summary string
	}
	var onPage []entry
	if len(d.Blogs) > 0 {
		onPage = append(onPage, entry{"blogs[0]", d.Blogs[0].Summary()})
	}
	for i, b := range d.SortBlogs {
		onPage = append(onPage, entry{fmt.Sprintf("sort_blogs[%d]", i), b.Summary()})
	}

	var problems []string
	for i, a := range onPage {
		for _, b := range onPage[i+1:] {
			ka, kb := summaryKey(a.summary), summaryKey(b.summary)
			if strings.Contains(ka, kb) || strings.Contains(kb, ka) {
				problems = append(problems, fmt.Sprintf("%s %q and %s %q overlap", a.field, a.summary, b.field, b.summary))
			}
		}
	}
	return problems
}

func summaryKey(summary string) string {
	return strings.ToLower(strings.Join(strings.Fields(summary), " "))
}

// Parse decodes a YAML fixture set. Sections missing from the document keep
// their defaults.
func Parse(raw []byte) (Data, error) {
	var doc Data
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Data{}, fmt.Errorf("fixture: decode yaml: %w", err)
	}
	data := Default()
	if len(doc.Users) > 0 {
		data.Users = doc.Users
	}
	if len(doc.Blogs) > 0 {
		data.Blogs = doc.Blogs
	}
	if len(doc.SortBlogs) > 0 {
		data.SortBlogs = doc.SortBlogs
	}
	if err := data.Validate(); err != nil {
		return Data{}, err
	}
	return data, nil
}

// Load returns the fixture set from path, or Default when path is empty.
func Load(path string) (Data, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	return Parse(raw)
}
