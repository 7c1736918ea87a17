package pressroom

import (
	"strings"
	"time"

	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/richtext"
)

// BlogPost is a stored post. Its JSON form is the draft plus timestamps.
type BlogPost struct {
	editor.Draft
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Published reports whether the post is visible on the public site.
func (p BlogPost) Published() bool {
	return p.Status == editor.StatusPublished
}

// Link is the public path of the post.
func (p BlogPost) Link() string {
	return "/blog/" + p.Slug + "/"
}

// Summary is the excerpt, or the start of the body when there is none.
func (p BlogPost) Summary() string {
	if s := strings.TrimSpace(p.Excerpt); s != "" {
		return s
	}
	text := richtext.PlainText(richtext.Sanitize(p.Content))
	r := []rune(text)
	if len(r) <= 200 {
		return text
	}
	return strings.TrimSpace(string(r[:200])) + "…"
}

// DocumentTitle prefers the meta title.
func (p BlogPost) DocumentTitle() string {
	if p.MetaTitle != "" {
		return p.MetaTitle
	}
	return p.Title
}

// DocumentDescription prefers the meta description.
func (p BlogPost) DocumentDescription() string {
	if p.MetaDescription != "" {
		return p.MetaDescription
	}
	return p.Summary()
}

// RobotsDirective honours the indexing switch.
func (p BlogPost) RobotsDirective() string {
	if !p.IsIndexing {
		return "noindex, nofollow"
	}
	if p.Robots == "" {
		return editor.DefaultRobots
	}
	return p.Robots
}

// Page is a CMS page. At most one page is the main page served at "/".
type Page struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	MetaTitle       string    `json:"metaTitle"`
	MetaDescription string    `json:"metaDescription"`
	IsMainPage      bool      `json:"isMainPage"`
	Published       bool      `json:"published"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Link is the public path of the page.
func (p Page) Link() string {
	if p.IsMainPage {
		return "/"
	}
	return "/" + p.Slug + "/"
}

// Category is a blog category.
type Category = editor.Category

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	OGImage     string
	Robots      string
	JSONLD      string
}
