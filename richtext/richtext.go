// Package richtext handles the HTML produced by the post editor: sanitising
// it for display, extracting plain text for previews, and turning generated
// markdown into HTML.
package richtext

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// EmptyDocument is what the editor posts when the user cleared everything.
const EmptyDocument = "<p></p>"

const wordsPerMinute = 200

var (
	policy = newPolicy()
	md     = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").OnElements("pre", "code", "span", "figure", "img")
	return p
}

// IsEmpty reports whether content carries no document at all. Only the empty
// string and the editor's empty paragraph count; whitespace-only markup is
// left to the author.
func IsEmpty(content string) bool {
	return content == "" || content == EmptyDocument
}

// Sanitize strips scripts, event handlers and unknown elements from html.
func Sanitize(html string) string {
	return strings.TrimSpace(policy.Sanitize(html))
}

// HTML returns a component that writes the sanitised form of content.
func HTML(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Sanitize(content))
		return err
	})
}

// PlainText returns the text content of html with whitespace collapsed.
func PlainText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// WordCount counts whitespace-separated words in the text of html.
func WordCount(html string) int {
	return len(strings.Fields(PlainText(html)))
}

// ReadingMinutes estimates reading time, never less than one minute for
// non-empty content.
func ReadingMinutes(html string) int {
	n := WordCount(html)
	if n == 0 {
		return 0
	}
	m := n / wordsPerMinute
	if n%wordsPerMinute != 0 {
		m++
	}
	return m
}

// Headings lists the text of h1-h3 elements in document order.
func Headings(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// FromMarkdown converts GitHub-flavoured markdown to HTML.
func FromMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LooksLikeHTML reports whether s starts with a tag.
func LooksLikeHTML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

// Normalize prepares model output for the editor: code fences around the
// whole answer are dropped, markdown is converted and the result sanitised.
func Normalize(s string) (string, error) {
	s = stripFence(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	if !LooksLikeHTML(s) {
		converted, err := FromMarkdown(s)
		if err != nil {
			return "", err
		}
		s = converted
	}
	return Sanitize(s), nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(s, "```")
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = strings.TrimPrefix(body, "```")
	}
	return strings.TrimSpace(body)
}
