package views

import (
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/richtext"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"richtext":    RichText,
		"trusted":     Trusted,
		"css":         func(s string) template.CSS { return template.CSS(s) },
		"jsonld":      func(s string) template.JS { return template.JS(s) },
		"join":        strings.Join,
		"date":        FormatDate,
		"pathEscape":  url.PathEscape,
		"pct":         Percent,
		"kb":          func(n int64) int64 { return (n + 1023) / 1024 },
		"tabs":        func() []editor.Tab { return editor.Tabs },
		"modes":       func() []editor.InsertMode { return editor.Modes },
		"tones":       func() []string { return editor.Tones },
		"slots":       func() []editor.Slot { return []editor.Slot{editor.SlotFeatured, editor.SlotOG} },
		"slotLabel":   SlotLabel,
		"slotImage":   SlotImage,
		"activeClass": ActiveClass,
	}
}

// ActiveClass marks the selected item of a filter or tab bar.
func ActiveClass(active bool) string {
	if active {
		return "active"
	}
	return ""
}

// RichText sanitizes stored post or page HTML for output.
func RichText(s string) template.HTML {
	return template.HTML(richtext.Sanitize(s))
}

// Trusted marks administrator-authored snippets (site head and body
// scripts) as safe.
func Trusted(s string) template.HTML {
	return template.HTML(s)
}

// FormatDate renders t as "January 2, 2006", or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// Percent returns part as a whole-number percentage of total.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}

// SlotLabel names an image slot in the composer.
func SlotLabel(s editor.Slot) string {
	if s == editor.SlotOG {
		return "Open Graph image"
	}
	return "Featured image"
}

// SlotImage returns the image currently assigned to s.
func SlotImage(d editor.Draft, s editor.Slot) *editor.Image {
	if s == editor.SlotOG {
		return d.OGImage
	}
	return d.FeaturedImage
}
