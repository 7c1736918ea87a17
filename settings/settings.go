// Package settings holds the site-wide configuration bag rendered into every
// page and loads it with a bounded-time fetch that falls back to defaults.
package settings

import (
	"fmt"
	"regexp"
	"strings"
)

// Settings is the read-mostly configuration fetched once per render.
type Settings struct {
	Title           string       `json:"title,omitempty"`
	Description     string       `json:"description,omitempty"`
	MetaTitle       string       `json:"metaTitle,omitempty"`
	MetaDescription string       `json:"metaDescription,omitempty"`
	MetaKeywords    string       `json:"metaKeywords,omitempty"`
	CanonicalURL    string       `json:"canonicalUrl,omitempty"`
	PrimaryColor    string       `json:"primaryColor,omitempty"`
	NavTitles       NavTitles    `json:"navTitles"`
	Scripts         Scripts      `json:"scripts"`
	OGImage         *Image       `json:"ogImage,omitempty"`
	SocialLinks     *SocialLinks `json:"socialLinks,omitempty"`
}

// NavTitles carries navigation colors.
type NavTitles struct {
	TextColor string `json:"textColor,omitempty"`
	IconColor string `json:"iconColor,omitempty"`
}

// Scripts are raw HTML snippets injected by site administrators.
type Scripts struct {
	Head string `json:"head"`
	Body string `json:"body"`
}

// Image references a hosted image.
type Image struct {
	URL string `json:"url"`
}

// SocialLinks are the site's social profiles.
type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

// Defaults is substituted whenever settings cannot be fetched in time.
func Defaults() Settings {
	return Settings{
		PrimaryColor: "#3b82f6",
		NavTitles: NavTitles{
			TextColor: "#000000",
			IconColor: "#000000",
		},
	}
}

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)

// CSSVars renders the color custom properties for the root element's style
// attribute. Values that are not plain colors are skipped.
func (s Settings) CSSVars() string {
	var parts []string
	add := func(name, value string) {
		value = strings.TrimSpace(value)
		if value == "" || !colorPattern.MatchString(value) {
			return
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, value))
	}
	add("--primary-color", s.PrimaryColor)
	add("--nav-text-color", s.NavTitles.TextColor)
	add("--nav-icon-color", s.NavTitles.IconColor)
	return strings.Join(parts, "; ")
}

// Keywords splits MetaKeywords on commas.
func (s Settings) Keywords() []string {
	if strings.TrimSpace(s.MetaKeywords) == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(s.MetaKeywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// OGImageURL returns the OG image URL or "".
func (s Settings) OGImageURL() string {
	if s.OGImage == nil {
		return ""
	}
	return s.OGImage.URL
}
