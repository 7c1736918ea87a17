package settings

import (
	"net/url"
	"strings"
)

// Metadata is the document-level SEO and social data derived from Settings.
type Metadata struct {
	BaseURL     string
	Title       string
	Description string
	Keywords    []string
	URL         string
	Canonical   string
	OGImage     string
	Social      *SocialLinks
	Icons       []Icon
	OEmbedURL   string
	OEmbedTitle string
}

// Icon is one <link> icon entry.
type Icon struct {
	Rel   string
	URL   string
	Sizes string
	Type  string
}

// BuildMetadata derives page metadata from s. baseURL is the canonical site
// origin; its host doubles as the default title and description.
func BuildMetadata(s Settings, baseURL string) Metadata {
	base := strings.TrimRight(baseURL, "/")
	host := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		host = u.Host
	}

	m := Metadata{
		BaseURL:     base,
		Title:       firstNonEmpty(s.MetaTitle, s.Title, host),
		Description: firstNonEmpty(s.MetaDescription, s.Description, host),
		Keywords:    s.Keywords(),
		URL:         firstNonEmpty(s.CanonicalURL, base),
		Canonical:   s.CanonicalURL,
		OGImage:     s.OGImageURL(),
		Social:      s.SocialLinks,
		OEmbedURL:   base + "/api/oembed",
		OEmbedTitle: firstNonEmpty(s.Title, host),
	}
	if m.OGImage != "" {
		m.Icons = []Icon{
			{Rel: "icon", URL: m.OGImage, Sizes: "16x16", Type: "image/png"},
			{Rel: "icon", URL: m.OGImage, Sizes: "32x32", Type: "image/png"},
			{Rel: "icon", URL: m.OGImage, Sizes: "64x64", Type: "image/png"},
			{Rel: "apple-touch-icon", URL: m.OGImage, Sizes: "180x180"},
			{Rel: "shortcut icon", URL: m.OGImage},
			{Rel: "mask-icon", URL: m.OGImage},
		}
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
