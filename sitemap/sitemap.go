// Package sitemap builds the site's URL list from published pages and posts.
// Generation never fails: when the content source is unavailable the list
// degrades to the site root.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/pressroom/metrics"
)

// ChangeFrequency is the crawler hint for how often a URL changes.
type ChangeFrequency string

const (
	Daily   ChangeFrequency = "daily"
	Weekly  ChangeFrequency = "weekly"
	Monthly ChangeFrequency = "monthly"
	Yearly  ChangeFrequency = "yearly"
)

// Entry is one sitemap URL.
type Entry struct {
	URL             string          `json:"url"`
	LastModified    time.Time       `json:"lastModified"`
	ChangeFrequency ChangeFrequency `json:"changeFrequency"`
	Priority        float64         `json:"priority"`
}

// PageRef is a published CMS page as reported by the content service.
type PageRef struct {
	Slug       string `json:"slug"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
	IsMainPage bool   `json:"isMainPage"`
}

// BlogRef is a published post as reported by the content service.
type BlogRef struct {
	Slug      string `json:"slug"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Data is the content service's sitemap payload.
type Data struct {
	Pages []PageRef `json:"pages"`
	Blogs []BlogRef `json:"blogs"`
}

// Source returns published pages and posts.
type Source interface {
	SitemapData(ctx context.Context) (Data, error)
}

type staticPath struct {
	path     string
	freq     ChangeFrequency
	priority float64
}

var staticPaths = []staticPath{
	{"/contact", Monthly, 0.7},
	{"/blog", Daily, 0.8},
	{"/privacy-policy", Yearly, 0.5},
	{"/terms-conditions", Yearly, 0.5},
	{"/cookie-policy", Yearly, 0.5},
}

// Generator produces sitemap entries for one site.
type Generator struct {
	baseURL string
	source  Source
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger that receives fetch and date errors.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the generation time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a Generator for baseURL reading from src.
func New(baseURL string, src Source, opts ...Option) *Generator {
	g := &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  src,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the static set, then pages, then posts. The site root is
// always present.
func (g *Generator) Generate(ctx context.Context) []Entry {
	now := g.now().UTC()
	data, err := g.source.SitemapData(ctx)
	if err != nil {
		metrics.SitemapFallbacks.Inc()
		g.logger.Error("error generating sitemap", zap.Error(err))
		return Fallback(g.baseURL, now)
	}

	entries := make([]Entry, 0, len(staticPaths)+len(data.Pages)+len(data.Blogs)+1)
	for _, sp := range staticPaths {
		entries = append(entries, Entry{
			URL:             g.baseURL + sp.path,
			LastModified:    now,
			ChangeFrequency: sp.freq,
			Priority:        sp.priority,
		})
	}

	hasRoot := false
	for _, p := range data.Pages {
		e := Entry{
			URL:             g.baseURL + "/" + p.Slug,
			LastModified:    g.lastModified("page", p.Slug, p.UpdatedAt, now),
			ChangeFrequency: Weekly,
			Priority:        0.8,
		}
		if p.IsMainPage {
			e.URL = g.baseURL
			e.ChangeFrequency = Daily
			e.Priority = 1
			hasRoot = true
		}
		entries = append(entries, e)
	}
	if !hasRoot {
		entries = append(entries, rootEntry(g.baseURL, now))
	}

	for _, b := range data.Blogs {
		entries = append(entries, Entry{
			URL:             g.baseURL + "/blog/" + b.Slug,
			LastModified:    g.lastModified("blog", b.Slug, b.UpdatedAt, now),
			ChangeFrequency: Weekly,
			Priority:        0.7,
		})
	}
	g.logger.Debug("sitemap generated", zap.Int("urls", len(entries)))
	return entries
}

func (g *Generator) lastModified(kind, slug, raw string, now time.Time) time.Time {
	if raw == "" {
		return now
	}
	t, err := ParseTime(raw)
	if err != nil {
		g.logger.Warn("invalid date for "+kind, zap.String("slug", slug), zap.String("updatedAt", raw))
		return now
	}
	return t.UTC()
}

// Fallback is the single-entry list served when generation fails.
func Fallback(baseURL string, now time.Time) []Entry {
	return []Entry{rootEntry(strings.TrimRight(baseURL, "/"), now.UTC())}
}

func rootEntry(base string, now time.Time) Entry {
	return Entry{URL: base, LastModified: now, ChangeFrequency: Daily, Priority: 1}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the content service emits.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// WriteXML encodes entries in the sitemaps.org 0.9 format.
func WriteXML(w io.Writer, entries []Entry) error {
	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]xmlURL, 0, len(entries)),
	}
	for _, e := range entries {
		u := xmlURL{
			Loc:        e.URL,
			ChangeFreq: string(e.ChangeFrequency),
			Priority:   fmt.Sprintf("%.1f", e.Priority),
		}
		if !e.LastModified.IsZero() {
			u.LastMod = e.LastModified.UTC().Format(time.RFC3339)
		}
		set.URLs = append(set.URLs, u)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(set)
}
