package editor

import (
	"strings"

	"github.com/eringen/pressroom/richtext"
)

// SEOData is the SEO panel's view of a draft.
type SEOData struct {
	Title        string `json:"title"`
	MetaTitle    string `json:"metaTitle"`
	Description  string `json:"description"`
	Slug         string `json:"slug"`
	MetaKeywords string `json:"metaKeywords"`
	Robots       string `json:"robots"`
	OGImage      *Image `json:"ogImage"`
	ContentType  string `json:"contentType"`
	Category     string `json:"category"`
	CategoryName string `json:"categoryName"`
}

// Analysis is an SEO review of a draft.
type Analysis struct {
	TitleSuggestion            string   `json:"titleSuggestion"`
	MetaDescriptionSuggestions []string `json:"metaDescriptionSuggestions"`
	RecommendedKeywords        []string `json:"recommendedKeywords"`
	TitleLength                int      `json:"titleLength"`
	MetaDescriptionLength      int      `json:"metaDescriptionLength"`
	WordCount                  int      `json:"wordCount"`
	Warnings                   []string `json:"warnings,omitempty"`
}

// Recommended lengths for search snippets.
const (
	maxMetaTitle       = 60
	maxMetaDescription = 160
	minWordCount       = 300
)

// SEO returns the panel data with its fallbacks applied.
func (f *Form) SEO() SEOData {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	return SEOData{
		Title:        d.Title,
		MetaTitle:    firstNonEmpty(d.MetaTitle, d.Title),
		Description:  firstNonEmpty(d.MetaDescription, d.Excerpt),
		Slug:         d.Slug,
		MetaKeywords: d.MetaKeywords,
		Robots:       firstNonEmpty(d.Robots, DefaultRobots),
		OGImage:      cloneImage(d.OGImage),
		ContentType:  "blog",
		Category:     d.CategoryID,
		CategoryName: categoryName(f.categories, d.CategoryID),
	}
}

// ApplySuggestion sets one SEO field. It reports whether kind was known.
func (f *Form) ApplySuggestion(kind, value string) bool {
	var ok bool
	f.Edit(func(d *Draft) {
		switch kind {
		case "title":
			d.MetaTitle, ok = value, true
		case "metaDescription":
			d.MetaDescription, ok = value, true
		case "keywords":
			d.MetaKeywords, ok = value, true
		}
	})
	return ok
}

// ApplyAnalysis fills meta fields from an analysis, touching only fields
// that are still empty.
func (f *Form) ApplyAnalysis(a Analysis) {
	f.Edit(func(d *Draft) {
		if a.TitleSuggestion != "" && d.MetaTitle == "" {
			d.MetaTitle = a.TitleSuggestion
		}
		if len(a.MetaDescriptionSuggestions) > 0 && a.MetaDescriptionSuggestions[0] != "" && d.MetaDescription == "" {
			d.MetaDescription = a.MetaDescriptionSuggestions[0]
		}
		if len(a.RecommendedKeywords) > 0 && d.MetaKeywords == "" {
			d.MetaKeywords = strings.Join(a.RecommendedKeywords, ", ")
		}
	})
}

// Analyze reviews the draft locally: snippet lengths, body length and
// suggestions derived from the title, excerpt and headings.
func (f *Form) Analyze() Analysis {
	f.mu.Lock()
	d := f.draft
	f.mu.Unlock()

	text := richtext.PlainText(d.Content)
	a := Analysis{
		TitleSuggestion: truncate(firstNonEmpty(d.MetaTitle, d.Title), maxMetaTitle),
		WordCount:       richtext.WordCount(d.Content),
	}
	a.TitleLength = len([]rune(firstNonEmpty(d.MetaTitle, d.Title)))
	a.MetaDescriptionLength = len([]rune(d.MetaDescription))

	for _, cand := range []string{d.Excerpt, text} {
		if s := truncate(strings.TrimSpace(cand), maxMetaDescription); s != "" {
			a.MetaDescriptionSuggestions = append(a.MetaDescriptionSuggestions, s)
		}
	}
	a.RecommendedKeywords = headingKeywords(d.Content)

	if a.TitleLength == 0 {
		a.Warnings = append(a.Warnings, "Add a title")
	} else if a.TitleLength > maxMetaTitle {
		a.Warnings = append(a.Warnings, "Meta title is longer than 60 characters")
	}
	if a.MetaDescriptionLength == 0 {
		a.Warnings = append(a.Warnings, "Add a meta description")
	} else if a.MetaDescriptionLength > maxMetaDescription {
		a.Warnings = append(a.Warnings, "Meta description is longer than 160 characters")
	}
	if a.WordCount < minWordCount {
		a.Warnings = append(a.Warnings, "Content is shorter than 300 words")
	}
	return a
}

func headingKeywords(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range richtext.Headings(content) {
		k := strings.ToLower(strings.TrimSpace(h))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
