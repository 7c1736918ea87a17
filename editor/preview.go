package editor

import (
	"github.com/eringen/pressroom/richtext"
)

// Preview is the rendered view of a draft shown on the preview tab.
type Preview struct {
	Title          string
	Excerpt        string
	Category       string
	HTML           string
	Text           string
	Words          int
	ReadingMinutes int
	FeaturedImage  *Image
	Empty          bool
}

// Preview renders the draft as a reader would see it.
func (f *Form) Preview() Preview {
	f.mu.Lock()
	d := f.draft
	cat := categoryName(f.categories, d.CategoryID)
	img := cloneImage(d.FeaturedImage)
	f.mu.Unlock()

	html := richtext.Sanitize(d.Content)
	return Preview{
		Title:          d.Title,
		Excerpt:        d.Excerpt,
		Category:       cat,
		HTML:           html,
		Text:           richtext.PlainText(html),
		Words:          richtext.WordCount(html),
		ReadingMinutes: richtext.ReadingMinutes(html),
		FeaturedImage:  img,
		Empty:          richtext.IsEmpty(d.Content),
	}
}
