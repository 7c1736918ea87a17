package editor

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Tab is one view over the shared draft.
type Tab string

const (
	TabContent Tab = "content"
	TabSEO     Tab = "seo"
	TabPreview Tab = "preview"
)

// Tabs lists the composer tabs in display order.
var Tabs = []Tab{TabContent, TabSEO, TabPreview}

// ParseTab maps a query value to a Tab, defaulting to the content tab.
func ParseTab(s string) Tab {
	switch Tab(s) {
	case TabSEO, TabPreview:
		return Tab(s)
	}
	return TabContent
}

// Status banner messages.
const (
	msgSaving        = "Saving..."
	msgCreated       = "Blog post saved successfully!"
	msgUpdated       = "Blog post updated successfully!"
	msgEmptyContent  = "Content cannot be empty"
	msgUploadFailed  = "Failed to upload image."
	msgGenFailPrefix = "Error generating content: "
	msgNoContent     = "No content generated"
)

// Form is one open composer. All methods are safe for concurrent use; each
// guards the shared draft with the form's mutex and releases it across
// network calls.
type Form struct {
	mu sync.Mutex

	draft      Draft
	editing    bool
	tab        Tab
	slots      map[Slot]SlotState
	seq        map[Slot]uint64
	categories []Category

	generating bool
	pending    *Generated
	submitting bool
	status     string

	logger *zap.Logger
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithLogger sets the logger for ignored failures (delete errors).
func WithLogger(l *zap.Logger) FormOption {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithCategories sets the category list offered by the form.
func WithCategories(cats []Category) FormOption {
	return func(f *Form) { f.categories = cats }
}

// NewForm opens a composer. initial is nil for a new post.
func NewForm(initial *Draft, opts ...FormOption) *Form {
	f := &Form{
		draft:  NewDraft(),
		tab:    TabContent,
		slots:  make(map[Slot]SlotState),
		seq:    make(map[Slot]uint64),
		logger: zap.NewNop(),
	}
	if initial != nil {
		f.draft = *initial
		f.draft.FeaturedImage = cloneImage(initial.FeaturedImage)
		f.draft.OGImage = cloneImage(initial.OGImage)
		f.editing = true
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SwitchTab changes the visible tab. The draft is untouched.
func (f *Form) SwitchTab(t Tab) {
	f.mu.Lock()
	f.tab = t
	f.mu.Unlock()
}

// SetCategories replaces the category list.
func (f *Form) SetCategories(cats []Category) {
	f.mu.Lock()
	f.categories = cats
	f.mu.Unlock()
}

// Edit applies fn to the draft under the form lock.
func (f *Form) Edit(fn func(d *Draft)) {
	f.mu.Lock()
	fn(&f.draft)
	f.mu.Unlock()
}

// SetContent replaces the rich content.
func (f *Form) SetContent(html string) {
	f.Edit(func(d *Draft) { d.Content = html })
}

// ApplyValues merges posted form fields into the draft. Only keys present
// in vals are touched, so a tab that posts a subset of fields never clears
// the others.
func (f *Form) ApplyValues(vals url.Values) {
	str := func(key string, dst *string) {
		if v, ok := vals[key]; ok && len(v) > 0 {
			*dst = v[len(v)-1]
		}
	}
	f.Edit(func(d *Draft) {
		str("title", &d.Title)
		str("slug", &d.Slug)
		str("excerpt", &d.Excerpt)
		str("categoryId", &d.CategoryID)
		str("content", &d.Content)
		str("metaTitle", &d.MetaTitle)
		str("metaDescription", &d.MetaDescription)
		str("metaKeywords", &d.MetaKeywords)
		str("canonicalUrl", &d.CanonicalURL)
		str("robots", &d.Robots)
		if v, ok := vals["status"]; ok && len(v) > 0 {
			d.Status = ParseStatus(v[len(v)-1])
		}
		// Checkboxes post a hidden "false" before the box itself; the last
		// value wins.
		if v, ok := vals["isIndexing"]; ok && len(v) > 0 {
			d.IsIndexing = strings.EqualFold(v[len(v)-1], "true") || v[len(v)-1] == "on"
		}
		d.Title = strings.TrimSpace(d.Title)
		d.Slug = strings.TrimSpace(d.Slug)
	})
}

// Snapshot is a consistent copy of the form for rendering.
type Snapshot struct {
	Draft      Draft
	Editing    bool
	Tab        Tab
	Slots      map[Slot]SlotState
	Categories []Category
	Generating bool
	Pending    *Generated
	Submitting bool
	Status     string
}

// CategoryName resolves the draft's category to a display name.
func (s Snapshot) CategoryName() string {
	return categoryName(s.Categories, s.Draft.CategoryID)
}

// Slot returns the state of one upload slot.
func (s Snapshot) Slot(slot Slot) SlotState {
	return s.Slots[slot]
}

// ShowEmptyContentError reports whether the inline validation message is
// due: the last submission was rejected and content is still empty.
func (s Snapshot) ShowEmptyContentError() bool {
	return ValidateContent(s.Draft.Content) != nil && strings.Contains(s.Status, msgEmptyContent)
}

// Snapshot copies the form state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	d.FeaturedImage = cloneImage(f.draft.FeaturedImage)
	d.OGImage = cloneImage(f.draft.OGImage)
	slots := make(map[Slot]SlotState, len(f.slots))
	for k, v := range f.slots {
		slots[k] = v
	}
	var pending *Generated
	if f.pending != nil {
		p := *f.pending
		pending = &p
	}
	return Snapshot{
		Draft:      d,
		Editing:    f.editing,
		Tab:        f.tab,
		Slots:      slots,
		Categories: append([]Category(nil), f.categories...),
		Generating: f.generating,
		Pending:    pending,
		Submitting: f.submitting,
		Status:     f.status,
	}
}

func categoryName(cats []Category, id string) string {
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func cloneImage(img *Image) *Image {
	if img == nil {
		return nil
	}
	c := *img
	return &c
}

// serverMessage extracts a message the content service returned, if the
// error carries one.
func serverMessage(err error) string {
	var sm interface{ ServerMessage() string }
	if errors.As(err, &sm) {
		return sm.ServerMessage()
	}
	return ""
}
