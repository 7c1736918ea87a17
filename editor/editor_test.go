package editor

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSaver struct {
	created []Draft
	updated []Draft
	err     error
}

func (s *fakeSaver) CreateBlog(_ context.Context, d Draft) (Draft, error) {
	if s.err != nil {
		return Draft{}, s.err
	}
	s.created = append(s.created, d)
	d.ID = "new-id"
	return d, nil
}

func (s *fakeSaver) UpdateBlog(_ context.Context, id string, d Draft) (Draft, error) {
	if s.err != nil {
		return Draft{}, s.err
	}
	d.ID = id
	s.updated = append(s.updated, d)
	return d, nil
}

func (s *fakeSaver) calls() int { return len(s.created) + len(s.updated) }

type fakeMedia struct {
	mu      sync.Mutex
	deletes []string
	block   chan struct{}
	err     error
	delErr  error
	library bool
}

func (m *fakeMedia) UploadFile(ctx context.Context, up Upload) (Image, error) {
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return Image{}, m.err
	}
	return Image{ID: "file-" + up.Filename, URL: "/uploads/" + up.Filename, FromMediaLibrary: m.library}, nil
}

func (m *fakeMedia) DeleteFile(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	return m.delErr
}

type serverErr struct{ msg string }

func (e serverErr) Error() string         { return "server: " + e.msg }
func (e serverErr) ServerMessage() string { return e.msg }

type generatorFunc func(ctx context.Context, req GenerationRequest) (GenerationResponse, error)

func (f generatorFunc) GenerateContent(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	return f(ctx, req)
}

func TestDeriveSlug(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":               "hello-world",
		"  Summer   Servicing  Tips ": "summer-servicing-tips",
		"Hi !":                        "hi",
		"snake_case stays":            "snake_case-stays",
		"Chiller\u00a0Guide":          "chiller-guide",
		"Tab\vand\u3000ideographic":   "tab-and-ideographic",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, DeriveSlug(in), in)
	}
}

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft()
	assert.Equal(t, StatusDraft, d.Status)
	assert.Equal(t, "index, follow", d.Robots)
	assert.True(t, d.IsIndexing)
}

func TestSubmitDerivesSlug(t *testing.T) {
	f := NewForm(nil)
	f.Edit(func(d *Draft) {
		d.Title = "Hello, World!"
		d.Content = "<p>Body</p>"
	})
	saver := &fakeSaver{}

	res, err := f.Submit(context.Background(), saver)
	require.NoError(t, err)
	require.Len(t, saver.created, 1)
	assert.Equal(t, "hello-world", saver.created[0].Slug)
	assert.True(t, res.Created)
	assert.Equal(t, "Blog post saved successfully!", res.Message)

	snap := f.Snapshot()
	assert.Equal(t, "new-id", snap.Draft.ID)
	assert.True(t, snap.Editing)
}

func TestSubmitKeepsExplicitSlug(t *testing.T) {
	f := NewForm(nil)
	f.ApplyValues(url.Values{"title": {"Hello"}, "slug": {"custom"}, "content": {"<p>x</p>"}})
	saver := &fakeSaver{}
	_, err := f.Submit(context.Background(), saver)
	require.NoError(t, err)
	assert.Equal(t, "custom", saver.created[0].Slug)
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	for _, content := range []string{"", "<p></p>"} {
		f := NewForm(nil)
		f.Edit(func(d *Draft) {
			d.Title = "Title"
			d.Content = content
		})
		saver := &fakeSaver{}

		_, err := f.Submit(context.Background(), saver)
		assert.ErrorIs(t, err, ErrEmptyContent)
		assert.Zero(t, saver.calls(), "no network call for %q", content)
		snap := f.Snapshot()
		assert.Equal(t, "Content cannot be empty", snap.Status)
		assert.True(t, snap.ShowEmptyContentError())
	}
}

func TestSubmitUpdatesExisting(t *testing.T) {
	initial := NewDraft()
	initial.ID = "42"
	initial.Title = "Existing"
	initial.Slug = "existing"
	initial.Content = "<p>old</p>"
	f := NewForm(&initial)
	saver := &fakeSaver{}

	res, err := f.Submit(context.Background(), saver)
	require.NoError(t, err)
	require.Len(t, saver.updated, 1)
	assert.Empty(t, saver.created)
	assert.Equal(t, "42", saver.updated[0].ID)
	assert.Equal(t, "Blog post updated successfully!", res.Message)
}

func TestSubmitFailureSetsStatus(t *testing.T) {
	f := NewForm(nil)
	f.Edit(func(d *Draft) { d.Content = "<p>x</p>" })
	_, err := f.Submit(context.Background(), &fakeSaver{err: serverErr{msg: "slug already exists"}})
	require.Error(t, err)
	assert.Equal(t, "Error: slug already exists", f.Snapshot().Status)
}

func TestTabSwitchKeepsEdits(t *testing.T) {
	f := NewForm(nil)
	f.ApplyValues(url.Values{"title": {"Draft title"}, "content": {"<p>hello</p>"}})
	f.SwitchTab(TabSEO)
	f.ApplyValues(url.Values{"metaTitle": {"Meta"}})
	f.SwitchTab(TabPreview)
	f.SwitchTab(TabContent)

	snap := f.Snapshot()
	assert.Equal(t, TabContent, snap.Tab)
	assert.Equal(t, "Draft title", snap.Draft.Title)
	assert.Equal(t, "<p>hello</p>", snap.Draft.Content)
	assert.Equal(t, "Meta", snap.Draft.MetaTitle)
}

func TestApplyValuesCheckbox(t *testing.T) {
	f := NewForm(nil)
	f.ApplyValues(url.Values{"isIndexing": {"false"}})
	assert.False(t, f.Snapshot().Draft.IsIndexing)
	f.ApplyValues(url.Values{"isIndexing": {"false", "true"}})
	assert.True(t, f.Snapshot().Draft.IsIndexing)
	f.ApplyValues(url.Values{"status": {"published"}})
	assert.Equal(t, StatusPublished, f.Snapshot().Draft.Status)
}

func TestParseTab(t *testing.T) {
	assert.Equal(t, TabSEO, ParseTab("seo"))
	assert.Equal(t, TabPreview, ParseTab("preview"))
	assert.Equal(t, TabContent, ParseTab("bogus"))
}

func TestRemoveLibraryImageSkipsDelete(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{}
	f.SelectFromLibrary(SlotFeatured, Image{ID: "lib-1", URL: "/uploads/lib.jpg", MediaID: "m1"})
	assert.True(t, f.Snapshot().Draft.FeaturedImage.FromMediaLibrary)

	f.Remove(context.Background(), media, SlotFeatured)
	assert.Empty(t, media.deletes)
	assert.Nil(t, f.Snapshot().Draft.FeaturedImage)
}

func TestRemoveDirectUploadDeletes(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{}
	img, err := f.Upload(context.Background(), media, SlotFeatured, Upload{Filename: "a.jpg"})
	require.NoError(t, err)
	assert.False(t, img.FromMediaLibrary)

	f.Remove(context.Background(), media, SlotFeatured)
	assert.Equal(t, []string{"file-a.jpg"}, media.deletes)
	assert.Nil(t, f.Snapshot().Draft.FeaturedImage)
}

func TestRemoveIgnoresDeleteFailure(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{delErr: errors.New("gone")}
	_, err := f.Upload(context.Background(), media, SlotOG, Upload{Filename: "og.png"})
	require.NoError(t, err)

	f.Remove(context.Background(), media, SlotOG)
	snap := f.Snapshot()
	assert.Nil(t, snap.Draft.OGImage)
	assert.Empty(t, snap.Slot(SlotOG).Err)
}

func TestUploadRefusedWhileInFlight(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{block: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := f.Upload(context.Background(), media, SlotFeatured, Upload{Filename: "slow.jpg"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.Snapshot().Slot(SlotFeatured).Loading
	}, time.Second, 5*time.Millisecond)

	_, err := f.Upload(context.Background(), media, SlotFeatured, Upload{Filename: "second.jpg"})
	assert.ErrorIs(t, err, ErrUploadInFlight)

	// The other slot is independent.
	other := &fakeMedia{}
	_, err = f.Upload(context.Background(), other, SlotOG, Upload{Filename: "og.jpg"})
	assert.NoError(t, err)

	close(media.block)
	require.NoError(t, <-done)
	snap := f.Snapshot()
	assert.False(t, snap.Slot(SlotFeatured).Loading)
	assert.Equal(t, "file-slow.jpg", snap.Draft.FeaturedImage.ID)
}

func TestLibrarySelectDuringUploadWins(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{block: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := f.Upload(context.Background(), media, SlotFeatured, Upload{Filename: "slow.jpg"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.Snapshot().Slot(SlotFeatured).Loading
	}, time.Second, 5*time.Millisecond)

	f.SelectFromLibrary(SlotFeatured, Image{ID: "lib-1", URL: "/uploads/lib.jpg"})
	assert.True(t, f.Snapshot().Slot(SlotFeatured).Loading)

	_, err := f.Upload(context.Background(), media, SlotFeatured, Upload{Filename: "second.jpg"})
	assert.ErrorIs(t, err, ErrUploadInFlight)

	close(media.block)
	assert.ErrorIs(t, <-done, ErrUploadSuperseded)

	snap := f.Snapshot()
	assert.False(t, snap.Slot(SlotFeatured).Loading)
	require.NotNil(t, snap.Draft.FeaturedImage)
	assert.Equal(t, "lib-1", snap.Draft.FeaturedImage.ID)
	assert.True(t, snap.Draft.FeaturedImage.FromMediaLibrary)
	assert.Equal(t, []string{"file-slow.jpg"}, media.deletes)
}

func TestRemoveDuringUploadKeepsSlotEmpty(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{block: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := f.Upload(context.Background(), media, SlotOG, Upload{Filename: "og.jpg"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.Snapshot().Slot(SlotOG).Loading
	}, time.Second, 5*time.Millisecond)

	f.Remove(context.Background(), media, SlotOG)
	assert.True(t, f.Snapshot().Slot(SlotOG).Loading)

	close(media.block)
	assert.ErrorIs(t, <-done, ErrUploadSuperseded)

	snap := f.Snapshot()
	assert.Nil(t, snap.Draft.OGImage)
	assert.False(t, snap.Slot(SlotOG).Loading)
	assert.Equal(t, []string{"file-og.jpg"}, media.deletes)
}

func TestUploadKeepsServerLibraryFlag(t *testing.T) {
	f := NewForm(nil)
	media := &fakeMedia{library: true}
	img, err := f.Upload(context.Background(), media, SlotFeatured, Upload{Filename: "shared.jpg"})
	require.NoError(t, err)
	assert.True(t, img.FromMediaLibrary)

	f.Remove(context.Background(), media, SlotFeatured)
	assert.Empty(t, media.deletes)
	assert.Nil(t, f.Snapshot().Draft.FeaturedImage)
}

func TestUploadFailureSetsSlotError(t *testing.T) {
	f := NewForm(nil)
	_, err := f.Upload(context.Background(), &fakeMedia{err: errors.New("dial tcp")}, SlotFeatured, Upload{Filename: "a.jpg"})
	require.Error(t, err)
	assert.Equal(t, "Failed to upload image.", f.Snapshot().Slot(SlotFeatured).Err)

	_, err = f.Upload(context.Background(), &fakeMedia{err: serverErr{msg: "file too large"}}, SlotOG, Upload{Filename: "b.jpg"})
	require.Error(t, err)
	snap := f.Snapshot()
	assert.Equal(t, "file too large", snap.Slot(SlotOG).Err)
	assert.Equal(t, "Failed to upload image.", snap.Slot(SlotFeatured).Err)
}

func TestMerge(t *testing.T) {
	assert.Equal(t, "<p>new</p>", Merge("<p>old</p>", "<p>new</p>", ModeFull))
	assert.Equal(t, "<p>new</p><p>old</p>", Merge("<p>old</p>", "<p>new</p>", ModeIntro))
	assert.Equal(t, "<p>old</p><p>new</p>", Merge("<p>old</p>", "<p>new</p>", ModeConclusion))
	assert.Equal(t, "<p>old</p>\n\n<p>new</p>", Merge("<p>old</p>", "<p>new</p>", ModeSection))
}

func TestGenerateStagesUntilApplied(t *testing.T) {
	f := NewForm(nil, WithCategories([]Category{{ID: "c1", Name: "Refrigeration"}}))
	f.Edit(func(d *Draft) {
		d.Title = "Cold rooms"
		d.MetaDescription = "meta desc"
		d.MetaKeywords = "cold, rooms"
		d.CategoryID = "c1"
		d.Content = "<p>prior</p>"
	})

	var got GenerationRequest
	gen := generatorFunc(func(_ context.Context, req GenerationRequest) (GenerationResponse, error) {
		got = req
		return GenerationResponse{GeneratedContent: "<p>more</p>"}, nil
	})

	_, err := f.Generate(context.Background(), gen, ModeConclusion, "", "be brief")
	require.NoError(t, err)
	assert.Equal(t, GenerationRequest{
		Title:           "Cold rooms",
		Description:     "meta desc",
		Keywords:        "cold, rooms",
		Category:        "Refrigeration",
		ContentType:     "conclusion",
		Tone:            "professional",
		CustomPrompt:    "be brief",
		ExistingContent: "<p>prior</p>",
	}, got)

	snap := f.Snapshot()
	require.NotNil(t, snap.Pending)
	assert.Equal(t, "<p>prior</p>", snap.Draft.Content)

	require.True(t, f.ApplyGenerated())
	snap = f.Snapshot()
	assert.Equal(t, "<p>prior</p><p>more</p>", snap.Draft.Content)
	assert.Nil(t, snap.Pending)
	assert.False(t, f.ApplyGenerated())
}

func TestGenerateDiscard(t *testing.T) {
	f := NewForm(nil)
	f.Edit(func(d *Draft) {
		d.Title = "T"
		d.Content = "<p>keep</p>"
	})
	gen := generatorFunc(func(context.Context, GenerationRequest) (GenerationResponse, error) {
		return GenerationResponse{GeneratedContent: "<p>x</p>"}, nil
	})
	_, err := f.Generate(context.Background(), gen, ModeFull, "friendly", "")
	require.NoError(t, err)
	f.DiscardGenerated()
	snap := f.Snapshot()
	assert.Nil(t, snap.Pending)
	assert.Equal(t, "<p>keep</p>", snap.Draft.Content)
}

func TestGenerateEmptyResult(t *testing.T) {
	f := NewForm(nil)
	f.Edit(func(d *Draft) { d.Title = "T" })
	gen := generatorFunc(func(context.Context, GenerationRequest) (GenerationResponse, error) {
		return GenerationResponse{}, nil
	})
	_, err := f.Generate(context.Background(), gen, ModeFull, "", "")
	assert.ErrorIs(t, err, ErrNoContentGenerated)
	assert.Equal(t, "Error generating content: No content generated", f.Snapshot().Status)
}

func TestGenerateRequiresTitle(t *testing.T) {
	f := NewForm(nil)
	called := false
	gen := generatorFunc(func(context.Context, GenerationRequest) (GenerationResponse, error) {
		called = true
		return GenerationResponse{}, nil
	})
	_, err := f.Generate(context.Background(), gen, ModeFull, "", "")
	assert.ErrorIs(t, err, ErrTitleRequired)
	assert.False(t, called)
}

func TestSEOHelpers(t *testing.T) {
	f := NewForm(nil)
	f.Edit(func(d *Draft) {
		d.Title = "Title"
		d.Excerpt = "Excerpt"
		d.MetaDescription = "Existing description"
	})
	seo := f.SEO()
	assert.Equal(t, "Title", seo.MetaTitle)
	assert.Equal(t, "Existing description", seo.Description)
	assert.Equal(t, "blog", seo.ContentType)

	assert.True(t, f.ApplySuggestion("title", "Better title"))
	assert.False(t, f.ApplySuggestion("unknown", "x"))
	assert.Equal(t, "Better title", f.Snapshot().Draft.MetaTitle)

	f.ApplyAnalysis(Analysis{
		TitleSuggestion:            "ignored",
		MetaDescriptionSuggestions: []string{"ignored too"},
		RecommendedKeywords:        []string{"cooling", "repairs"},
	})
	d := f.Snapshot().Draft
	assert.Equal(t, "Better title", d.MetaTitle)
	assert.Equal(t, "Existing description", d.MetaDescription)
	assert.Equal(t, "cooling, repairs", d.MetaKeywords)
}

func TestAnalyze(t *testing.T) {
	f := NewForm(nil)
	f.Edit(func(d *Draft) {
		d.Title = "Guide"
		d.Excerpt = "Short excerpt"
		d.Content = "<h2>Cold Rooms</h2><p>Some words here.</p><h3>Cold rooms</h3>"
	})
	a := f.Analyze()
	assert.Equal(t, "Guide", a.TitleSuggestion)
	assert.Equal(t, []string{"cold rooms"}, a.RecommendedKeywords)
	assert.Contains(t, a.MetaDescriptionSuggestions, "Short excerpt")
	assert.Contains(t, a.Warnings, "Add a meta description")
}

func TestPreview(t *testing.T) {
	f := NewForm(nil, WithCategories([]Category{{ID: "c", Name: "News"}}))
	f.Edit(func(d *Draft) {
		d.CategoryID = "c"
		d.Content = `<p onclick="x()">Hello <b>there</b></p><script>alert(1)</script>`
	})
	p := f.Preview()
	assert.Equal(t, "News", p.Category)
	assert.NotContains(t, p.HTML, "script")
	assert.NotContains(t, p.HTML, "onclick")
	assert.Equal(t, "Hello there", p.Text)
	assert.Equal(t, 2, p.Words)
	assert.Equal(t, 1, p.ReadingMinutes)
}

func TestWorkspace(t *testing.T) {
	w := NewWorkspace(time.Hour)
	defer w.Stop()

	id := w.Open(NewForm(nil))
	f, ok := w.Get(id)
	require.True(t, ok)
	require.NotNil(t, f)
	assert.Equal(t, 1, w.Len())

	w.expire(time.Now().Add(time.Minute))
	_, ok = w.Get(id)
	assert.False(t, ok)

	id = w.Open(NewForm(nil))
	w.Close(id)
	assert.Zero(t, w.Len())
}
