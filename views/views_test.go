package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressroom"
	"github.com/eringen/pressroom/analytics"
	"github.com/eringen/pressroom/consent"
	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/media"
	"github.com/eringen/pressroom/settings"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func testShell(state consent.State) pressroom.Shell {
	st := settings.Defaults()
	return pressroom.Shell{
		SiteName:  "Penguin Cooling",
		Settings:  st,
		Meta:      settings.BuildMetadata(st, "https://example.com"),
		Page:      pressroom.PageMeta{Title: "Home", URL: "https://example.com/", OGType: "website"},
		Consent:   state,
		Analytics: consent.NewLoader(""),
		CSRFToken: "tok123",
	}
}

func testPost() pressroom.BlogPost {
	return pressroom.BlogPost{
		Draft: editor.Draft{
			ID:      "p1",
			Title:   "Choosing a chiller",
			Slug:    "choosing-a-chiller",
			Status:  editor.StatusPublished,
			Content: "<p>Hello</p><script>alert(1)</script>",
		},
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Len(t, r.pages, len(pages))
}

func TestConsentPromptAndTagManager(t *testing.T) {
	v := Must().Funcs()

	out := render(t, v.Home(testShell(consent.Undecided), nil, nil))
	assert.Contains(t, out, `id="cookie-consent"`)
	assert.Contains(t, out, `value="tok123"`)
	assert.NotContains(t, out, "googletagmanager.com")

	out = render(t, v.Home(testShell(consent.Accepted), nil, nil))
	assert.NotContains(t, out, `id="cookie-consent"`)
	assert.Contains(t, out, "GTM-N5D27MCH")
	assert.Contains(t, out, "googletagmanager.com/ns.html")

	out = render(t, v.Home(testShell(consent.Declined), nil, nil))
	assert.NotContains(t, out, `id="cookie-consent"`)
	assert.NotContains(t, out, "googletagmanager.com")
}

func TestLayoutCarriesSettings(t *testing.T) {
	shell := testShell(consent.Accepted)
	shell.Settings.Scripts.Head = `<meta name="verify" content="abc">`
	shell.Settings.PrimaryColor = "#ff0000"
	shell.Page.JSONLD = `{"@type":"WebSite"}`

	out := render(t, Must().Funcs().NotFound(shell))
	assert.Contains(t, out, `<meta name="verify" content="abc">`)
	assert.Contains(t, out, "--primary-color: #ff0000")
	assert.Contains(t, out, `{"@type":"WebSite"}`)
	assert.Contains(t, out, "application/json+oembed")
	assert.Contains(t, out, "Page not found")
}

func TestPostSanitizesContent(t *testing.T) {
	out := render(t, Must().Funcs().Post(testShell(consent.Accepted), testPost(), "Chillers", nil))
	assert.Contains(t, out, "<p>Hello</p>")
	assert.NotContains(t, out, "alert(1)")
	assert.Contains(t, out, "Chillers")
	assert.Contains(t, out, "March 1, 2024")
}

func TestBlogIndexMarksActiveCategory(t *testing.T) {
	cats := []pressroom.Category{{ID: "c1", Name: "Chillers", Slug: "chillers"}}
	out := render(t, Must().Funcs().BlogIndex(testShell(consent.Accepted), []pressroom.BlogPost{testPost()}, "chillers", cats))
	assert.Contains(t, out, `href="/blog/?category=chillers" class="active"`)
	assert.Contains(t, out, "/blog/choosing-a-chiller/")
}

func TestEditorTabs(t *testing.T) {
	v := Must().Funcs()
	f := editor.NewForm(nil, editor.WithCategories([]editor.Category{{ID: "c1", Name: "Chillers"}}))
	f.Edit(func(d *editor.Draft) {
		d.Title = "Cold rooms"
		d.Content = "<h2>Sizing</h2><p>Body text</p>"
	})

	view := func() pressroom.EditorView {
		return pressroom.EditorView{
			Workspace: "ws1",
			Form:      f.Snapshot(),
			SEO:       f.SEO(),
			Analysis:  f.Analyze(),
			Preview:   f.Preview(),
			Library:   nil,
		}
	}

	out := render(t, v.AdminEditor(testShell(consent.Accepted), view()))
	assert.Contains(t, out, `action="/admin/editor/ws1/"`)
	assert.Contains(t, out, `formaction="/admin/editor/ws1/upload/featured-image/"`)
	assert.Contains(t, out, "Full Blog Post")

	f.SwitchTab(editor.TabSEO)
	out = render(t, v.AdminEditor(testShell(consent.Accepted), view()))
	assert.Contains(t, out, `name="metaTitle"`)
	assert.Contains(t, out, "seo/suggest/?kind=title")

	f.SwitchTab(editor.TabPreview)
	out = render(t, v.AdminEditor(testShell(consent.Accepted), view()))
	assert.Contains(t, out, "<h2>Sizing</h2>")
	assert.Contains(t, out, "min read")
}

func TestAdminPages(t *testing.T) {
	v := Must().Funcs()
	shell := testShell(consent.Accepted)
	shell.Admin = true

	out := render(t, v.AdminDashboard(shell, []pressroom.BlogPost{testPost()}, "deleted"))
	assert.Contains(t, out, "Post deleted.")
	assert.Contains(t, out, "/admin/editor/edit/p1/")

	out = render(t, v.AdminMedia(shell, []media.File{{ID: "m1", URL: "/uploads/a.jpg", OriginalName: "a.jpg", Size: 2048}}, ""))
	assert.Contains(t, out, "/admin/media/m1/delete/")
	assert.Contains(t, out, "2 KB")

	stats := &analytics.Stats{
		UniqueVisitors: 3,
		TotalViews:     4,
		Browsers:       []analytics.DimensionStat{{Name: "Firefox", Count: 2}},
	}
	out = render(t, v.AdminAnalytics(shell, "week", stats))
	assert.Contains(t, out, "Firefox")
	assert.Contains(t, out, "50%")

	out = render(t, v.AdminSettings(shell, settings.Defaults(), "saved"))
	assert.Contains(t, out, "Settings saved.")
	assert.Contains(t, out, `value="#3b82f6"`)

	out = render(t, v.AdminLogin(shell, true))
	assert.Contains(t, out, "Invalid password.")
}
