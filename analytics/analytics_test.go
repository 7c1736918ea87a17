package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/pressroom/consent"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	googleUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua                  string
		browser, os, device string
	}{
		{chromeUA, "Chrome", "Windows", "Desktop"},
		{iphoneUA, "Safari", "iOS", "Mobile"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", "Firefox", "Linux", "Desktop"},
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36 Edg/120.0", "Edge", "Windows", "Desktop"},
		{"", "Other", "Other", "Desktop"},
	}
	for _, tt := range tests {
		b, o, d := ParseUserAgent(tt.ua)
		assert.Equal(t, tt.browser, b, tt.ua)
		assert.Equal(t, tt.os, o, tt.ua)
		assert.Equal(t, tt.device, d, tt.ua)
	}
}

func TestBotName(t *testing.T) {
	assert.Equal(t, "Googlebot", BotName(googleUA))
	assert.Equal(t, "Other Bot", BotName("my-crawler/1.0"))
	assert.Equal(t, "", BotName(chromeUA))
}

func TestCleanReferrer(t *testing.T) {
	assert.Equal(t, "Direct", CleanReferrer("", "example.com"))
	assert.Equal(t, "", CleanReferrer("https://www.example.com/blog", "example.com:8080"))
	assert.Equal(t, "Google", CleanReferrer("https://www.google.co.uk/search?q=x", "example.com"))
	assert.Equal(t, "news.ycombinator.com", CleanReferrer("https://news.ycombinator.com/item?id=1", "example.com"))
	assert.Equal(t, "Other", CleanReferrer("android-app://com.slack", "example.com"))
}

func TestPeriod(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	name, from, _ := Period("today", now)
	assert.Equal(t, "today", name)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), from)

	name, from, _ = Period("bogus", now)
	assert.Equal(t, "week", name)
	assert.Equal(t, now.AddDate(0, 0, -7), from)
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(2)
	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	l.sweep(time.Now().Add(time.Hour))
	assert.Equal(t, 0, l.len())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaltIsStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, err := s.Salt(ctx)
	require.NoError(t, err)
	b, err := s.Salt(ctx)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
}

func TestStoreStatsAndCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	visits := []Visit{
		{VisitorID: "v1", SessionID: "s1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/", Referrer: "Direct", Timestamp: now},
		{VisitorID: "v1", SessionID: "s1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/blog", Referrer: "", Timestamp: now},
		{VisitorID: "v2", SessionID: "s2", IPHash: "h2", Browser: "Safari", OS: "iOS", Device: "Mobile", Path: "/", Referrer: "Google", Timestamp: now},
		{VisitorID: "v3", SessionID: "s3", IPHash: "h3", Browser: "Safari", OS: "iOS", Device: "Mobile", Path: "/old", Timestamp: now.AddDate(0, 0, -400)},
	}
	for _, v := range visits {
		require.NoError(t, s.SaveVisit(ctx, v))
	}
	require.NoError(t, s.SaveBotVisit(ctx, BotVisit{BotName: "Googlebot", IPHash: "b", UserAgent: googleUA, Path: "/", Timestamp: now}))

	st, err := s.Stats(ctx, now.AddDate(0, 0, -7), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalViews)
	assert.Equal(t, 2, st.UniqueVisitors)
	assert.Equal(t, 1, st.BotVisits)
	require.NotEmpty(t, st.TopPages)
	assert.Equal(t, PageStat{Path: "/", Views: 2}, st.TopPages[0])
	assert.Len(t, st.Referrers, 2)
	assert.Equal(t, []DimensionStat{{Name: "Googlebot", Count: 1}}, st.TopBots)

	require.NoError(t, s.Cleanup(ctx, 365))
	st, err = s.Stats(ctx, now.AddDate(-2, 0, 0), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalViews)
}

func serve(t *testing.T, tr *Tracker, path, ua string, cookie bool, header map[string]string) int {
	t.Helper()
	e := echo.New()
	e.Use(consent.Middleware(), tr.Middleware())
	e.GET("/*", func(c echo.Context) error {
		return c.HTML(http.StatusOK, "<p>ok</p>")
	})
	e.GET("/data.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"n": 1})
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", ua)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if cookie {
		req.AddCookie(&http.Cookie{Name: consent.CookieName, Value: consent.AcceptedValue})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestTrackerRecordsOnlyWithConsent(t *testing.T) {
	s := newTestStore(t)
	tr, err := NewTracker(context.Background(), s)
	require.NoError(t, err)
	defer tr.Close()

	serve(t, tr, "/blog/hello", chromeUA, false, nil)
	serve(t, tr, "/blog/hello", chromeUA, true, map[string]string{"DNT": "1"})
	serve(t, tr, "/admin/", chromeUA, true, nil)
	serve(t, tr, "/data.json", chromeUA, true, nil)
	serve(t, tr, "/blog/hello", chromeUA, true, nil)
	serve(t, tr, "/blog/hello", googleUA, false, nil)

	now := time.Now()
	st, err := s.Stats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalViews)
	assert.Equal(t, 1, st.BotVisits)
	assert.Equal(t, "/blog/hello", st.TopPages[0].Path)
}

func TestTrackerStatsHandler(t *testing.T) {
	s := newTestStore(t)
	tr, err := NewTracker(context.Background(), s)
	require.NoError(t, err)
	defer tr.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?period=month", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, tr.StatsHandler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"period":"month"`)
	assert.Contains(t, rec.Body.String(), `"total_views":0`)
}

func TestTrackerHashesAreSalted(t *testing.T) {
	a := &Tracker{salt: "one"}
	b := &Tracker{salt: "two"}
	assert.NotEqual(t, a.hashIP("1.2.3.4"), b.hashIP("1.2.3.4"))
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, a.visitorID("ip", "ua", day), a.visitorID("ip", "ua", day.AddDate(0, 0, 1)))
	assert.Equal(t, a.sessionID("v", day.Add(5*time.Minute)), a.sessionID("v", day.Add(20*time.Minute)))
}
