package consent

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		want   State
	}{
		{"absent", nil, Undecided},
		{"accepted", &http.Cookie{Name: CookieName, Value: "accepted"}, Accepted},
		{"declined", &http.Cookie{Name: CookieName, Value: "declined"}, Declined},
		{"empty value", &http.Cookie{Name: CookieName, Value: ""}, Declined},
		{"other cookie", &http.Cookie{Name: "theme", Value: "accepted"}, Undecided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			got := FromRequest(req)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == Undecided, got.ShowPrompt())
		})
	}
}

func TestAcceptPersistsCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	Accept(rec, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, AcceptedValue, c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Secure)
	assert.Greater(t, c.MaxAge, 0)

	// A follow-up request carrying the cookie reads as accepted.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	assert.Equal(t, Accepted, FromRequest(req))
}

func TestMiddlewareStoresState(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: AcceptedValue})
	c := e.NewContext(req, httptest.NewRecorder())

	var seen State
	h := Middleware()(func(c echo.Context) error {
		seen = Get(c)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, Accepted, seen)

	Set(c, Undecided)
	assert.Equal(t, Undecided, Get(c))
}

func TestLoaderRendersOnlyWhenAccepted(t *testing.T) {
	l := NewLoader("")
	assert.Equal(t, DefaultContainerID, l.ContainerID)

	assert.Empty(t, l.HeadScript(Undecided))
	assert.Empty(t, l.NoScript(Undecided))
	assert.Empty(t, l.HeadScript(Declined))
	assert.Empty(t, l.NoScript(Declined))

	head := string(l.HeadScript(Accepted))
	assert.Contains(t, head, "googletagmanager.com/gtm.js")
	assert.Contains(t, head, DefaultContainerID)

	ns := string(l.NoScript(Accepted))
	assert.Contains(t, ns, "<noscript>")
	assert.Contains(t, ns, "ns.html?id="+DefaultContainerID)
}

func TestLoaderRejectsMalformedContainer(t *testing.T) {
	l := NewLoader(`GTM-1');alert(1);//`)
	assert.False(t, l.Enabled(Accepted))
	assert.Empty(t, l.HeadScript(Accepted))
}
