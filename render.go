package pressroom

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pressroom/consent"
	"github.com/eringen/pressroom/settings"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// shell assembles the layout data for one render. Settings come from the
// loader, which never fails: on timeout or error the defaults are used.
func (a *App) shell(c echo.Context, page PageMeta) Shell {
	res := a.Settings.Load(c.Request().Context())
	meta := settings.BuildMetadata(res.Settings, a.Config.URL)
	if page.Title == "" {
		page.Title = meta.Title
	}
	if page.Description == "" {
		page.Description = meta.Description
	}
	if page.URL == "" {
		page.URL = BuildURL(a.Config.URL, c.Request().URL.Path)
	}
	if page.OGType == "" {
		page.OGType = "website"
	}
	if page.OGImage == "" {
		page.OGImage = meta.OGImage
	}
	return Shell{
		SiteName:  a.Config.Name,
		Settings:  res.Settings,
		Meta:      meta,
		Page:      page,
		Consent:   consent.Get(c),
		Analytics: a.consentLoader,
		CSRFToken: CsrfToken(c),
		Admin:     IsAdmin(c),
		Path:      c.Request().URL.Path,
	}
}
