package pressroom

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pressroom/sitemap"
)

// handleSitemap never fails: the generator degrades to the root entry when
// the content service is unavailable.
func (a *App) handleSitemap(c echo.Context) error {
	entries := a.Sitemap.Generate(c.Request().Context())
	var buf bytes.Buffer
	if err := sitemap.WriteXML(&buf, entries); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", buf.Bytes())
}
