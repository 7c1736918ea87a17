package pressroom

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pressroom/media"
	"github.com/eringen/pressroom/settings"
)

var adminMeta = PageMeta{Title: "Admin", Robots: "noindex, nofollow"}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(a.shell(c, adminMeta), false))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Logger.Warn("failed admin login", zap.String("ip", ip))
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(a.shell(c, adminMeta), true))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if err := a.Store.DeleteBlog(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	a.Cache.Invalidate()
	if c.Request().Method == http.MethodDelete {
		return a.renderAdminDashboard(c, "deleted")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListBlogs(false)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(a.shell(c, adminMeta), posts, msg))
}

func (a *App) handleMediaList(c echo.Context) error {
	return a.renderMedia(c, c.QueryParam("msg"))
}

func (a *App) renderMedia(c echo.Context, msg string) error {
	files, err := a.Store.ListMedia(false)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminMedia(a.shell(c, adminMeta), files, msg))
}

func (a *App) handleMediaUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return a.renderMedia(c, "No image file provided")
	}
	if file.Size > media.MaxUploadSize {
		return a.renderMedia(c, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := a.Media.Upload(c.Request().Context(), src, file.Filename, media.UploadOptions{AddToLibrary: true}); err != nil {
		return a.renderMedia(c, "Invalid image: "+err.Error())
	}
	return c.Redirect(http.StatusSeeOther, "/admin/media/?msg=uploaded")
}

func (a *App) handleMediaDelete(c echo.Context) error {
	err := a.Media.Delete(c.Request().Context(), c.Param("id"))
	if err != nil && !errors.Is(err, media.ErrNotFound) {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/media/?msg=deleted")
}

func (a *App) handleAnalytics(c echo.Context) error {
	period, stats, err := a.Tracker.Summary(c.Request().Context(), c.QueryParam("period"))
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminAnalytics(a.shell(c, adminMeta), period, stats))
}

func (a *App) handleSettingsForm(c echo.Context) error {
	st, err := a.Store.SiteSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminSettings(a.shell(c, adminMeta), st, c.QueryParam("msg")))
}

// settingsFromForm reads the settings editor. Empty social links are
// dropped.
func settingsFromForm(form url.Values) settings.Settings {
	get := func(k string) string { return strings.TrimSpace(form.Get(k)) }
	st := settings.Settings{
		Title:           get("title"),
		Description:     get("description"),
		MetaTitle:       get("metaTitle"),
		MetaDescription: get("metaDescription"),
		MetaKeywords:    get("metaKeywords"),
		CanonicalURL:    get("canonicalUrl"),
		PrimaryColor:    get("primaryColor"),
		NavTitles: settings.NavTitles{
			TextColor: get("navTextColor"),
			IconColor: get("navIconColor"),
		},
		Scripts: settings.Scripts{
			Head: form.Get("headScripts"),
			Body: form.Get("bodyScripts"),
		},
	}
	if u := get("ogImage"); u != "" {
		st.OGImage = &settings.Image{URL: u}
	}
	social := settings.SocialLinks{
		Facebook:  get("facebook"),
		Twitter:   get("twitter"),
		Instagram: get("instagram"),
		LinkedIn:  get("linkedin"),
		YouTube:   get("youtube"),
	}
	if social != (settings.SocialLinks{}) {
		st.SocialLinks = &social
	}
	return st
}

func (a *App) handleSettingsSave(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return err
	}
	if err := a.Store.SaveSiteSettings(c.Request().Context(), settingsFromForm(form)); err != nil {
		return err
	}
	a.invalidateSettings(c)
	return c.Redirect(http.StatusSeeOther, "/admin/settings/?msg=saved")
}
