package pressroom

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pressroom/consent"
	"github.com/eringen/pressroom/metrics"
)

const homePostCount = 6

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	if len(posts) > homePostCount {
		posts = posts[:homePostCount]
	}
	var main *Page
	page, err := a.Store.MainPage()
	switch {
	case err == nil:
		main = &page
	case !errors.Is(err, ErrNotFound):
		return err
	}
	meta := PageMeta{JSONLD: WebsiteJsonLD(a.Config)}
	if main != nil {
		meta.Title = main.MetaTitle
		meta.Description = main.MetaDescription
	}
	return Render(c, a.Views.Home(a.shell(c, meta), main, posts))
}

func (a *App) handleBlogIndex(c echo.Context) error {
	category := c.QueryParam("category")
	posts, err := a.Cache.ListPosts(category)
	if err != nil {
		return err
	}
	cats, err := a.Cache.Categories()
	if err != nil {
		return err
	}
	shell := a.shell(c, PageMeta{Title: "Blog | " + a.Config.Name})
	return Render(c, a.Views.BlogIndex(shell, posts, category, cats))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	meta := PageMeta{
		Title:       post.DocumentTitle(),
		Description: post.DocumentDescription(),
		URL:         post.CanonicalURL,
		OGType:      "article",
		Robots:      post.RobotsDirective(),
		JSONLD:      BlogPostingJsonLD(post, a.Config),
	}
	if post.OGImage != nil {
		meta.OGImage = post.OGImage.URL
	} else if post.FeaturedImage != nil {
		meta.OGImage = post.FeaturedImage.URL
	}
	return Render(c, a.Views.Post(a.shell(c, meta), post, a.Cache.CategoryName(post.CategoryID), FilterRelatedPosts(post, posts)))
}

func (a *App) handlePage(c echo.Context) error {
	page, err := a.Store.GetPublishedPage(c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if page.IsMainPage {
		return c.Redirect(http.StatusMovedPermanently, "/")
	}
	meta := PageMeta{Title: page.MetaTitle, Description: page.MetaDescription}
	if meta.Title == "" {
		meta.Title = page.Title
	}
	return Render(c, a.Views.Page(a.shell(c, meta), page))
}

// handleConsentAccept persists the decision and announces it. Script
// callers get the HX-Trigger header; plain form posts are sent back.
func (a *App) handleConsentAccept(c echo.Context) error {
	consent.Accept(c.Response(), a.Config.CookieSecure)
	consent.Set(c, consent.Accepted)
	metrics.ConsentAccepted.Inc()
	c.Response().Header().Set("HX-Trigger", consent.AcceptedEvent)

	if c.Request().Header.Get("HX-Request") == "true" || c.Request().Header.Get("X-Requested-With") == "fetch" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, sameSiteReferer(c))
}

// sameSiteReferer returns the path of a same-host Referer, or "/".
func sameSiteReferer(c echo.Context) string {
	ref, err := url.Parse(c.Request().Referer())
	if err != nil || ref.Host != c.Request().Host || ref.Path == "" {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

// handleRobots serves the user's robots.txt, or a default pointing at the
// sitemap.
func (a *App) handleRobots(c echo.Context) error {
	p := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(p); err == nil {
		return c.File(p)
	}
	body := "User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: " + BuildURL(a.Config.URL) + "sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if isAPIPath(c.Request().URL.Path) {
		msg := http.StatusText(code)
		if ok && code < 500 {
			if s, isStr := he.Message.(string); isStr {
				msg = s
			}
		}
		if code >= 500 {
			a.Logger.Error("api error", zap.String("path", c.Request().URL.Path), zap.Error(err))
		}
		_ = apiError(c, code, msg)
		return
	}
	if code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.shell(c, PageMeta{Title: "Not found", Robots: "noindex"})))
		return
	}
	if code >= 500 {
		a.Logger.Error("server error", zap.String("path", c.Request().URL.Path), zap.Error(err))
		_ = RenderStatus(c, code, a.Views.ServerError(a.shell(c, PageMeta{Title: "Error", Robots: "noindex"})))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
