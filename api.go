package pressroom

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/generate"
	"github.com/eringen/pressroom/media"
	"github.com/eringen/pressroom/settings"
)

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}

// apiError writes the {"error": "..."} body the content client surfaces.
func apiError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

func (a *App) setupAPIRoutes(g *echo.Group) {
	g.GET("/blog-categories", a.apiCategories)
	g.GET("/blogs", a.apiListBlogs)
	g.GET("/site-settings", a.apiSiteSettings)
	g.GET("/sitemap-data", a.apiSitemapData)
	g.GET("/oembed", a.apiOEmbed)

	auth := g.Group("", a.requireAPIAuth)
	auth.POST("/blog-categories", a.apiSaveCategory)
	auth.DELETE("/blog-categories/:id", a.apiDeleteCategory)
	auth.GET("/blogs/:id", a.apiGetBlog)
	auth.POST("/blogs", a.apiCreateBlog)
	auth.PUT("/blogs/:id", a.apiUpdateBlog)
	auth.DELETE("/blogs/:id", a.apiDeleteBlog)
	auth.GET("/pages", a.apiListPages)
	auth.POST("/pages", a.apiSavePage)
	auth.PUT("/pages/:id", a.apiSavePage)
	auth.DELETE("/pages/:id", a.apiDeletePage)
	auth.POST("/uploadfile", a.apiUploadFile)
	auth.DELETE("/deletefile", a.apiDeleteFile)
	auth.GET("/media", a.apiMedia)
	auth.POST("/generate-blog-content", a.apiGenerate)
	auth.PUT("/site-settings", a.apiUpdateSiteSettings)
}

func (a *App) apiCategories(c echo.Context) error {
	cats, err := a.Store.ListCategories()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (a *App) apiSaveCategory(c echo.Context) error {
	var cat Category
	if err := c.Bind(&cat); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid request body")
	}
	saved, err := a.Store.SaveCategory(cat)
	if err != nil {
		return a.storeError(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, saved)
}

func (a *App) apiDeleteCategory(c echo.Context) error {
	if err := a.Store.DeleteCategory(c.Param("id")); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// apiListBlogs lists published posts. Authorised callers may pass
// ?all=true to include drafts.
func (a *App) apiListBlogs(c echo.Context) error {
	publishedOnly := true
	if all, _ := strconv.ParseBool(c.QueryParam("all")); all && (a.hasAPIToken(c) || IsAdmin(c)) {
		publishedOnly = false
	}
	posts, err := a.Store.ListBlogs(publishedOnly)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) apiGetBlog(c echo.Context) error {
	post, err := a.Store.GetBlog(c.Param("id"))
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) apiCreateBlog(c echo.Context) error {
	var d editor.Draft
	if err := c.Bind(&d); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid request body")
	}
	post, err := a.Store.CreateBlog(d)
	if err != nil {
		return a.storeError(c, err)
	}
	a.Cache.Invalidate()
	a.Logger.Info("blog created", zap.String("id", post.ID), zap.String("slug", post.Slug))
	return c.JSON(http.StatusCreated, post)
}

func (a *App) apiUpdateBlog(c echo.Context) error {
	var d editor.Draft
	if err := c.Bind(&d); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid request body")
	}
	post, err := a.Store.UpdateBlog(c.Param("id"), d)
	if err != nil {
		return a.storeError(c, err)
	}
	a.Cache.Invalidate()
	a.Logger.Info("blog updated", zap.String("id", post.ID), zap.String("slug", post.Slug))
	return c.JSON(http.StatusOK, post)
}

func (a *App) apiDeleteBlog(c echo.Context) error {
	if err := a.Store.DeleteBlog(c.Param("id")); err != nil {
		return a.storeError(c, err)
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) apiListPages(c echo.Context) error {
	pages, err := a.Store.ListPages()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages)
}

func (a *App) apiSavePage(c echo.Context) error {
	var p Page
	if err := c.Bind(&p); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid request body")
	}
	if id := c.Param("id"); id != "" {
		p.ID = id
	}
	saved, err := a.Store.SavePage(p)
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (a *App) apiDeletePage(c echo.Context) error {
	if err := a.Store.DeletePage(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// storeError maps store failures onto API statuses.
func (a *App) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, media.ErrNotFound):
		return apiError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrSlugTaken):
		return apiError(c, http.StatusConflict, "A record with this slug already exists")
	case errors.Is(err, editor.ErrEmptyContent):
		return apiError(c, http.StatusBadRequest, "Content cannot be empty")
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return err
	}
	if strings.Contains(err.Error(), "is required") {
		return apiError(c, http.StatusBadRequest, err.Error())
	}
	return err
}

func formBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.FormValue(name))
	return b
}

func (a *App) apiUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apiError(c, http.StatusBadRequest, "No file provided")
	}
	if file.Size > media.MaxUploadSize {
		return apiError(c, http.StatusRequestEntityTooLarge, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := a.Media.Upload(c.Request().Context(), src, file.Filename, media.UploadOptions{
		AddToLibrary: formBool(c, "addToMediaLibrary"),
		InUse:        formBool(c, "setAsInUse"),
	})
	if err != nil {
		a.Logger.Warn("upload rejected", zap.String("file", file.Filename), zap.Error(err))
		return apiError(c, http.StatusBadRequest, "Invalid image: "+err.Error())
	}
	return c.JSON(http.StatusCreated, editor.Image{ID: f.ID, URL: f.URL, MediaID: f.MediaID})
}

func (a *App) apiDeleteFile(c echo.Context) error {
	name := c.QueryParam("fileName")
	if name == "" {
		return apiError(c, http.StatusBadRequest, "fileName is required")
	}
	if err := a.Media.Delete(c.Request().Context(), name); err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return apiError(c, http.StatusNotFound, "File not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) apiMedia(c echo.Context) error {
	files, err := a.Media.List()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, files)
}

func (a *App) apiGenerate(c echo.Context) error {
	var req editor.GenerationRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return apiError(c, http.StatusBadRequest, "Title is required")
	}
	resp, err := a.Generator.GenerateContent(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, generate.ErrNotConfigured):
		return apiError(c, http.StatusServiceUnavailable, "AI content generation is not configured")
	case errors.Is(err, generate.ErrRateLimited):
		return apiError(c, http.StatusTooManyRequests, "Too many requests, try again shortly")
	case errors.Is(err, editor.ErrNoContentGenerated):
		return apiError(c, http.StatusUnprocessableEntity, "No content generated")
	}
	return apiError(c, http.StatusBadGateway, "Failed to generate content")
}

func (a *App) apiSiteSettings(c echo.Context) error {
	st, err := a.Store.SiteSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (a *App) apiUpdateSiteSettings(c echo.Context) error {
	var st settings.Settings
	if err := c.Bind(&st); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := a.Store.SaveSiteSettings(c.Request().Context(), st); err != nil {
		return err
	}
	a.invalidateSettings(c)
	return c.JSON(http.StatusOK, st)
}

// invalidateSettings drops the shared settings cache, if one is configured.
func (a *App) invalidateSettings(c echo.Context) {
	if a.redis == nil {
		return
	}
	if err := settings.NewRedisCache(a.redis, a.Config.SettingsCacheTTL).Invalidate(c.Request().Context()); err != nil {
		a.Logger.Warn("settings cache invalidation failed", zap.Error(err))
	}
}

func (a *App) apiSitemapData(c echo.Context) error {
	data, err := a.Store.SitemapData(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

// apiOEmbed answers the alternate link every page advertises.
func (a *App) apiOEmbed(c echo.Context) error {
	st, err := a.Store.SiteSettings(c.Request().Context())
	if err != nil {
		return err
	}
	meta := settings.BuildMetadata(st, a.Config.URL)
	body := map[string]any{
		"version":       "1.0",
		"type":          "link",
		"title":         meta.OEmbedTitle,
		"provider_name": a.Config.Name,
		"provider_url":  meta.BaseURL,
	}
	if meta.OGImage != "" {
		body["thumbnail_url"] = meta.OGImage
	}
	return c.JSON(http.StatusOK, body)
}
