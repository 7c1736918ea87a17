// Package pressroom is a marketing-site engine built with Go, Echo, and templ.
// It serves the public site and its REST content service, gates analytics
// behind cookie consent, and ships an admin blog composer with image
// uploads and AI-assisted writing.
//
// Users provide their own templ templates via the ViewFuncs struct,
// and pressroom handles all the handler logic, middleware, and database operations.
package pressroom

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eringen/pressroom/analytics"
	"github.com/eringen/pressroom/consent"
	"github.com/eringen/pressroom/contentapi"
	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/generate"
	"github.com/eringen/pressroom/media"
	"github.com/eringen/pressroom/settings"
	"github.com/eringen/pressroom/sitemap"
)

// Shell is the per-request data every page layout needs.
type Shell struct {
	SiteName  string
	Settings  settings.Settings
	Meta      settings.Metadata
	Page      PageMeta
	Consent   consent.State
	Analytics consent.Loader
	CSRFToken string
	Admin     bool
	Path      string
}

// EditorView is what the composer template renders.
type EditorView struct {
	Workspace string
	Form      editor.Snapshot
	SEO       editor.SEOData
	Analysis  editor.Analysis
	Preview   editor.Preview
	Library   []contentapi.MediaFile
	Flash     string
}

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets users own and customize all templates.
type ViewFuncs struct {
	Home           func(shell Shell, main *Page, posts []BlogPost) templ.Component
	BlogIndex      func(shell Shell, posts []BlogPost, active string, categories []Category) templ.Component
	Post           func(shell Shell, post BlogPost, category string, related []BlogPost) templ.Component
	Page           func(shell Shell, page Page) templ.Component
	AdminLogin     func(shell Shell, showError bool) templ.Component
	AdminDashboard func(shell Shell, posts []BlogPost, message string) templ.Component
	AdminEditor    func(shell Shell, view EditorView) templ.Component
	AdminMedia     func(shell Shell, files []media.File, message string) templ.Component
	AdminAnalytics func(shell Shell, period string, stats *analytics.Stats) templ.Component
	AdminSettings  func(shell Shell, current settings.Settings, message string) templ.Component
	NotFound       func(shell Shell) templ.Component
	ServerError    func(shell Shell) templ.Component
}

// App is the central pressroom application. It wires together the store,
// cache, content client, handlers, middleware, and user-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Logger *zap.Logger

	Content   *contentapi.Client
	Settings  *settings.Loader
	Sitemap   *sitemap.Generator
	Media     *media.Library
	Generator *generate.Service
	Editors   *editor.Workspace
	Tracker   *analytics.Tracker

	consentLoader  consent.Loader
	loginLimiter   *LoginLimiter
	analyticsStore *analytics.Store
	redis          *redis.Client
	stopCleanup    func()
	customRoutes   []func(*App)
	staticDir      string
	ready          bool
}

// WithLogger sets the application logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Logger = l
		}
	}
}

// New creates a new pressroom App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		Logger:    zap.NewNop(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// contentURL is the content service base. By default the app consumes its
// own API over loopback.
func (a *App) contentURL() string {
	if a.Config.ContentAPIURL != "" {
		return strings.TrimRight(a.Config.ContentAPIURL, "/")
	}
	port := "3000"
	if i := strings.LastIndex(a.Config.Addr, ":"); i >= 0 && i < len(a.Config.Addr)-1 {
		port = a.Config.Addr[i+1:]
	}
	return "http://127.0.0.1:" + port + "/api"
}

// Setup opens the stores and builds every component, middleware and route.
// Start calls it when it has not run yet.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("pressroom: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("pressroom: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pressroom: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.consentLoader = consent.NewLoader(a.Config.GTMID)

	storage, err := a.newStorage()
	if err != nil {
		return fmt.Errorf("pressroom: init storage: %w", err)
	}
	a.Media = media.NewLibrary(storage, a.Store, a.Logger.Named("media"))

	provider, err := generate.NewProvider(a.Config.AI)
	switch {
	case errors.Is(err, generate.ErrNotConfigured):
		a.Logger.Info("AI generation disabled: no provider configured")
	case err != nil:
		return fmt.Errorf("pressroom: init AI provider: %w", err)
	}
	a.Generator = generate.New(provider,
		generate.WithLogger(a.Logger.Named("generate")),
		generate.WithRateLimit(a.Config.GenerationsPerMinute, time.Minute))

	a.Content = contentapi.New(a.contentURL(), contentapi.WithToken(a.Config.APIToken))

	loaderOpts := []settings.Option{
		settings.WithTimeout(a.Config.SettingsTimeout),
		settings.WithLogger(a.Logger.Named("settings")),
	}
	if a.Config.RedisURL != "" {
		rdb, err := settings.ConnectRedis(ctx, a.Config.RedisURL)
		if err != nil {
			a.Logger.Warn("redis unavailable, settings are fetched on every render", zap.Error(err))
		} else {
			a.redis = rdb
			loaderOpts = append(loaderOpts, settings.WithCache(settings.NewRedisCache(rdb, a.Config.SettingsCacheTTL)))
		}
	}
	a.Settings = settings.NewLoader(a.Content, loaderOpts...)
	a.Sitemap = sitemap.New(a.Config.URL, a.Content, sitemap.WithLogger(a.Logger.Named("sitemap")))
	a.Editors = editor.NewWorkspace(editor.DefaultIdle)

	if a.Config.AnalyticsEnabled {
		as, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("pressroom: init analytics: %w", err)
		}
		a.analyticsStore = as
		a.Tracker, err = analytics.NewTracker(ctx, as, analytics.WithLogger(a.Logger.Named("analytics")))
		if err != nil {
			return fmt.Errorf("pressroom: init analytics tracker: %w", err)
		}
		a.stopCleanup = as.StartCleanup(a.Config.AnalyticsRetentionDays, 24*time.Hour, a.Logger.Named("analytics"))
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

func (a *App) newStorage() (media.Storage, error) {
	if a.Config.Storage == "s3" {
		return media.NewS3Storage(a.Config.S3)
	}
	return media.NewLocalStorage(a.Config.UploadsDir, a.Config.UploadsURL)
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	a.Logger.Info("pressroom listening", zap.String("addr", a.Config.Addr), zap.String("content_api", a.contentURL()))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/consent.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/pressroom.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	// User's static assets
	e.Static("/public", a.staticDir)
	if a.Config.Storage != "s3" {
		e.Static(a.Config.UploadsURL, a.Config.UploadsDir)
	}
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleBlogIndex)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/:slug/", a.handlePage)
	e.POST("/consent/accept/", a.handleConsentAccept)

	a.setupAPIRoutes(e.Group("/api"))

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", a.requireAdmin)
	admin.DELETE("/post/:id/", a.handleAdminDelete)
	admin.POST("/post/:id/delete/", a.handleAdminDelete)
	admin.GET("/media/", a.handleMediaList)
	admin.POST("/media/upload/", a.handleMediaUpload)
	admin.POST("/media/:id/delete/", a.handleMediaDelete)
	admin.GET("/settings/", a.handleSettingsForm)
	admin.POST("/settings/", a.handleSettingsSave)
	if a.Tracker != nil {
		admin.GET("/analytics/", a.handleAnalytics)
		admin.GET("/analytics/api/stats", a.Tracker.StatsHandler)
	}
	a.setupEditorRoutes(admin.Group("/editor"))
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Editors != nil {
		a.Editors.Stop()
	}
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.Tracker != nil {
		a.Tracker.Close()
	}
	if a.analyticsStore != nil {
		a.analyticsStore.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}
