package pressroom

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/eringen/pressroom/generate"
	"github.com/eringen/pressroom/media"
)

// DefaultSiteURL is the canonical origin used when none is configured.
const DefaultSiteURL = "https://penguincooling.co.uk"

// SiteConfig holds all configuration for a pressroom site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Pressroom")
	URL         string `mapstructure:"url"`         // Canonical URL (default DefaultSiteURL)
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`      // Author name for JSON-LD

	Addr         string `mapstructure:"addr"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"database_path"` // SQLite path (default "data/pressroom.db")

	AnalyticsEnabled       bool   `mapstructure:"analytics_enabled"`
	AnalyticsDatabasePath  string `mapstructure:"analytics_database_path"` // default "data/analytics.db"
	AnalyticsRetentionDays int    `mapstructure:"analytics_retention_days"`

	AdminPassword string `mapstructure:"admin_password"` // Required
	SessionSecret string `mapstructure:"session_secret"` // Required
	CookieSecure  bool   `mapstructure:"cookie_secure"`  // Set true for HTTPS

	PostCacheTTL time.Duration `mapstructure:"post_cache_ttl"`

	// ContentAPIURL is the content service the layout and the composer
	// talk to. Empty means this process's own /api.
	ContentAPIURL string `mapstructure:"content_api_url"`
	// APIToken authorises machine clients of /api. A random token is
	// generated when empty.
	APIToken string `mapstructure:"api_token"`

	GTMID            string        `mapstructure:"gtm_id"`
	SettingsTimeout  time.Duration `mapstructure:"settings_timeout"`
	RedisURL         string        `mapstructure:"redis_url"`
	SettingsCacheTTL time.Duration `mapstructure:"settings_cache_ttl"`

	Storage    string         `mapstructure:"storage"` // "local" or "s3"
	UploadsDir string         `mapstructure:"uploads_dir"`
	UploadsURL string         `mapstructure:"uploads_url"`
	S3         media.S3Config `mapstructure:"s3"`

	AI                   generate.Config `mapstructure:"ai"`
	GenerationsPerMinute int            `mapstructure:"generations_per_minute"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Pressroom"
	}
	if c.URL == "" {
		c.URL = DefaultSiteURL
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pressroom.db"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays == 0 {
		c.AnalyticsRetentionDays = 365
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.SettingsCacheTTL == 0 {
		c.SettingsCacheTTL = time.Minute
	}
	if c.Storage == "" {
		c.Storage = "local"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "data/uploads"
	}
	if c.UploadsURL == "" {
		c.UploadsURL = "/uploads"
	}
	if c.GenerationsPerMinute == 0 {
		c.GenerationsPerMinute = 10
	}
	if c.APIToken == "" {
		b := make([]byte, 24)
		if _, err := rand.Read(b); err == nil {
			c.APIToken = hex.EncodeToString(b)
		}
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
