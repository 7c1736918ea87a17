package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/eringen/pressroom/consent"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DefaultSkipPrefixes are never recorded.
var DefaultSkipPrefixes = []string{"/admin", "/api", "/public", "/uploads", "/metrics", "/consent", "/favicon", "/robots.txt", "/sitemap.xml", "/feed.xml"}

// Tracker records page views from the request pipeline.
type Tracker struct {
	store   *Store
	salt    string
	limiter *ipLimiter
	skip    []string
	logger  *zap.Logger
	now     func() time.Time
	stop    chan struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

func WithLogger(l *zap.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSkipPrefixes replaces the path prefixes that are never recorded.
func WithSkipPrefixes(prefixes ...string) TrackerOption {
	return func(t *Tracker) { t.skip = prefixes }
}

// WithRateLimit caps recorded hits per IP per minute.
func WithRateLimit(perMinute int) TrackerOption {
	return func(t *Tracker) {
		if perMinute > 0 {
			t.limiter = newIPLimiter(perMinute)
		}
	}
}

// NewTracker loads the installation salt and starts the limiter sweeper.
func NewTracker(ctx context.Context, store *Store, opts ...TrackerOption) (*Tracker, error) {
	salt, err := store.Salt(ctx)
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		store:   store,
		salt:    salt,
		limiter: newIPLimiter(60),
		skip:    DefaultSkipPrefixes,
		logger:  zap.NewNop(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	go t.sweep()
	return t, nil
}

// Close stops the background sweeper.
func (t *Tracker) Close() {
	close(t.stop)
}

func (t *Tracker) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			t.limiter.sweep(now)
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) hash(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(t.salt))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (t *Tracker) hashIP(ip string) string {
	return t.hash("ip", ip)[:16]
}

// visitorID rotates daily so visitors cannot be followed across days.
func (t *Tracker) visitorID(ip, ua string, day time.Time) string {
	return t.hash("visitor", ip, ua, day.UTC().Format("2006-01-02"))[:16]
}

// sessionID buckets a visitor's views into 30 minute windows.
func (t *Tracker) sessionID(visitorID string, at time.Time) string {
	bucket := at.UTC().Truncate(30 * time.Minute).Format(time.RFC3339)
	return t.hash("session", visitorID, bucket)[:16]
}

func (t *Tracker) skipped(path string) bool {
	for _, p := range t.skip {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware records successful HTML GET responses after the handler ran.
// Crawlers are always counted; people only with accepted consent and
// without Do Not Track.
func (t *Tracker) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				return err
			}
			req := c.Request()
			if req.Method != http.MethodGet || c.Response().Status != http.StatusOK {
				return nil
			}
			if t.skipped(req.URL.Path) {
				return nil
			}
			if ct := c.Response().Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMETextHTML) {
				return nil
			}
			t.record(c)
			return nil
		}
	}
}

func (t *Tracker) record(c echo.Context) {
	req := c.Request()
	ip := c.RealIP()
	if !t.limiter.allow(ip) {
		return
	}
	ua := req.UserAgent()
	now := t.now().UTC()
	ctx := context.WithoutCancel(req.Context())

	if bot := BotName(ua); bot != "" {
		err := t.store.SaveBotVisit(ctx, BotVisit{
			BotName:   bot,
			IPHash:    t.hashIP(ip),
			UserAgent: truncate(ua, 512),
			Path:      truncate(req.URL.Path, 2048),
			Timestamp: now,
		})
		if err != nil {
			t.logger.Error("error saving bot visit", zap.Error(err))
		}
		return
	}

	if consent.Get(c) != consent.Accepted || req.Header.Get("DNT") == "1" {
		return
	}

	browser, os, device := ParseUserAgent(ua)
	visitor := t.visitorID(ip, ua, now)
	err := t.store.SaveVisit(ctx, Visit{
		VisitorID: visitor,
		SessionID: t.sessionID(visitor, now),
		IPHash:    t.hashIP(ip),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Path:      truncate(req.URL.Path, 2048),
		Referrer:  CleanReferrer(req.Referer(), req.Host),
		Timestamp: now,
	})
	if err != nil {
		t.logger.Error("error saving visit", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Period resolves a named period (today, week, month, year) to a time
// range ending at now. Unknown names mean week.
func Period(name string, now time.Time) (string, time.Time, time.Time) {
	now = now.UTC()
	to := now.Add(time.Second)
	switch name {
	case "today":
		return name, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), to
	case "month":
		return name, now.AddDate(0, 0, -30), to
	case "year":
		return name, now.AddDate(-1, 0, 0), to
	default:
		return "week", now.AddDate(0, 0, -7), to
	}
}

// StatsResponse is the JSON body served to the dashboard.
type StatsResponse struct {
	Period string `json:"period"`
	*Stats
}

// StatsHandler serves Stats for ?period= as JSON.
func (t *Tracker) StatsHandler(c echo.Context) error {
	period, from, to := Period(c.QueryParam("period"), t.now())
	st, err := t.store.Stats(c.Request().Context(), from, to)
	if err != nil {
		t.logger.Error("error loading analytics stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, StatsResponse{Period: period, Stats: st})
}

// Summary returns Stats for a named period.
func (t *Tracker) Summary(ctx context.Context, period string) (string, *Stats, error) {
	period, from, to := Period(period, t.now())
	st, err := t.store.Stats(ctx, from, to)
	return period, st, err
}
