package settings

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/pressroom/metrics"
)

// DefaultTimeout bounds a settings fetch.
const DefaultTimeout = 5 * time.Second

// Source fetches the current settings, typically from the content service.
type Source interface {
	SiteSettings(ctx context.Context) (Settings, error)
}

// Cache is an optional store consulted before the source.
type Cache interface {
	Get(ctx context.Context) (Settings, bool, error)
	Set(ctx context.Context, s Settings) error
}

// Result is what a render receives.
type Result struct {
	Settings Settings
	// Fallback is true when Defaults were substituted.
	Fallback bool
}

// Loader fetches settings with a fixed timeout. Failure is all-or-nothing:
// either the fetched object or Defaults, never a mix.
type Loader struct {
	source  Source
	cache   Cache
	timeout time.Duration
	logger  *zap.Logger
	group   singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithCache puts c in front of the source.
func WithCache(c Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithLogger sets the logger used for fallback reports.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a Loader reading from src.
func NewLoader(src Source, opts ...Option) *Loader {
	l := &Loader{
		source:  src,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Timeout returns the configured fetch bound.
func (l *Loader) Timeout() time.Duration { return l.timeout }

// Load returns settings within the timeout bound. Concurrent callers share
// one in-flight fetch; each caller still gives up at its own deadline.
func (l *Loader) Load(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if l.cache != nil {
		s, ok, err := l.cache.Get(ctx)
		if err != nil {
			l.logger.Warn("settings cache read failed", zap.Error(err))
		} else if ok {
			return Result{Settings: s}
		}
	}

	ch := l.group.DoChan("settings", func() (any, error) {
		fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer fcancel()
		start := time.Now()
		s, err := l.source.SiteSettings(fctx)
		if err == nil {
			metrics.SettingsFetchDuration.Observe(time.Since(start).Seconds())
		}
		return s, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return l.fallback("error", res.Err)
		}
		s := res.Val.(Settings)
		if l.cache != nil {
			if err := l.cache.Set(ctx, s); err != nil {
				l.logger.Warn("settings cache write failed", zap.Error(err))
			}
		}
		return Result{Settings: s}
	case <-ctx.Done():
		return l.fallback("timeout", ctx.Err())
	}
}

func (l *Loader) fallback(reason string, err error) Result {
	metrics.SettingsFallbacks.WithLabelValues(reason).Inc()
	l.logger.Warn("failed to fetch settings for layout, using defaults",
		zap.String("reason", reason), zap.Error(err))
	return Result{Settings: Defaults(), Fallback: true}
}
