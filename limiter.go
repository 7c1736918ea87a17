package pressroom

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits failed login attempts per IP address. Each IP
// gets a token bucket of max attempts refilled over window.
type LoginLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*loginBucket
	limit    rate.Limit
	max      int
	window   time.Duration
	now      func() time.Time
	lastSweep time.Time
}

type loginBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		buckets: make(map[string]*loginBucket),
		limit:   rate.Every(window / time.Duration(max)),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

func (l *LoginLimiter) bucket(ip string, now time.Time) *loginBucket {
	if now.Sub(l.lastSweep) > l.window {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.window {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &loginBucket{limiter: rate.NewLimiter(l.limit, l.max)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b
}

// Allow checks the limit and records an attempt in one step.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.bucket(ip, now).limiter.AllowN(now, 1)
}

// Check reports whether the IP may attempt a login. It does not record an
// attempt; call Record on failure.
func (l *LoginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.bucket(ip, now).limiter.TokensAt(now) >= 1
}

// Record registers a failed login attempt for the given IP.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.bucket(ip, now).limiter.AllowN(now, 1)
}
