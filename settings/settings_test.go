package settings

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context) (Settings, error)

func (f sourceFunc) SiteSettings(ctx context.Context) (Settings, error) { return f(ctx) }

func TestLoadSuccess(t *testing.T) {
	want := Settings{Title: "Penguin Cooling", PrimaryColor: "#112233"}
	l := NewLoader(sourceFunc(func(ctx context.Context) (Settings, error) {
		return want, nil
	}))

	res := l.Load(context.Background())
	assert.False(t, res.Fallback)
	assert.Equal(t, want, res.Settings)
}

func TestLoadFailureUsesDefaults(t *testing.T) {
	l := NewLoader(sourceFunc(func(ctx context.Context) (Settings, error) {
		return Settings{Title: "partial"}, errors.New("boom")
	}))

	res := l.Load(context.Background())
	assert.True(t, res.Fallback)
	assert.Equal(t, Defaults(), res.Settings)
}

func TestLoadTimeoutIsBounded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	l := NewLoader(sourceFunc(func(ctx context.Context) (Settings, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return Settings{Title: "late"}, nil
	}), WithTimeout(50*time.Millisecond))

	start := time.Now()
	res := l.Load(context.Background())
	elapsed := time.Since(start)

	assert.True(t, res.Fallback)
	assert.Equal(t, Defaults(), res.Settings)
	assert.Less(t, elapsed, 50*time.Millisecond+250*time.Millisecond)
}

func TestLoadSharesInFlightFetch(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	l := NewLoader(sourceFunc(func(ctx context.Context) (Settings, error) {
		calls.Add(1)
		<-gate
		return Settings{Title: "shared"}, nil
	}), WithTimeout(time.Second))

	results := make(chan Result, 4)
	for i := 0; i < 4; i++ {
		go func() { results <- l.Load(context.Background()) }()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	for i := 0; i < 4; i++ {
		res := <-results
		assert.Equal(t, "shared", res.Settings.Title)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRedisCacheServesHits(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var calls atomic.Int32
	cache := NewRedisCache(rdb, time.Minute)
	l := NewLoader(sourceFunc(func(ctx context.Context) (Settings, error) {
		calls.Add(1)
		return Settings{Title: "cached"}, nil
	}), WithCache(cache))

	first := l.Load(context.Background())
	second := l.Load(context.Background())
	assert.Equal(t, "cached", first.Settings.Title)
	assert.Equal(t, "cached", second.Settings.Title)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, cache.Invalidate(context.Background()))
	_, ok, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCSSVars(t *testing.T) {
	assert.Equal(t,
		"--primary-color: #3b82f6; --nav-text-color: #000000; --nav-icon-color: #000000",
		Defaults().CSSVars())

	s := Settings{PrimaryColor: "red; background: url(x)"}
	assert.Equal(t, "", s.CSSVars())
}

func TestKeywords(t *testing.T) {
	s := Settings{MetaKeywords: " air con , refrigeration,, cold rooms "}
	assert.Equal(t, []string{"air con", "refrigeration", "cold rooms"}, s.Keywords())
	assert.Nil(t, Settings{}.Keywords())
}

func TestBuildMetadata(t *testing.T) {
	m := BuildMetadata(Defaults(), "https://penguincooling.co.uk/")
	assert.Equal(t, "penguincooling.co.uk", m.Title)
	assert.Equal(t, "penguincooling.co.uk", m.Description)
	assert.Equal(t, "https://penguincooling.co.uk", m.URL)
	assert.Empty(t, m.Icons)

	s := Settings{
		Title:        "Penguin",
		MetaTitle:    "Penguin Cooling | Commercial Refrigeration",
		Description:  "desc",
		CanonicalURL: "https://www.penguincooling.co.uk",
		OGImage:      &Image{URL: "https://cdn.example.com/og.png"},
	}
	m = BuildMetadata(s, "https://penguincooling.co.uk")
	assert.Equal(t, s.MetaTitle, m.Title)
	assert.Equal(t, "desc", m.Description)
	assert.Equal(t, s.CanonicalURL, m.Canonical)
	assert.Equal(t, "Penguin", m.OEmbedTitle)
	assert.Len(t, m.Icons, 6)
}
