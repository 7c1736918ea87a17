// Package metrics provides Prometheus metrics for pressroom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettingsFallbacks counts renders that used the default settings.
	SettingsFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pressroom",
			Name:      "settings_fallback_total",
			Help:      "Renders that fell back to default site settings",
		},
		[]string{"reason"},
	)

	// SettingsFetchDuration measures settings fetches that completed.
	SettingsFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pressroom",
			Name:      "settings_fetch_duration_seconds",
			Help:      "Duration of site settings fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SitemapFallbacks counts sitemap builds that degraded to the root entry.
	SitemapFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pressroom",
			Name:      "sitemap_fallback_total",
			Help:      "Sitemap generations that degraded to the site root only",
		},
	)

	// Uploads counts image uploads by slot and status.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pressroom",
			Name:      "uploads_total",
			Help:      "Image uploads by slot and status",
		},
		[]string{"slot", "status"},
	)

	// Generations counts AI content generations by mode and status.
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pressroom",
			Name:      "generations_total",
			Help:      "AI content generations by insertion mode and status",
		},
		[]string{"mode", "status"},
	)

	// ConsentAccepted counts explicit cookie consent acceptances.
	ConsentAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pressroom",
			Name:      "consent_accepted_total",
			Help:      "Visitors that accepted analytics cookies",
		},
	)
)
