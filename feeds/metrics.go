package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wovennews_items_skipped_total",
		Help: "Story ids dropped while loading a page",
	}, []string{"feed", "reason"})

	resolvedStories = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wovennews_feed_resolved_stories",
		Help: "Number of resolved stories held by a feed",
	}, []string{"feed"})

	backlogIDs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wovennews_feed_backlog_ids",
		Help: "Number of story ids still waiting to be resolved",
	}, []string{"feed"})

	pageLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wovennews_page_load_duration_seconds",
		Help:    "Duration of a single page load",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket, 10 buckets
	}, []string{"feed"})

	snapshotsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wovennews_snapshots_published_total",
		Help: "Snapshots published to subscribers",
	}, []string{"feed"})
)
