package hn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wovennews_upstream_requests_total",
		Help: "The total number of requests sent to the Hacker News API",
	}, []string{"endpoint", "outcome"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wovennews_upstream_request_duration_seconds",
		Help:    "Duration of requests to the Hacker News API",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // Start at 10ms, double each bucket, 10 buckets
	}, []string{"endpoint"})

	upstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wovennews_upstream_retries_total",
		Help: "Number of item requests repeated after a transient failure",
	}, []string{"endpoint"})
)

const (
	endpointList  = "list"
	endpointItem  = "item"
	endpointProbe = "probe"
	endpointRaw   = "raw"
)
