// Package hn talks to the Hacker News JSON API: listing endpoints, single
// items and a reachability probe.
package hn

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wovennews/config"
	"wovennews/models"
)

const maxBodySize = 8 << 20

type Client struct {
	http       *http.Client
	api        config.APIConfig
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the transport, the configured timeout is kept
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		timeout := c.http.Timeout
		c.http = hc
		if c.http.Timeout == 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithClock sets the time source used for stories without a timestamp
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRetryWait sets the initial wait before a retried item request
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		c.retryWait = d
	}
}

func NewClient(cfg *config.Config, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.HTTP.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.HTTP.RequestsPerSecond)
	}
	burst := int(math.Max(1, math.Ceil(cfg.HTTP.RequestsPerSecond)))

	c := &Client{
		http:       &http.Client{Timeout: cfg.HTTP.Timeout.Duration},
		api:        cfg.API,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.HTTP.MaxRetries,
		retryWait:  200 * time.Millisecond,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.api.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Fetch performs a GET request and returns the whole body. It never retries.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, endpointRaw, url)
}

func (c *Client) fetch(ctx context.Context, endpoint string, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrDeadlineTooSoon, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if c.api.UserAgent != "" {
		req.Header.Set("User-Agent", c.api.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() {
		upstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		upstreamRequests.WithLabelValues(endpoint, "status").Inc()
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		upstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	upstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

// ListIDs fetches the identifier listing backing a feed
func (c *Client) ListIDs(ctx context.Context, feed models.FeedName) ([]string, error) {
	var path string
	switch feed {
	case models.FeedRecent:
		path = c.api.RecentPath
	case models.FeedBest:
		path = c.api.BestPath
	default:
		return nil, fmt.Errorf("no listing endpoint for feed %q", feed)
	}

	body, err := c.fetch(ctx, endpointList, c.endpoint(path))
	if err != nil {
		return nil, err
	}

	ids, err := ParseIDs(body)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"feed":  feed,
		"count": len(ids),
	}).Info("Fetched story ids")

	return ids, nil
}

// Resolve fetches a single item and decodes it into a Story. Transient
// network failures are retried up to the configured number of times.
func (c *Client) Resolve(ctx context.Context, id string) (models.Story, error) {
	url := c.endpoint(fmt.Sprintf(c.api.ItemPath, id))

	// Set up exponential backoff for transient failures
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retryWait
	expBackoff.MaxInterval = 2 * time.Second
	expBackoff.Multiplier = 2
	expBackoff.MaxElapsedTime = 0

	var body []byte
	attempt := 0
	err := backoff.Retry(func() error {
		if attempt > 0 {
			upstreamRetries.WithLabelValues(endpointItem).Inc()
		}
		attempt++

		var err error
		body, err = c.fetch(ctx, endpointItem, url)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(c.maxRetries)), ctx))
	if err != nil {
		return models.Story{}, err
	}

	return DecodeStory(id, body, c.now())
}

// Reachable probes the API with a cheap request
func (c *Client) Reachable(ctx context.Context) bool {
	_, err := c.fetch(ctx, endpointProbe, c.endpoint("maxitem.json"))
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Debug("Connectivity probe failed")
		return false
	}
	return true
}
