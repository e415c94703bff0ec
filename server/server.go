package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"wovennews/feeds"
	"wovennews/hn"
	"wovennews/models"
)

var sseClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "wovennews_sse_clients",
	Help: "The current number of connected snapshot stream clients",
})

type ServerConfig struct {
	// The store serving both feeds
	Store *feeds.Store

	// Optional probe run before every load request
	Prober hn.Prober

	// Lifetime of background loads started by requests
	Context context.Context

	// Interval between keep-alive events on snapshot streams
	PingInterval time.Duration
}

type server struct {
	store        *feeds.Store
	prober       hn.Prober
	connectivity hn.ConnectivityReporter
	ctx          context.Context
}

// Returns a fiber.App instance serving the feeds over HTTP
func Server(config *ServerConfig) *fiber.App {
	s := &server{
		store:  config.Store,
		prober: config.Prober,
		ctx:    config.Context,
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}

	pingInterval := config.PingInterval
	if pingInterval <= 0 {
		pingInterval = 5 * time.Second
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		// Streams must be flushed event by event
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/sse")
		},
	}))

	api := app.Group("/api")
	api.Get("/feeds", s.listFeeds)
	api.Get("/feeds/:feed", s.getFeed)
	api.Get("/active", s.getActive)
	api.Post("/active/more", s.loadMore)
	api.Put("/active/:feed", s.switchActive)
	api.Get("/status", s.status)
	api.Get("/snapshots/sse", s.streamSnapshots(pingInterval))
	api.Delete("/snapshots/sse", func(c *fiber.Ctx) error {
		s.store.Unsubscribe(c.Query("key", ""))
		return c.Status(fiber.StatusOK).SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func (s *server) listFeeds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active": s.store.Active(),
		"feeds":  s.store.Status(),
	})
}

func (s *server) getFeed(c *fiber.Ctx) error {
	feed := models.FeedName(c.Params("feed"))
	cursor := c.Query("cursor", "")
	limit, err := strconv.ParseInt(c.Query("limit", strconv.Itoa(feeds.DefaultPageLimit)), 0, 32)
	if err != nil || limit < 1 || limit > feeds.MaxPageLimit {
		limit = feeds.DefaultPageLimit
	}

	snap, err := s.store.Snapshot(feed)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Invalid feed")
	}

	log.WithFields(log.Fields{
		"feed":   feed,
		"cursor": cursor,
		"limit":  limit,
	}).Debug("Serving feed page")

	return c.JSON(feeds.Page(snap, cursor, int(limit)))
}

func (s *server) getActive(c *fiber.Ctx) error {
	return c.JSON(s.store.ActiveSnapshot())
}

func (s *server) switchActive(c *fiber.Ctx) error {
	snap, err := s.store.SwitchActive(models.FeedName(c.Params("feed")))
	if errors.Is(err, feeds.ErrUnknownFeed) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid feed")
	}
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// reachable runs the connectivity probe, loss is logged once until restored
func (s *server) reachable(ctx context.Context) bool {
	if s.prober == nil {
		return true
	}
	reachable, transition := s.connectivity.Check(ctx, s.prober)
	switch transition {
	case hn.Lost:
		log.Warn("Lost connection to the Hacker News API")
	case hn.Restored:
		log.Info("Connection to the Hacker News API restored")
	}
	return reachable
}

func (s *server) loadMore(c *fiber.Ctx) error {
	if !s.reachable(c.UserContext()) {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Hacker News API unreachable")
	}

	feed := s.store.Active()

	if c.QueryBool("wait", false) {
		snap, err := s.store.LoadMore(c.UserContext(), feed)
		var unavailable *feeds.UnavailableError
		if errors.As(err, &unavailable) {
			return c.Status(fiber.StatusServiceUnavailable).SendString(unavailable.Error())
		}
		if err != nil {
			log.WithFields(log.Fields{
				"feed":  feed,
				"error": err,
			}).Error("Error loading more stories")
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading more stories")
		}
		return c.JSON(snap)
	}

	go func() {
		if _, err := s.store.LoadMore(s.ctx, feed); err != nil {
			log.WithFields(log.Fields{
				"feed":  feed,
				"error": err,
			}).Warn("Background load failed")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"feed":   feed,
		"status": "loading",
	})
}

func (s *server) status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"reachable":   s.reachable(c.UserContext()),
		"active":      s.store.Active(),
		"subscribers": s.store.Subscribers(),
	})
}

func (s *server) streamSnapshots(pingInterval time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		sub := s.store.Subscribe()
		sseClients.Inc()

		// Cleanup function
		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", sub.Key)
			sub.Close()
			sseClients.Dec()
		}

		// Use StreamWriter to manage SSE streaming
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			aliveChan := time.NewTicker(pingInterval)
			defer aliveChan.Stop()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", sub.Key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-aliveChan.C:
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", sub.Key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", sub.Key, err)
						return
					}

				case snap, ok := <-sub.C:
					if !ok {
						log.Warnf("Snapshot channel closed for client %s", sub.Key)
						return
					}
					if err := writeSnapshotEvent(w, snap); err != nil {
						log.Warnf("Failed to send snapshot to client %s: %v", sub.Key, err)
						return
					}
				}
			}
		}))

		return nil
	}
}

func writeSnapshotEvent(w *bufio.Writer, snap models.Snapshot) error {
	jsonSnap, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error marshalling snapshot: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Seq, jsonSnap); err != nil {
		return err
	}
	return w.Flush()
}
