/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"wovennews/config"
	"wovennews/feeds"
	"wovennews/hn"
)

// Flags shared by every command that talks to Hacker News
func apiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "config/wovennews.toml",
			Usage:   "Path to the configuration file",
			EnvVars: []string{"WOVENNEWS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (trace, debug, info, warn, error)",
			EnvVars: []string{"WOVENNEWS_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL of the Hacker News API",
			EnvVars: []string{"WOVENNEWS_BASE_URL"},
		},
		&cli.IntFlag{
			Name:    "page-size",
			Usage:   "Number of stories resolved per page",
			EnvVars: []string{"WOVENNEWS_PAGE_SIZE"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of concurrent item requests",
			EnvVars: []string{"WOVENNEWS_WORKERS"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout of a single upstream request",
			EnvVars: []string{"WOVENNEWS_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "max-retries",
			Usage:   "Extra attempts for items failing with a transient error",
			EnvVars: []string{"WOVENNEWS_MAX_RETRIES"},
		},
		&cli.Float64Flag{
			Name:    "requests-per-second",
			Usage:   "Upstream request rate limit, 0 means unlimited",
			EnvVars: []string{"WOVENNEWS_REQUESTS_PER_SECOND"},
		},
	}
}

// loadConfig reads the config file and applies flags set on the command line
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	// The default path may be missing, an explicit one may not
	cfg, err := config.LoadConfig(ctx.String("config"), !ctx.IsSet("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if ctx.IsSet("base-url") {
		cfg.API.BaseURL = ctx.String("base-url")
	}
	if ctx.IsSet("page-size") {
		cfg.Paging.PageSize = ctx.Int("page-size")
	}
	if ctx.IsSet("workers") {
		cfg.Paging.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("timeout") {
		cfg.HTTP.Timeout = config.Duration{Duration: ctx.Duration("timeout")}
	}
	if ctx.IsSet("max-retries") {
		cfg.HTTP.MaxRetries = ctx.Int("max-retries")
	}
	if ctx.IsSet("requests-per-second") {
		cfg.HTTP.RequestsPerSecond = ctx.Float64("requests-per-second")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(ctx *cli.Context) error {
	level, err := log.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return nil
}

// setup prepares logging, config and the API client for a command
func setup(ctx *cli.Context) (*config.Config, *hn.Client, error) {
	if err := setupLogging(ctx); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"base_url":  cfg.API.BaseURL,
		"page_size": cfg.Paging.PageSize,
		"workers":   cfg.Paging.Workers,
		"timeout":   cfg.HTTP.Timeout.Duration,
		"retries":   cfg.HTTP.MaxRetries,
	}).Debug("Configuration loaded")

	return cfg, hn.NewClient(cfg), nil
}

// startStore builds the store and loads the first page of both feeds. Feeds
// that fail to list are logged, the store stays usable.
func startStore(ctx context.Context, cfg *config.Config, client *hn.Client) *feeds.Store {
	store := feeds.NewStore(client, cfg.Paging)
	if err := store.Initialize(ctx); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Not every feed could be loaded")
	}
	return store
}
