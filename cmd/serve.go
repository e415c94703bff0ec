/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"wovennews/server"
)

// serveCmd represents the serve command
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feeds over HTTP",
		Description: `Starts the wovennews HTTP server.

Loads the first page of the recent and best feeds and serves them over a JSON
API. Clients page through a feed with a cursor, switch the active feed and ask
for more stories. Every change is pushed to clients subscribed to the
server-sent events stream.`,
		Flags: append(apiFlags(),
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Value:   "localhost",
				Usage:   "The hostname to bind the server to",
				EnvVars: []string{"WOVENNEWS_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"WOVENNEWS_PORT"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, client, err := setup(ctx)
			if err != nil {
				return err
			}

			// Graceful shutdown
			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !client.Reachable(runCtx) {
				log.Warn("Hacker News API is not reachable, feeds will load once it is")
			}

			log.Info("Loading first pages...")
			store := startStore(runCtx, cfg, client)
			defer store.Shutdown()

			app := server.Server(&server.ServerConfig{
				Store:   store,
				Prober:  client,
				Context: runCtx,
			})

			errChan := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf("%s:%d", ctx.String("hostname"), ctx.Int("port"))
				log.Infof("Starting server on %s", addr)
				errChan <- app.Listen(addr)
			}()

			select {
			case err = <-errChan:
			case <-runCtx.Done():
				log.Info("Gracefully shutting down...")
				// Closing subscriptions ends open event streams
				store.Shutdown()
				err = app.ShutdownWithTimeout(30 * time.Second)
			}

			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			log.Info("Done!")
			return nil
		},
	}
}
