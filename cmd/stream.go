/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"wovennews/feeds"
	"wovennews/models"
)

// streamCmd prints every published snapshot
func streamCmd() *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Print feed snapshots as JSON lines",
		Description: `Loads the first page of both feeds and prints every published snapshot
as a JSON object on a single line. Use a tool like jq to process the output.
A slow reader only sees the latest snapshot of each feed.

--feed switches the active feed before printing and --pages loads that many
extra pages, one snapshot per page.

Prints all other log messages to stderr.`,
		Flags: append(apiFlags(),
			&cli.StringFlag{
				Name:    "feed",
				Aliases: []string{"f"},
				Value:   string(models.FeedRecent),
				Usage:   "Feed to stream (recent or best)",
				EnvVars: []string{"WOVENNEWS_FEED"},
			},
			&cli.IntFlag{
				Name:    "pages",
				Value:   0,
				Usage:   "Number of additional pages to load",
				EnvVars: []string{"WOVENNEWS_PAGES"},
			},
		),
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			cfg, client, err := setup(ctx)
			if err != nil {
				return err
			}

			store := feeds.NewStore(client, cfg.Paging)
			defer store.Shutdown()

			done := store.Attach(ctx.Context, printer(os.Stdout))

			if err := store.Initialize(ctx.Context); err != nil {
				log.WithFields(log.Fields{
					"error": err,
				}).Warn("Not every feed could be loaded")
			}

			feed := models.FeedName(ctx.String("feed"))
			if feed != store.Active() {
				if _, err := store.SwitchActive(feed); err != nil {
					return err
				}
			}

			if err := loadPages(ctx.Context, store, ctx.Int("pages")); err != nil {
				return err
			}

			// Let the printer drain the last snapshot
			store.Shutdown()
			<-done
			return nil
		},
	}
}

func loadPages(ctx context.Context, store *feeds.Store, pages int) error {
	for page := 1; page <= pages; page++ {
		snap, err := store.LoadMoreActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to load page %d: %w", page, err)
		}
		log.WithFields(log.Fields{
			"feed":    snap.Feed,
			"page":    page,
			"stories": len(snap.Stories),
		}).Info("Loaded page")
		if snap.Exhausted {
			log.WithFields(log.Fields{
				"feed": snap.Feed,
			}).Info("Feed exhausted")
			return nil
		}
	}
	return nil
}

// printer writes each snapshot as a single JSON line
func printer(w io.Writer) feeds.Presenter {
	enc := json.NewEncoder(w)
	return feeds.PresenterFunc(func(feed models.FeedName, stories []models.Story) {
		err := enc.Encode(struct {
			Feed    models.FeedName `json:"feed"`
			Stories []models.Story  `json:"stories"`
		}{feed, stories})
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Failed to write snapshot")
		}
	})
}
