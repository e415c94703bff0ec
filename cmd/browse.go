/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"wovennews/tui"
)

func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse the feeds in the terminal",
		Description: `Opens an interactive list of stories.

Use tab, r or b to switch between the recent and best feeds. Scrolling past
the last story loads the next page. Enter shows the link of the selected
story and q quits.

Log messages would corrupt the screen, so they are written to the file given
with --log-file or discarded.`,
		Flags: append(apiFlags(),
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Write log messages to this file",
				EnvVars: []string{"WOVENNEWS_LOG_FILE"},
			},
		),
		Action: func(ctx *cli.Context) error {
			if path := ctx.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("could not open log file: %w", err)
				}
				defer f.Close()
				log.SetOutput(f)
			} else {
				log.SetOutput(io.Discard)
			}

			cfg, client, err := setup(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stderr, "Loading Hacker News...")
			store := startStore(ctx.Context, cfg, client)
			defer store.Shutdown()

			return tui.Run(ctx.Context, store, tui.WithProber(client))
		},
	}
}
