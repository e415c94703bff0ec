/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"wovennews/models"
)

func idsCmd() *cli.Command {
	return &cli.Command{
		Name:  "ids",
		Usage: "Print the story ids listed for a feed",
		Description: `Fetches the identifier listing backing a feed and prints one id per
line, in the order Hacker News returns them.`,
		Flags: append(apiFlags(),
			&cli.StringFlag{
				Name:    "feed",
				Aliases: []string{"f"},
				Value:   string(models.FeedRecent),
				Usage:   "Feed to list (recent or best)",
				EnvVars: []string{"WOVENNEWS_FEED"},
			},
		),
		Action: func(ctx *cli.Context) error {
			log.SetOutput(os.Stderr)

			_, client, err := setup(ctx)
			if err != nil {
				return err
			}

			ids, err := client.ListIDs(ctx.Context, models.FeedName(ctx.String("feed")))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(ctx.App.Writer, strings.Join(ids, "\n"))
			return err
		},
	}
}
