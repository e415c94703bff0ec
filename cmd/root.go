/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "wovennews",
		Usage: "Browse the recent and best Hacker News stories page by page",
		Description: `Wovennews keeps two paginated Hacker News feeds, the newest and the
		best stories. Each feed starts from the story ids Hacker News lists and
		resolves one page of stories at a time as the reader scrolls.

		The feeds can be browsed in the terminal, served over an HTTP API with
		server-sent events, or streamed as JSON lines.

		Flags can generally be set via environment variables, e.g.:

		--page-size => WOVENNEWS_PAGE_SIZE=30
		--port => WOVENNEWS_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			browseCmd(),
			streamCmd(),
			idsCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
