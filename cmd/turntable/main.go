package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:   "turntable",
		Usage:  "Play music by dropping a needle on a virtual record",
		Flags:  playFlags(),
		Action: play,
		Commands: []*cli.Command{
			{
				Name:   "play",
				Usage:  "Start the player (default)",
				Flags:  playFlags(),
				Action: play,
			},
			{
				Name:  "login",
				Usage: "Sign in to Spotify, then start the player",
				Flags: playFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return run(ctx, cmd, true)
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func playFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
		},
		&cli.BoolFlag{
			Name:  "local",
			Usage: "Start with local files instead of Spotify",
		},
		&cli.StringSliceFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Music file or folder to load (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Write debug output to the log file",
		},
	}
}

func play(ctx context.Context, cmd *cli.Command) error {
	return run(ctx, cmd, false)
}
