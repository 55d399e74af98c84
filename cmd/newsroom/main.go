package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"newsroom/web/internal/config"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	config.LoadDotEnv()

	if err := rootApp().Run(os.Args); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func rootApp() *cli.App {
	return &cli.App{
		Name:  "newsroom",
		Usage: "Server-rendered news site backed by a headless CMS and a syndicated news table",
		Description: `Serves the home page, category listings, article pages and the breaking
		news ticker.

		Settings are read from the environment (and a .env file when present);
		flags override them, e.g.:

		--port => NEWSROOM_PORT=3000
		--db-dsn => NEWSROOM_DB_DSN=./newsroom.db
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (env: " + config.EnvLogLevel + ")",
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg := config.FromEnv()
			if ctx.IsSet("log-level") {
				level, err := zerolog.ParseLevel(ctx.String("log-level"))
				if err != nil {
					return err
				}
				cfg.LogLevel = level
			}
			zerolog.SetGlobalLevel(cfg.LogLevel)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			importCmd(),
			routesCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return cli.ShowAppHelp(ctx)
		},
	}
}
