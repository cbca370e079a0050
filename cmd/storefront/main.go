package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/pkg/config"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "multi-vendor storefront API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "optional dotenv file loaded before the environment",
				Value:   ".env",
				EnvVars: []string{"STOREFRONT_ENV_FILE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API, gRPC health server and scheduled jobs",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back the database schema",
				Subcommands: []*cli.Command{
					{Name: "up", Action: migrateUp},
					{Name: "down", Action: migrateDown},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront failed")
	}
}

func loadConfig(c *cli.Context) (*config.Config, func()) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	return cfg, setupLogging(cfg)
}

// setupLogging configures logrus and returns a func that closes the log file, if any.
func setupLogging(cfg *config.Config) func() {
	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.LogFile == "" {
		return func() {}
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.WithError(err).Warn("cannot open log file, logging to stderr")
		return func() {}
	}
	log.SetOutput(file)
	return func() { file.Close() }
}
