// Package cli defines the session-auth command line.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/logutil"
)

// NewApp builds the command line application. Without a command it serves.
func NewApp(version string) *cli.App {
	var cfg *config.Config
	var logger zerolog.Logger
	var dbPath string

	serve := serveCmd(&cfg, &logger, version)
	return &cli.App{
		Name:    "session-auth",
		Usage:   "Session-based signup, login and logout over HTTP",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "db",
				Usage:       "Path to the SQLite database (overrides DATABASE_PATH)",
				Destination: &dbPath,
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg = config.NewConfig()
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			logger = logutil.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			logutil.SetDefault(logger)
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Action: serve.Action,
		Commands: []*cli.Command{
			serve,
			createUserCmd(&cfg),
			deleteUserCmd(&cfg),
			auditCmd(&cfg),
			pruneAuditCmd(&cfg),
		},
	}
}
