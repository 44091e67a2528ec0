package cli

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/entrypoint"
)

func serveCmd(cfg **config.Config, logger *zerolog.Logger, version string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(ctx *cli.Context) error {
			return entrypoint.Run(ctx.Context, *cfg, *logger, version)
		},
	}
}
