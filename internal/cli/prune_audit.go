package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/entrypoint"
)

func pruneAuditCmd(cfg **config.Config) *cli.Command {
	var days int
	return &cli.Command{
		Name:  "prune-audit",
		Usage: "Delete audit events older than the given number of days",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "days",
				Usage:       "Retention in days (defaults to AUDIT_RETENTION_DAYS)",
				Destination: &days,
			},
		},
		Action: func(ctx *cli.Context) error {
			if days == 0 {
				days = (*cfg).Audit.RetentionDays
			}
			deleted, err := entrypoint.PruneAudit(*cfg, days)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(ctx.App.Writer, "Deleted %d audit events older than %d days\n", deleted, days)
			return err
		},
	}
}
