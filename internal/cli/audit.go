package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/entrypoint"
)

func auditCmd(cfg **config.Config) *cli.Command {
	var filter entrypoint.AuditFilter
	var userID uint
	return &cli.Command{
		Name:  "audit",
		Usage: "Inspect the audit trail",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit events, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "action",
						Usage:       "Only events with this action, e.g. login_failed",
						Destination: &filter.Action,
					},
					&cli.UintFlag{
						Name:        "user-id",
						Usage:       "Only events for this user (ignored with --action)",
						Destination: &userID,
					},
					&cli.IntFlag{
						Name:        "limit",
						Value:       50,
						Destination: &filter.Limit,
					},
					&cli.IntFlag{
						Name:        "offset",
						Destination: &filter.Offset,
					},
				},
				Action: func(ctx *cli.Context) error {
					filter.UserID = userID
					events, total, err := entrypoint.ListAudit(*cfg, filter)
					if err != nil {
						return err
					}

					w := ctx.App.Writer
					for _, e := range events {
						if _, err := fmt.Fprintf(w, "%s  %-12s %-7s user=%d %q ip=%s\n",
							e.CreatedAt.Format(time.RFC3339), e.Action, e.Status, e.UserID, e.Username, e.IPAddress); err != nil {
							return err
						}
					}
					_, err = fmt.Fprintf(w, "%d of %d events\n", len(events), total)
					return err
				},
			},
		},
	}
}
