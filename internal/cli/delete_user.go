package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/entrypoint"
)

func deleteUserCmd(cfg **config.Config) *cli.Command {
	var username string
	return &cli.Command{
		Name:  "delete-user",
		Usage: "Delete a user; its open sessions stop authenticating",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to delete",
				Destination: &username,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			user, err := entrypoint.DeleteUser(ctx.Context, *cfg, username)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(ctx.App.Writer, "Deleted user %q with id %d\n", user.Username, user.ID)
			return err
		},
	}
}
