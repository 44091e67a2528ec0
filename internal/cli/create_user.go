package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/entrypoint"
)

func createUserCmd(cfg **config.Config) *cli.Command {
	var username string
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create a user (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to create",
				Destination: &username,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}
			user, err := entrypoint.CreateUser(ctx.Context, *cfg, username, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(ctx.App.Writer, "Created user %q with id %d\n", user.Username, user.ID)
			return err
		},
	}
}

// readPassword takes the first line of r. Surrounding whitespace is kept
// out of the password.
func readPassword(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimSpace(sc.Text())
	if len(password) == 0 {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}
