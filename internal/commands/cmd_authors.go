package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/printer"
	"github.com/hay-kot/postsync/pkg/iojson"
)

type AuthorsCmd struct {
	flags *Flags
	app   *board.App

	jsonOutput bool
}

// NewAuthorsCmd creates a new authors command
func NewAuthorsCmd(flags *Flags, app *board.App) *AuthorsCmd {
	return &AuthorsCmd{flags: flags, app: app}
}

// Register adds the authors command to the application
func (cmd *AuthorsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "authors",
		Usage:       "List the authors of all posts",
		UsageText:   "postsync authors [--json]",
		Description: "Prints each author once, in the order their first post appears.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as a JSON array",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *AuthorsCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	if cmd.jsonOutput {
		p = printer.New(os.Stderr, os.Stderr)
	}

	tab, err := openTab(ctx, cmd.app, notifySink(cmd.app, p))
	if err != nil {
		return err
	}
	defer func() { _ = tab.Close() }()

	authors := tab.Authors()
	out := c.Root().Writer

	if cmd.jsonOutput {
		return iojson.WriteLineWith(out, os.Stderr, authors)
	}

	for _, a := range authors {
		_, _ = fmt.Fprintln(out, a)
	}
	return nil
}
