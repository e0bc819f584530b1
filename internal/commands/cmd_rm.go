package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/styles"
	"github.com/hay-kot/postsync/internal/printer"
)

type RmCmd struct {
	flags *Flags
	app   *board.App

	yes bool
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags, app *board.App) *RmCmd {
	return &RmCmd{flags: flags, app: app}
}

// Register adds the rm command to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Usage:     "Delete a post",
		UsageText: "postsync rm [--yes] <id>",
		Description: `Deletes a post after confirmation and tells other open postsync processes.
The ID may be shortened to any unambiguous prefix. --yes is required when
stdin is not a terminal.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.yes,
			},
		},
		ShellComplete: PostIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("post id is required")
	}

	p := printer.Ctx(ctx)

	tab, err := openTab(ctx, cmd.app, notifySink(cmd.app, p))
	if err != nil {
		return err
	}
	defer func() { _ = tab.Close() }()

	id, err := resolveID(tab, ref)
	if err != nil {
		return err
	}

	if !cmd.yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to delete without confirmation; pass --yes")
		}

		current, _ := tab.Get(id)
		confirmed := false
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %q?", current.Title)).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&confirmed),
			),
		).WithTheme(styles.FormTheme()).Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	ok, err := tab.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, id)
	}
	return nil
}
