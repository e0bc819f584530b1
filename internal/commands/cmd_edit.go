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
	"github.com/hay-kot/postsync/internal/core/validate"
	"github.com/hay-kot/postsync/internal/printer"
)

type EditCmd struct {
	flags *Flags
	app   *board.App
}

// NewEditCmd creates a new edit command
func NewEditCmd(flags *Flags, app *board.App) *EditCmd {
	return &EditCmd{flags: flags, app: app}
}

// Register adds the edit command to the application
func (cmd *EditCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "edit",
		Usage:     "Update a post",
		UsageText: "postsync edit <id> [--title T] [--content C] [--author A] [--status S]",
		Description: `Changes the given fields of a post; fields without a flag keep their value.
The ID may be shortened to any unambiguous prefix.

Without field flags on a terminal, a form pre-filled with the current values
is shown.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "new title"},
			&cli.StringFlag{Name: "content", Usage: "new content"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "new author"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "new status"},
		},
		ShellComplete: PostIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *EditCmd) run(ctx context.Context, c *cli.Command) error {
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

	patch := patchFromFlags(c)
	if patch.IsEmpty() {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("nothing to update: pass at least one of --title, --content, --author, --status")
		}

		current, _ := tab.Get(id)
		patch, err = cmd.runForm(current)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
		if patch.IsEmpty() {
			p.Infof("No changes")
			return nil
		}
	}

	_, ok, err := tab.Update(ctx, id, patch)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, id)
	}
	return nil
}

func patchFromFlags(c *cli.Command) post.Patch {
	var patch post.Patch

	if c.IsSet("title") {
		v := c.String("title")
		patch.Title = &v
	}
	if c.IsSet("content") {
		v := c.String("content")
		patch.Content = &v
	}
	if c.IsSet("author") {
		v := c.String("author")
		patch.Author = &v
	}
	if c.IsSet("status") {
		v := post.Status(c.String("status"))
		patch.Status = &v
	}
	return patch
}

// runForm edits a copy of current and returns only the changed fields.
func (cmd *EditCmd) runForm(current post.Post) (post.Patch, error) {
	edited := current

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(validate.Title).
				Value(&edited.Title),
			huh.NewText().
				Title("Content").
				Validate(validate.Content).
				Value(&edited.Content),
			huh.NewInput().
				Title("Author").
				Validate(validate.Author).
				Value(&edited.Author),
			huh.NewSelect[post.Status]().
				Title("Status").
				Options(statusOptions()...).
				Value(&edited.Status),
		),
	).WithTheme(styles.FormTheme()).Run()
	if err != nil {
		return post.Patch{}, err
	}

	return diffPatch(current, edited), nil
}

func diffPatch(before, after post.Post) post.Patch {
	var patch post.Patch
	if after.Title != before.Title {
		patch.Title = &after.Title
	}
	if after.Content != before.Content {
		patch.Content = &after.Content
	}
	if after.Author != before.Author {
		patch.Author = &after.Author
	}
	if after.Status != before.Status {
		patch.Status = &after.Status
	}
	return patch
}
