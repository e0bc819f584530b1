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
	"github.com/hay-kot/postsync/pkg/iojson"
	"github.com/hay-kot/postsync/pkg/utils"
)

type NewCmd struct {
	flags *Flags
	app   *board.App

	// Command-specific flags
	title   string
	content string
	author  string
	status  string
	file    iojson.FileReader[post.Input]
}

// NewNewCmd creates a new new command
func NewNewCmd(flags *Flags, app *board.App) *NewCmd {
	return &NewCmd{flags: flags, app: app}
}

// Register adds the new command to the application
func (cmd *NewCmd) Register(app *cli.Command) *cli.Command {
	fileFlag := cmd.file.Flag()
	fileFlag.Usage = "read the post as JSON from a file ('-' for stdin)"

	app.Commands = append(app.Commands, &cli.Command{
		Name:      "new",
		Usage:     "Create a post",
		UsageText: "postsync new [options]",
		Description: `Creates a post and announces it to every other open postsync process.

When --title, --content or --author is missing and stdin is a terminal, an
interactive form prompts for the rest. Use --file to read a JSON object with
title, content, author and status fields.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "post title (3-100 characters)",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "content",
				Usage:       "post content, markdown allowed (at least 10 characters)",
				Destination: &cmd.content,
			},
			&cli.StringFlag{
				Name:        "author",
				Aliases:     []string{"a"},
				Usage:       "author name (2-50 characters)",
				Destination: &cmd.author,
			},
			&cli.StringFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "draft, published or archived (defaults to config defaults.status)",
				Destination: &cmd.status,
			},
			fileFlag,
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *NewCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	in, err := cmd.input(c)
	if err != nil {
		return err
	}

	interactive := !complete(in) && term.IsTerminal(int(os.Stdin.Fd()))
	if !interactive && !complete(in) {
		return fmt.Errorf("--title, --content and --author are required when stdin is not a terminal")
	}

	// Hold back notifications from other tabs while the form is on screen.
	var out, errOut utils.DeferredWriter
	tab, err := openTab(ctx, cmd.app, notifySink(cmd.app, printer.New(&out, &errOut)))
	if err != nil {
		_ = errOut.Release(os.Stderr)
		return err
	}
	defer func() { _ = tab.Close() }()

	if interactive {
		err := cmd.runForm(&in, tab.Authors())
		_ = out.Release(c.Root().Writer)
		_ = errOut.Release(os.Stderr)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	} else {
		_ = out.Release(c.Root().Writer)
		_ = errOut.Release(os.Stderr)
	}

	created, err := tab.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	p.Printf("%s", created.ID)
	return nil
}

// input merges --file with the individual flags; flags win.
func (cmd *NewCmd) input(c *cli.Command) (post.Input, error) {
	var in post.Input

	if c.IsSet("file") {
		read, err := cmd.file.Read()
		if err != nil {
			return in, err
		}
		in = read
	}

	if cmd.title != "" {
		in.Title = cmd.title
	}
	if cmd.content != "" {
		in.Content = cmd.content
	}
	if cmd.author != "" {
		in.Author = cmd.author
	}
	if cmd.status != "" {
		in.Status = post.Status(cmd.status)
	}

	if in.Author == "" && cmd.flags.Config != nil {
		in.Author = cmd.flags.Config.Defaults.Author
	}
	return in, nil
}

func complete(in post.Input) bool {
	return in.Title != "" && in.Content != "" && in.Author != ""
}

func (cmd *NewCmd) runForm(in *post.Input, authors []string) error {
	if in.Status == "" && cmd.flags.Config != nil {
		in.Status = cmd.flags.Config.Defaults.Status
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(validate.Title).
				Value(&in.Title),
			huh.NewText().
				Title("Content").
				Description("Markdown is rendered by 'postsync show'").
				Validate(validate.Content).
				Value(&in.Content),
			huh.NewInput().
				Title("Author").
				Suggestions(authors).
				Validate(validate.Author).
				Value(&in.Author),
			huh.NewSelect[post.Status]().
				Title("Status").
				Options(statusOptions()...).
				Value(&in.Status),
		),
	).WithTheme(styles.FormTheme()).Run()
}

func statusOptions() []huh.Option[post.Status] {
	opts := make([]huh.Option[post.Status], 0, len(post.Statuses()))
	for _, s := range post.Statuses() {
		opts = append(opts, huh.NewOption(string(s), s))
	}
	return opts
}
