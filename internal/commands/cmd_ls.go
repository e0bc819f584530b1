package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/validate"
	"github.com/hay-kot/postsync/internal/printer"
	"github.com/hay-kot/postsync/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	app   *board.App

	// flags
	author     string
	status     string
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *board.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List posts",
		UsageText: "postsync ls [--author NAME] [--status STATUS] [--json]",
		Description: `Displays the posts in the order they were added.

--author and --status narrow the list; both must match when given together.
Use --json for one JSON object per line.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "author",
				Aliases:     []string{"a"},
				Usage:       "only posts by this author",
				Destination: &cmd.author,
			},
			&cli.StringFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "only posts with this status (draft, published, archived)",
				Destination: &cmd.status,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	filter, err := parseFilter(cmd.author, cmd.status)
	if err != nil {
		return err
	}

	p := printer.Ctx(ctx)
	if cmd.jsonOutput {
		// keep stdout clean for the JSON stream
		p = printer.New(os.Stderr, os.Stderr)
	}

	tab, err := openTab(ctx, cmd.app, notifySink(cmd.app, p))
	if err != nil {
		return err
	}
	defer func() { _ = tab.Close() }()

	posts := tab.Posts(filter)
	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, item := range posts {
			if err := iojson.WriteLineWith(out, os.Stderr, item); err != nil {
				return fmt.Errorf("encode post: %w", err)
			}
		}
		return nil
	}

	if len(posts) == 0 {
		if filter.IsZero() {
			p.Infof("No posts yet. Create one with 'postsync new'")
		} else {
			p.Infof("No posts match the filter")
		}
		return nil
	}

	_, _ = fmt.Fprintln(out, renderPosts(posts))
	return nil
}

func parseFilter(author, status string) (post.Filter, error) {
	f := post.Filter{Author: author, Status: post.Status(status)}
	if f.Status != "" {
		if err := validate.Status(f.Status); err != nil {
			return post.Filter{}, fmt.Errorf("--status: %w", err)
		}
	}
	return f, nil
}
