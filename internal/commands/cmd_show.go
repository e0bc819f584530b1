package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/styles"
	"github.com/hay-kot/postsync/internal/printer"
	"github.com/hay-kot/postsync/pkg/iojson"
)

const defaultWrap = 80

type ShowCmd struct {
	flags *Flags
	app   *board.App

	raw        bool
	jsonOutput bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *board.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a single post",
		UsageText: "postsync show [--raw | --json] <id>",
		Description: `Prints a post's details. On a terminal the content is rendered as markdown;
--raw prints it verbatim.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print content without markdown rendering",
				Destination: &cmd.raw,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: PostIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("post id is required")
	}

	p := printer.Ctx(ctx)
	if cmd.jsonOutput {
		p = printer.New(os.Stderr, os.Stderr)
	}

	tab, err := openTab(ctx, cmd.app, notifySink(cmd.app, p))
	if err != nil {
		return err
	}
	defer func() { _ = tab.Close() }()

	id, err := resolveID(tab, ref)
	if err != nil {
		return err
	}

	item, ok := tab.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, id)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, item)
	}

	f, isFile := out.(*os.File)
	tty := isFile && term.IsTerminal(int(f.Fd()))
	return writePost(out, item, !cmd.raw && tty)
}

func writePost(w io.Writer, item post.Post, render bool) error {
	_, _ = fmt.Fprintln(w, styles.TitleStyle.Render(item.Title)+"  "+styles.StatusBadge(item.Status))
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("%s · by %s · created %s · updated %s",
		item.ID,
		item.Author,
		item.CreatedAt.Local().Format(time.DateTime),
		item.UpdatedAt.Local().Format(time.DateTime),
	)))
	_, _ = fmt.Fprintln(w)

	content := item.Content
	if render {
		rendered, err := renderMarkdown(content, terminalWidth())
		if err != nil {
			return fmt.Errorf("render content: %w", err)
		}
		content = rendered
	}

	_, err := fmt.Fprintln(w, strings.TrimRight(content, "\n"))
	return err
}

func renderMarkdown(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWrap
	}
	return min(w, 120)
}
