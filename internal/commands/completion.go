package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/postsync/internal/board"
)

// PostIDCompleter returns a ShellCompleteFunc that suggests post IDs as
// positional completions, with the title as the description.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func PostIDCompleter(app *board.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if app.Store == nil {
			return
		}

		posts, err := app.Store.ReadAll(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, p := range posts {
			_, _ = fmt.Fprintf(w, "%s:%s\n", p.ID, p.Title)
		}
	}
}
