package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/styles"
	"github.com/hay-kot/postsync/internal/printer"
	"github.com/hay-kot/postsync/pkg/iojson"
)

type NotificationsCmd struct {
	flags *Flags
	app   *board.App

	limit      int
	clear      bool
	jsonOutput bool
}

// NewNotificationsCmd creates a new notifications command
func NewNotificationsCmd(flags *Flags, app *board.App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications command to the application
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "notifications",
		Aliases:   []string{"notes"},
		Usage:     "Show the notification history",
		UsageText: "postsync notifications [--limit N] [--clear] [--json]",
		Description: `Lists past notifications, newest first. Only the sqlite backend keeps a
history.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "show at most N notifications (0 for all)",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "clear",
				Usage:       "delete the history",
				Destination: &cmd.clear,
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

type notificationInfo struct {
	ID        int64        `json:"id"`
	Level     notify.Level `json:"level"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (cmd *NotificationsCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	store := cmd.app.Notifications
	if store == nil {
		return fmt.Errorf("notification history requires the sqlite backend (store.backend: sqlite)")
	}

	if cmd.clear {
		n, err := store.Clear(ctx)
		if err != nil {
			return err
		}
		p.Successf("Cleared %d notification(s)", n)
		return nil
	}

	items, err := store.Recent(ctx, cmd.limit)
	if err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, n := range items {
			info := notificationInfo{
				ID:        n.ID,
				Level:     n.Level,
				Title:     n.Title,
				Message:   n.Message,
				CreatedAt: n.CreatedAt,
			}
			if err := iojson.WriteLineWith(out, os.Stderr, info); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	}

	if len(items) == 0 {
		p.Infof("No notifications")
		return nil
	}

	for _, n := range items {
		stamp := styles.MutedStyle.Render(n.CreatedAt.Local().Format(time.DateTime))
		_, _ = fmt.Fprintf(out, "%s  %s\n", stamp, printer.FormatNotification(n))
	}
	return nil
}
