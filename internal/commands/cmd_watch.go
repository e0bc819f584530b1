package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/printer"
	"github.com/hay-kot/postsync/internal/reconcile"
	"github.com/hay-kot/postsync/pkg/iojson"
)

const changeBuffer = 256

type WatchCmd struct {
	flags *Flags
	app   *board.App

	author     string
	status     string
	jsonOutput bool
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags, app *board.App) *WatchCmd {
	return &WatchCmd{flags: flags, app: app}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Stay open and report changes made in other processes",
		UsageText: "postsync watch [--author NAME] [--status STATUS] [--json]",
		Description: `Keeps a tab open until interrupted, printing every change that arrives over
the relay. Changes to posts outside the filter are not printed.

With --json each change is written as one JSON object per line:
  {"source":"cross-tab","applied":true,"type":"NEW_POST","payload":{...}}`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "author",
				Aliases:     []string{"a"},
				Usage:       "only report posts by this author",
				Destination: &cmd.author,
			},
			&cli.StringFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "only report posts with this status",
				Destination: &cmd.status,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output changes as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

// changeLine is the JSON form of one reconciled change.
type changeLine struct {
	Source   reconcile.Source
	Applied  bool
	Envelope post.Envelope
}

func (l changeLine) MarshalJSON() ([]byte, error) {
	env, err := json.Marshal(l.Envelope)
	if err != nil {
		return nil, err
	}
	// splice the source fields in front of the envelope's own
	head := fmt.Sprintf(`{"source":%q,"applied":%t,`, l.Source, l.Applied)
	return append([]byte(head), env[1:]...), nil
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	filter, err := parseFilter(cmd.author, cmd.status)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := printer.Ctx(ctx)
	if cmd.jsonOutput {
		p = printer.New(os.Stderr, os.Stderr)
	}

	// Notifications are queued and printed by the loop below so relay
	// deliveries never write concurrently with it.
	buf := notify.NewBuffer()

	// describe reports sync changes itself; the tab's own lines are dropped
	tab, err := openTab(ctx, cmd.app, notifySink(cmd.app, printer.New(io.Discard, os.Stderr)))
	if err != nil {
		return err
	}
	defer func() { _ = tab.Close() }()

	changes := make(chan reconcile.Change, changeBuffer)
	sub := tab.View().OnChange(func(ch reconcile.Change) {
		if ch.Source != reconcile.SourceCrossTab || !matches(filter, ch.Envelope) {
			return
		}
		if !cmd.jsonOutput {
			buf.Notify(describe(ch))
			return
		}
		select {
		case changes <- ch:
		default:
			log.Warn().Stringer("envelope", ch.Envelope).Msg("watch output is behind, dropping change")
		}
	})
	defer sub.Unsubscribe()

	if !tab.Synced() {
		p.Warnf("relay unavailable; only this process's changes would be seen")
	}
	p.Infof("Watching %d post(s) on tab %s. Press Ctrl+C to stop.", len(tab.Posts(filter)), tab.ID())

	out := c.Root().Writer
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-buf.Signal():
			for _, n := range buf.Drain() {
				p.Notify(n)
			}
		case ch := <-changes:
			if err := iojson.WriteLineWith(out, os.Stderr, changeLine{Source: ch.Source, Applied: ch.Applied, Envelope: ch.Envelope}); err != nil {
				return fmt.Errorf("encode change: %w", err)
			}
		}
	}
}

// matches reports whether a change concerns a post inside the filter.
// Deletes carry no post and always match.
func matches(f post.Filter, env post.Envelope) bool {
	if env.Kind == post.KindDeleted || f.IsZero() {
		return true
	}
	return f.Match(env.Post)
}

func describe(ch reconcile.Change) notify.Notification {
	n := notify.Notification{Level: notify.LevelInfo, Title: board.TitleSync, CreatedAt: time.Now()}

	switch ch.Envelope.Kind {
	case post.KindNew:
		n.Message = fmt.Sprintf("New post %q by %s [%s]", ch.Envelope.Post.Title, ch.Envelope.Post.Author, shortID(ch.Envelope.Post.ID))
		if !ch.Applied {
			n.Message += " (already known)"
		}
	case post.KindUpdated:
		n.Message = fmt.Sprintf("Post %q updated, now %s [%s]", ch.Envelope.Post.Title, ch.Envelope.Post.Status, shortID(ch.Envelope.Post.ID))
	case post.KindDeleted:
		n.Message = fmt.Sprintf("Post %s deleted", shortID(ch.Envelope.TargetID()))
	}
	return n
}
