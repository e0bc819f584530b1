package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/logging"
	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/styles"
	"github.com/hay-kot/postsync/internal/printer"
)

// notifySink prints notifications, logs them and, when the backend keeps a
// history, records them.
func notifySink(app *board.App, p *printer.Printer) notify.Sink {
	logger := logging.Component("notify")

	sinks := []notify.Sink{p, notify.LogSink{Logger: logger}}
	if app.Notifications != nil {
		sinks = append(sinks, notify.StoreSink{Store: app.Notifications, Logger: logger})
	}
	return notify.Multi(sinks...)
}

// openTab opens the process's tab. The tab is closed again when loading
// fails; the failure has already been reported through sink.
func openTab(ctx context.Context, app *board.App, sink notify.Sink) (*board.Tab, error) {
	tab, err := app.OpenTab(ctx, sink)
	if err != nil {
		_ = tab.Close()
		return nil, fmt.Errorf("load posts: %w", err)
	}
	return tab, nil
}

// resolveID accepts a full post ID or an unambiguous prefix of one.
func resolveID(tab *board.Tab, ref string) (string, error) {
	if _, ok := tab.Get(ref); ok {
		return ref, nil
	}

	var matches []string
	for _, p := range tab.Posts(post.Filter{}) {
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", post.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d posts)", ref, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderPosts renders posts as a borderless table.
func renderPosts(posts []post.Post) string {
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, []string{
			shortID(p.ID),
			p.Title,
			string(p.Status),
			p.Author,
			p.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	cell := lipgloss.NewStyle().PaddingRight(2)

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers("ID", "TITLE", "STATUS", "AUTHOR", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Inherit(styles.HeaderStyle)
			}
			switch col {
			case 0:
				return cell.Inherit(styles.MutedStyle)
			case 2:
				return cell.Foreground(styles.StatusColor(post.Status(rows[row][2])))
			default:
				return cell
			}
		}).
		String()
}
