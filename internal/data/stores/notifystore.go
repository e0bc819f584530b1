package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/data/db"
)

// DefaultNotificationHistory is how many notifications NotifyStore keeps
// when no other limit is given.
const DefaultNotificationHistory = 500

// NotifyStore keeps the notification history in the notifications table.
// Saving past the history limit drops the oldest rows.
type NotifyStore struct {
	db   *db.DB
	keep int64
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore returns a store keeping the newest keep notifications.
// keep <= 0 means DefaultNotificationHistory.
func NewNotifyStore(database *db.DB, keep int) *NotifyStore {
	if keep <= 0 {
		keep = DefaultNotificationHistory
	}
	return &NotifyStore{db: database, keep: int64(keep)}
}

func (s *NotifyStore) Save(ctx context.Context, n notify.Notification) (int64, error) {
	var id int64
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		var err error
		id, err = q.InsertNotification(ctx, db.InsertNotificationParams{
			Level:     string(n.Level),
			Title:     n.Title,
			Message:   n.Message,
			CreatedAt: n.CreatedAt.UnixNano(),
		})
		if err != nil {
			return err
		}
		return q.TrimNotifications(ctx, s.keep)
	})
	if err != nil {
		return 0, fmt.Errorf("save notification: %w", err)
	}
	return id, nil
}

// Recent returns up to limit notifications, newest first. limit <= 0
// returns the whole history.
func (s *NotifyStore) Recent(ctx context.Context, limit int) ([]notify.Notification, error) {
	n := int64(limit)
	if n <= 0 {
		n = -1
	}

	rows, err := s.db.Queries().ListNotifications(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]notify.Notification, len(rows))
	for i, row := range rows {
		out[i] = notify.Notification{
			ID:        row.ID,
			Level:     notify.Level(row.Level),
			Title:     row.Title,
			Message:   row.Message,
			CreatedAt: time.Unix(0, row.CreatedAt),
		}
	}
	return out, nil
}

// Clear deletes the history and returns how many notifications it held.
func (s *NotifyStore) Clear(ctx context.Context) (int64, error) {
	n, err := s.db.Queries().DeleteAllNotifications(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	return n, nil
}
