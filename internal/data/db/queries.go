package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the statements used by the stores.
type Queries struct {
	db DBTX
}

// NewQueries binds a query set to a connection or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// KvStore is a row of the kv_store table. Timestamps are unix nanoseconds.
type KvStore struct {
	Key       string
	Value     []byte
	CreatedAt int64
	UpdatedAt int64
}

const kvGet = `SELECT key, value, created_at, updated_at FROM kv_store WHERE key = ?`

// KVGet returns the row for key, or sql.ErrNoRows.
func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	var row KvStore
	err := q.db.QueryRowContext(ctx, kvGet, key).Scan(
		&row.Key,
		&row.Value,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	return row, err
}

// KVSetParams are the arguments to KVSet.
type KVSetParams struct {
	Key   string
	Value []byte
	Now   int64
}

const kvSet = `INSERT INTO kv_store (key, value, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// KVSet inserts or replaces the value for a key, keeping created_at on update.
func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, kvSet, arg.Key, arg.Value, arg.Now, arg.Now)
	return err
}

const kvDelete = `DELETE FROM kv_store WHERE key = ?`

// KVDelete removes a key. Deleting a missing key is not an error.
func (q *Queries) KVDelete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, kvDelete, key)
	return err
}

// Notification is a row of the notifications table.
type Notification struct {
	ID        int64
	Level     string
	Title     string
	Message   string
	CreatedAt int64
}

// InsertNotificationParams are the arguments to InsertNotification.
type InsertNotificationParams struct {
	Level     string
	Title     string
	Message   string
	CreatedAt int64
}

const insertNotification = `INSERT INTO notifications (level, title, message, created_at) VALUES (?, ?, ?, ?)`

// InsertNotification stores a notification and returns its row ID.
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertNotification, arg.Level, arg.Title, arg.Message, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// listNotifications takes a LIMIT; SQLite treats a negative limit as none.
const listNotifications = `SELECT id, level, title, message, created_at FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`

// ListNotifications returns up to limit notifications, newest first.
func (q *Queries) ListNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotifications, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Level, &n.Title, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const deleteAllNotifications = `DELETE FROM notifications`

// DeleteAllNotifications empties the table and returns how many rows it held.
func (q *Queries) DeleteAllNotifications(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAllNotifications)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const trimNotifications = `DELETE FROM notifications WHERE id NOT IN (
	SELECT id FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?
)`

// TrimNotifications deletes all but the newest keep notifications.
func (q *Queries) TrimNotifications(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, trimNotifications, keep)
	return err
}
