// Package post defines the post domain types, the notification envelope
// exchanged between tabs, and the record store interface.
package post

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a post ID is absent from the store.
	ErrNotFound = errors.New("post not found")
	// ErrStoreUnavailable is returned when the record store cannot be read
	// or written, including when the stored blob is corrupt.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrChannelUnavailable is returned when the cross-tab broadcast
	// primitive cannot be opened.
	ErrChannelUnavailable = errors.New("channel unavailable")
)

// Status represents the publication state of a post.
// ENUM(draft, published, archived).
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Statuses returns every valid status in display order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPublished, StatusArchived}
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// Post is the sole entity managed by postsync.
//
// ID and CreatedAt are assigned once at creation. UpdatedAt starts equal to
// CreatedAt and is refreshed on every update.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the payload for creating a post.
type Input struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Status  Status `json:"status"`
}

// Patch holds the fields of a partial update. Nil fields are left untouched.
// There is no way to express a change to ID or CreatedAt.
type Patch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Author  *string `json:"author,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

// IsEmpty reports whether the patch sets no fields.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Author == nil && p.Status == nil
}

// Apply returns a copy of target with the patch's set fields merged in.
// Timestamps are not modified.
func (p Patch) Apply(target Post) Post {
	if p.Title != nil {
		target.Title = *p.Title
	}
	if p.Content != nil {
		target.Content = *p.Content
	}
	if p.Author != nil {
		target.Author = *p.Author
	}
	if p.Status != nil {
		target.Status = *p.Status
	}
	return target
}

// Store is the record store: an opaque blob holding the whole collection.
// Every mutation is a full read-modify-write through ReadAll and WriteAll.
type Store interface {
	// ReadAll returns the stored collection in stored order. A missing blob
	// is an empty collection; a corrupt one fails with ErrStoreUnavailable.
	ReadAll(ctx context.Context) ([]Post, error)
	// WriteAll replaces the stored collection.
	WriteAll(ctx context.Context, posts []Post) error
}

// IndexOf returns the index of the post with the given ID, or -1.
func IndexOf(posts []Post, id string) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}
