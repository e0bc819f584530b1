// Package kv is the small key-value layer under the record store. Values
// are JSON; each backend keeps created and updated timestamps per key.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is wrapped by Get and GetRaw for a missing key.
var ErrNotFound = errors.New("kv: key not found")

// Entry is a stored value before decoding.
type Entry struct {
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KV is implemented by the sqlite and json file backends.
type KV interface {
	// Get decodes the value at key into dest. Errors other than
	// ErrNotFound mean the value exists but could not be read or decoded.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
	GetRaw(ctx context.Context, key string) (Entry, error)
}
