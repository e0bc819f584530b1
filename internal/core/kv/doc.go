package kv

import (
	"context"
	"errors"
)

// Doc is a single value of type T kept under one fixed key.
type Doc[T any] struct {
	store KV
	key   string
}

// NewDoc returns the document stored at "namespace:name".
func NewDoc[T any](store KV, namespace, name string) Doc[T] {
	return Doc[T]{store: store, key: namespace + ":" + name}
}

// Key is the full key the document is stored under.
func (d Doc[T]) Key() string { return d.key }

// Load returns the stored value. ok is false when nothing has been saved.
func (d Doc[T]) Load(ctx context.Context) (v T, ok bool, err error) {
	err = d.store.Get(ctx, d.key, &v)
	switch {
	case errors.Is(err, ErrNotFound):
		return v, false, nil
	case err != nil:
		return v, false, err
	}
	return v, true, nil
}

func (d Doc[T]) Save(ctx context.Context, v T) error {
	return d.store.Set(ctx, d.key, v)
}
