// Package jsonfile holds the file-based backends: a KV store kept in one
// JSON document and a cross-process relay transport built on fsnotify.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hay-kot/postsync/internal/core/kv"
)

// KVDocument is the root JSON structure stored on disk.
type KVDocument struct {
	Entries map[string]KVEntry `json:"entries"`
}

// KVEntry is one stored value with its timestamps.
type KVEntry struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// KVFile implements kv.KV using a single JSON file. Every call reloads the
// file so writes from other processes are observed.
type KVFile struct {
	path string
	mu   sync.RWMutex
}

var _ kv.KV = (*KVFile)(nil)

// NewKVFile creates a JSON file KV store at the given path.
func NewKVFile(path string) *KVFile {
	return &KVFile{path: path}
}

// Path returns the backing file path.
func (s *KVFile) Path() string { return s.path }

func (s *KVFile) Get(_ context.Context, key string, dest any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load()
	if err != nil {
		return fmt.Errorf("kv get %q: %w", key, err)
	}

	entry, ok := doc.Entries[key]
	if !ok {
		return fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}

	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

func (s *KVFile) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}

	now := time.Now()
	entry, ok := doc.Entries[key]
	if !ok {
		entry.CreatedAt = now
	}
	entry.Value = data
	entry.UpdatedAt = now
	doc.Entries[key] = entry

	if err := s.save(doc); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *KVFile) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}

	if _, ok := doc.Entries[key]; !ok {
		return nil
	}
	delete(doc.Entries, key)

	if err := s.save(doc); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (s *KVFile) GetRaw(_ context.Context, key string) (kv.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load()
	if err != nil {
		return kv.Entry{}, fmt.Errorf("kv get raw %q: %w", key, err)
	}

	entry, ok := doc.Entries[key]
	if !ok {
		return kv.Entry{}, fmt.Errorf("kv get raw %q: %w", key, kv.ErrNotFound)
	}

	return kv.Entry{
		Key:       key,
		Value:     entry.Value,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}, nil
}

// load reads the document from disk.
// Returns an empty document if the file doesn't exist.
func (s *KVFile) load() (KVDocument, error) {
	doc := KVDocument{Entries: map[string]KVEntry{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, err
	}

	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", filepath.Base(s.path), err)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]KVEntry{}
	}

	return doc, nil
}

// save writes the document to disk atomically. The temp file is unique so
// concurrent writers in other processes never share one.
func (s *KVFile) save(doc KVDocument) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
