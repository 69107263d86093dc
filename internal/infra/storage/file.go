package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanwahyu/research-camera/internal/domain/kv"
)

// ErrNotJSON is returned by File.Set for a value that is not a JSON document.
var ErrNotJSON = errors.New("value is not valid JSON")

// File keeps every key in one JSON document on disk. Each Set or Delete
// rewrites the whole file through a temp file and a rename.
type File struct {
	path string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewFile opens (or creates) the state file at path. A corrupted file is moved
// aside to <path>.backup and the store starts empty.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	f := &File{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		_ = os.Rename(path, path+".backup")
		f.data = make(map[string]json.RawMessage)
	}
	return f, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key. Values are embedded in the state document
// as-is, so they must be valid JSON.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("%w: %s", ErrNotJSON, key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	raw := json.RawMessage(append([]byte(nil), value...))

	prev, had := f.data[key]
	f.data[key] = raw
	if err := f.flushLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, ok := f.data[key]
	if !ok {
		return kv.ErrNotFound
	}
	delete(f.data, key)
	if err := f.flushLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

func (f *File) Keys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plain := make(map[string][]byte, len(f.data))
	for k := range f.data {
		plain[k] = nil
	}
	return sortedKeys(plain, prefix), nil
}

// Path of the backing file.
func (f *File) Path() string { return f.path }

func (f *File) flushLocked() error {
	data, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
