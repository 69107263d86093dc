package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Delete for an absent key.
var ErrNotFound = errors.New("key not found")

// Store is the local persistence port: a flat key/value space holding JSON
// documents. Implementations do no locking across Get/Set pairs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Fixed keys of the camera's local state.
const (
	KeyUsers   = "arc_users"
	KeySession = "arc_session"
	KeyHistory = "arc_history"
)
