// Package libkvstore is a key/value layer for short lived coordination state
// such as trust leases. Values are JSON documents.
package libkvstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("libkvstore: key not found")
	ErrEmptyKey = errors.New("libkvstore: key is empty")
	ErrBadTTL   = errors.New("libkvstore: ttl must be positive")
)

type Config struct {
	KVAddr     string
	KVPassword string
}

type KVManager interface {
	Executor(ctx context.Context) (KVExecutor, error)
	Close() error
}

type KVExecutor interface {
	Set(ctx context.Context, key string, value json.RawMessage) error
	SetWithTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
	// SetIfAbsent stores value only when key does not exist and reports
	// whether it did.
	SetIfAbsent(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// DeleteIfEquals removes key only while it still holds value.
	DeleteIfEquals(ctx context.Context, key string, value json.RawMessage) (bool, error)
}
