package libkvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"
)

type entry struct {
	value   json.RawMessage
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// InMemManager keeps all keys in process memory. Expired keys are dropped
// lazily on access.
type InMemManager struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

func NewInMemManager() *InMemManager {
	return &InMemManager{data: make(map[string]entry), now: time.Now}
}

func (m *InMemManager) Executor(ctx context.Context) (KVExecutor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *InMemManager) Close() error { return nil }

// lookup returns the live entry for key. Callers hold m.mu.
func (m *InMemManager) lookup(key string) (entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(m.now()) {
		delete(m.data, key)
		return entry{}, false
	}
	return e, true
}

func (m *InMemManager) Set(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = entry{value: bytes.Clone(value)}
	return nil
}

func (m *InMemManager) SetWithTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrBadTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = entry{value: bytes.Clone(value), expires: m.now().Add(ttl)}
	return nil
}

func (m *InMemManager) SetIfAbsent(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if ttl <= 0 {
		return false, ErrBadTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.data[key] = entry{value: bytes.Clone(value), expires: m.now().Add(ttl)}
	return true, nil
}

func (m *InMemManager) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(e.value), nil
}

func (m *InMemManager) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *InMemManager) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *InMemManager) DeleteIfEquals(ctx context.Context, key string, value json.RawMessage) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok || !bytes.Equal(e.value, value) {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

var (
	_ KVManager  = (*InMemManager)(nil)
	_ KVExecutor = (*InMemManager)(nil)
)
