package libkvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

var deleteIfEqualsScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type valkeyManager struct {
	client  valkey.Client
	timeout time.Duration
}

// NewManager connects to the Valkey server at cfg.KVAddr. timeout bounds each
// command issued through the executors.
func NewManager(cfg Config, timeout time.Duration) (KVManager, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.KVAddr},
		Password:    cfg.KVPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.KVAddr, err)
	}
	return &valkeyManager{client: client, timeout: timeout}, nil
}

func (m *valkeyManager) Executor(ctx context.Context) (KVExecutor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &valkeyExec{client: m.client, timeout: m.timeout}, nil
}

func (m *valkeyManager) Close() error {
	m.client.Close()
	return nil
}

type valkeyExec struct {
	client  valkey.Client
	timeout time.Duration
}

func (e *valkeyExec) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *valkeyExec) Set(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return ErrEmptyKey
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	cmd := e.client.B().Set().Key(key).Value(string(value)).Build()
	if err := e.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (e *valkeyExec) SetWithTTL(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrBadTTL
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	cmd := e.client.B().Set().Key(key).Value(string(value)).PxMilliseconds(ttl.Milliseconds()).Build()
	if err := e.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (e *valkeyExec) SetIfAbsent(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	if ttl <= 0 {
		return false, ErrBadTTL
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	cmd := e.client.B().Set().Key(key).Value(string(value)).Nx().PxMilliseconds(ttl.Milliseconds()).Build()
	err := e.client.Do(ctx, cmd).Error()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set nx %s: %w", key, err)
	}
	return true, nil
}

func (e *valkeyExec) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	b, err := e.client.Do(ctx, e.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return json.RawMessage(b), nil
}

func (e *valkeyExec) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	n, err := e.client.Do(ctx, e.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (e *valkeyExec) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := e.client.Do(ctx, e.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (e *valkeyExec) DeleteIfEquals(ctx context.Context, key string, value json.RawMessage) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	n, err := deleteIfEqualsScript.Exec(ctx, e.client, []string{key}, []string{string(value)}).AsInt64()
	if err != nil {
		return false, fmt.Errorf("delete if equals %s: %w", key, err)
	}
	return n > 0, nil
}
