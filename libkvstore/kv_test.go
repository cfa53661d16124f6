package libkvstore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	libkv "github.com/contenox/pkgbot/libkvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

func runExecutorSuite(t *testing.T, kv libkv.KVExecutor) {
	ctx := context.Background()

	t.Run("crud", func(t *testing.T) {
		key := "testkey"
		value := json.RawMessage(`"testvalue"`)

		require.NoError(t, kv.Set(ctx, key, value))
		retrieved, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, string(value), string(retrieved))

		exists, err := kv.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, kv.Delete(ctx, key))
		_, err = kv.Get(ctx, key)
		assert.ErrorIs(t, err, libkv.ErrNotFound)

		exists, err = kv.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ttl", func(t *testing.T) {
		key := "ttlkey"
		require.NoError(t, kv.SetWithTTL(ctx, key, json.RawMessage(`1`), 200*time.Millisecond))
		exists, err := kv.Exists(ctx, key)
		require.NoError(t, err)
		require.True(t, exists)

		require.Eventually(t, func() bool {
			_, err := kv.Get(ctx, key)
			return err == libkv.ErrNotFound
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("set if absent", func(t *testing.T) {
		key := "lease:recipe"
		ok, err := kv.SetIfAbsent(ctx, key, json.RawMessage(`{"token":"a"}`), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = kv.SetIfAbsent(ctx, key, json.RawMessage(`{"token":"b"}`), time.Minute)
		require.NoError(t, err)
		require.False(t, ok)

		got, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.JSONEq(t, `{"token":"a"}`, string(got))
		require.NoError(t, kv.Delete(ctx, key))
	})

	t.Run("delete if equals", func(t *testing.T) {
		key := "cas"
		require.NoError(t, kv.Set(ctx, key, json.RawMessage(`"one"`)))

		deleted, err := kv.DeleteIfEquals(ctx, key, json.RawMessage(`"two"`))
		require.NoError(t, err)
		require.False(t, deleted)

		deleted, err = kv.DeleteIfEquals(ctx, key, json.RawMessage(`"one"`))
		require.NoError(t, err)
		require.True(t, deleted)

		deleted, err = kv.DeleteIfEquals(ctx, key, json.RawMessage(`"one"`))
		require.NoError(t, err)
		require.False(t, deleted)
	})

	t.Run("validation", func(t *testing.T) {
		require.ErrorIs(t, kv.Set(ctx, "", nil), libkv.ErrEmptyKey)
		_, err := kv.SetIfAbsent(ctx, "k", json.RawMessage(`1`), 0)
		require.ErrorIs(t, err, libkv.ErrBadTTL)
	})
}

func TestUnit_InMemExecutor(t *testing.T) {
	manager := libkv.NewInMemManager()
	defer manager.Close()
	kv, err := manager.Executor(context.Background())
	require.NoError(t, err)
	runExecutorSuite(t, kv)
}

func TestSystem_ValkeyExecutor(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	addr, _, cleanup, err := libkv.SetupLocalValKeyInstance(ctx)
	defer cleanup()
	require.NoError(t, err)

	manager, err := libkv.NewManager(libkv.Config{KVAddr: addr}, 10*time.Second)
	require.NoError(t, err)
	defer manager.Close()

	kv, err := manager.Executor(ctx)
	require.NoError(t, err)
	runExecutorSuite(t, kv)
}
