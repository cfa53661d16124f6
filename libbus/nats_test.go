package libbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/contenox/pkgbot/libbus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

func newTestBus(t *testing.T) libbus.Messenger {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ps, cleanup, err := libbus.NewTestPubSub()
	t.Cleanup(cleanup)
	require.NoError(t, err)
	return ps
}

func TestSystem_NATS_QueueGroup(t *testing.T) {
	ps := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := make(chan []byte, 8)
	_, err := ps.Queue(ctx, "test.jobs", "workers", ch)
	require.NoError(t, err)
	_, err = ps.Queue(ctx, "test.jobs", "workers", ch)
	require.NoError(t, err)

	require.NoError(t, ps.Publish(ctx, "test.jobs", []byte("job")))
	select {
	case <-ch:
	case <-ctx.Done():
		t.Fatal("timed out waiting for job")
	}
	select {
	case <-ch:
		t.Fatal("job delivered twice within the queue group")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSystem_NATS_QueueBalancesAcrossMembers(t *testing.T) {
	ps := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := make(chan []byte)
	b := make(chan []byte)
	_, err := ps.Queue(ctx, "test.balance", "workers", a)
	require.NoError(t, err)
	_, err = ps.Queue(ctx, "test.balance", "workers", b)
	require.NoError(t, err)

	for range 20 {
		require.NoError(t, ps.Publish(ctx, "test.balance", []byte("job")))
	}
	var fromA, fromB int
	for fromA+fromB < 20 {
		select {
		case <-a:
			fromA++
		case <-b:
			fromB++
		case <-ctx.Done():
			t.Fatalf("timed out after %d jobs", fromA+fromB)
		}
	}
	require.Positive(t, fromA)
	require.Positive(t, fromB)
}

func TestSystem_NATS_PublishAfterClose(t *testing.T) {
	ps := newTestBus(t)
	require.NoError(t, ps.Close())
	err := ps.Publish(context.Background(), "test.closed", []byte("data"))
	require.ErrorIs(t, err, libbus.ErrConnectionClosed)
}
