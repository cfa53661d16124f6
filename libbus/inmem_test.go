package libbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/contenox/pkgbot/libbus"
	"github.com/stretchr/testify/require"
)

func TestUnit_InMem_QueueReceivesPublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	bus := libbus.NewInMem()
	defer bus.Close()

	ch := make(chan []byte, 1)
	sub, err := bus.Queue(ctx, "test.queue", "workers", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, "test.queue", []byte("hello")))
	select {
	case got := <-ch:
		require.Equal(t, []byte("hello"), got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestUnit_InMem_PublishWithoutSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	defer bus.Close()

	err := bus.Publish(ctx, "test.nobody", []byte("x"))
	require.ErrorIs(t, err, libbus.ErrNoSubscribers)
	require.Contains(t, err.Error(), "test.nobody")

	ch := make(chan []byte, 1)
	_, err = bus.Queue(ctx, "test.other", "workers", ch)
	require.NoError(t, err)
	require.ErrorIs(t, bus.Publish(ctx, "test.nobody", []byte("x")), libbus.ErrNoSubscribers)
}

func TestUnit_InMem_UnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	defer bus.Close()

	ch := make(chan []byte, 1)
	sub, err := bus.Queue(ctx, "test.unsub", "workers", ch)
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	require.ErrorIs(t, bus.Publish(ctx, "test.unsub", []byte("x")), libbus.ErrNoSubscribers)
	require.Empty(t, ch)
}

func TestUnit_InMem_QueueDeliversToOneMember(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	defer bus.Close()

	a := make(chan []byte, 4)
	b := make(chan []byte, 4)
	_, err := bus.Queue(ctx, "jobs", "workers", a)
	require.NoError(t, err)
	_, err = bus.Queue(ctx, "jobs", "workers", b)
	require.NoError(t, err)

	for range 4 {
		require.NoError(t, bus.Publish(ctx, "jobs", []byte("job")))
	}
	require.Len(t, a, 2)
	require.Len(t, b, 2)
}

func TestUnit_InMem_EachGroupGetsACopy(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	defer bus.Close()

	a := make(chan []byte, 1)
	b := make(chan []byte, 1)
	_, err := bus.Queue(ctx, "jobs", "workers", a)
	require.NoError(t, err)
	_, err = bus.Queue(ctx, "jobs", "auditors", b)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "jobs", []byte("job")))
	require.Len(t, a, 1)
	require.Len(t, b, 1)
}

func TestUnit_InMem_Closed(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	require.NoError(t, bus.Close())

	require.ErrorIs(t, bus.Publish(ctx, "s", nil), libbus.ErrConnectionClosed)
	_, err := bus.Queue(ctx, "s", "g", make(chan []byte))
	require.ErrorIs(t, err, libbus.ErrConnectionClosed)
}

func TestUnit_InMem_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus := libbus.NewInMem()
	defer bus.Close()

	require.ErrorIs(t, bus.Publish(ctx, "s", nil), context.Canceled)
	_, err := bus.Queue(ctx, "s", "g", make(chan []byte))
	require.ErrorIs(t, err, context.Canceled)
}

func TestUnit_InMem_QueueEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := libbus.NewInMem()
	defer bus.Close()

	ch := make(chan []byte, 1)
	_, err := bus.Queue(ctx, "s", "g", ch)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		return bus.Publish(context.Background(), "s", []byte("x")) != nil
	}, time.Second, 10*time.Millisecond)
}

func TestUnit_InMem_PublishDoesNotWaitForBusyMember(t *testing.T) {
	ctx := context.Background()
	bus := libbus.NewInMem()
	defer bus.Close()

	ch := make(chan []byte)
	_, err := bus.Queue(ctx, "jobs", "workers", ch)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- bus.Publish(ctx, "jobs", []byte("late")) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a member that was not reading")
	}

	select {
	case got := <-ch:
		require.Equal(t, []byte("late"), got)
	case <-time.After(time.Second):
		t.Fatal("message was not delivered once the member read")
	}
}
