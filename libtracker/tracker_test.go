package libtracker_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/contenox/pkgbot/libtracker"
	"github.com/stretchr/testify/require"
)

func TestUnit_LogActivityTracker_WritesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tracker := libtracker.NewLogActivityTracker(logger)

	ctx := context.WithValue(context.Background(), libtracker.ContextKeyRequestID, "req-1")
	reportErr, reportChange, end := tracker.Start(ctx, "update", "recipe", "recipe_id", "com.github.foo")
	reportChange("7", map[string]any{"enabled": false})
	reportErr(errors.New("boom"))
	end()

	out := buf.String()
	require.Contains(t, out, `"request_id":"req-1"`)
	require.Contains(t, out, `"recipe_id":"com.github.foo"`)
	require.Contains(t, out, `"entity_id":"7"`)
	require.Contains(t, out, `"error":"boom"`)
	require.Contains(t, out, "activity finished")
}

type countingTracker struct {
	errs, changes, ends int
}

func (c *countingTracker) Start(context.Context, string, string, ...any) (func(error), func(string, any), func()) {
	return func(error) { c.errs++ }, func(string, any) { c.changes++ }, func() { c.ends++ }
}

func TestUnit_ChainedTracker_FansOut(t *testing.T) {
	a, b := &countingTracker{}, &countingTracker{}
	chained := libtracker.ChainedTracker{a, b}

	reportErr, reportChange, end := chained.Start(context.Background(), "op", "subject")
	reportErr(errors.New("x"))
	reportChange("1", nil)
	end()

	for _, c := range []*countingTracker{a, b} {
		require.Equal(t, 1, c.errs)
		require.Equal(t, 1, c.changes)
		require.Equal(t, 1, c.ends)
	}
}

func TestUnit_WithNewRequestID(t *testing.T) {
	ctx := libtracker.WithNewRequestID(context.Background())
	require.NotEmpty(t, libtracker.RequestID(ctx))

	restored := libtracker.WithRequestID(context.Background(), libtracker.RequestID(ctx))
	require.Equal(t, libtracker.RequestID(ctx), libtracker.RequestID(restored))
	require.Empty(t, libtracker.RequestID(context.Background()))
}
