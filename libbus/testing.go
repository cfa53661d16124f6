package libbus

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
)

// SetupNatsInstance starts a throwaway NATS container and returns its URL.
func SetupNatsInstance(ctx context.Context) (string, testcontainers.Container, func(), error) {
	cleanup := func() {}
	container, err := tcnats.Run(ctx, "nats:2.10-alpine")
	if err != nil {
		return "", nil, cleanup, fmt.Errorf("failed to start nats container: %w", err)
	}
	cleanup = func() {
		_ = testcontainers.TerminateContainer(container)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		return "", container, cleanup, fmt.Errorf("failed to get nats url: %w", err)
	}
	return url, container, cleanup, nil
}

// NewTestPubSub returns a Messenger connected to a fresh NATS container.
func NewTestPubSub() (Messenger, func(), error) {
	ctx := context.Background()
	url, _, cleanup, err := SetupNatsInstance(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	ps, err := NewPubSub(ctx, &Config{NATSURL: url})
	if err != nil {
		return nil, cleanup, err
	}
	return ps, func() {
		_ = ps.Close()
		cleanup()
	}, nil
}
