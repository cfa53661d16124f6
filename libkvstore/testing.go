package libkvstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/valkey"
)

// SetupLocalValKeyInstance starts a throwaway Valkey container and returns
// its host:port address.
func SetupLocalValKeyInstance(ctx context.Context) (string, testcontainers.Container, func(), error) {
	cleanup := func() {}

	container, err := valkey.Run(ctx, "docker.io/valkey/valkey:7.2.5")
	if err != nil {
		return "", nil, cleanup, fmt.Errorf("failed to start valkey container: %w", err)
	}
	cleanup = func() {
		_ = testcontainers.TerminateContainer(container)
	}

	conn, err := container.ConnectionString(ctx)
	if err != nil {
		return "", container, cleanup, err
	}
	u, err := url.Parse(conn)
	if err != nil {
		return "", container, cleanup, err
	}
	return u.Host, container, cleanup, nil
}
