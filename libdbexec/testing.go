package libdbexec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// SetupLocalInstance starts a throwaway PostgreSQL container and returns its
// DSN. cleanup is always non-nil.
func SetupLocalInstance(ctx context.Context, dbName, dbUser, dbPassword string) (string, testcontainers.Container, func(), error) {
	cleanup := func() {}

	container, err := postgres.Run(ctx, "docker.io/postgres:17-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, cleanup, fmt.Errorf("start postgres container: %w", err)
	}
	cleanup = func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			slog.Error("failed to terminate postgres container", "error", err)
		}
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", nil, cleanup, fmt.Errorf("postgres connection string: %w", err)
	}
	return connStr, container, cleanup, nil
}
