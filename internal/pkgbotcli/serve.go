package pkgbotcli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/contenox/pkgbot/libroutine"
	"github.com/contenox/pkgbot/serverapi"
	"github.com/contenox/pkgbot/trustrunner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and an embedded trust worker unless embedded_worker=false).",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nodeInstanceID := uuid.NewString()[0:8]
	rt, err := bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s initializing backing services failed: %w", nodeInstanceID, err)
	}
	defer rt.close()

	mux := http.NewServeMux()
	if err := serverapi.New(ctx, mux, nodeInstanceID, cfg, rt.db, rt.workflow); err != nil {
		return fmt.Errorf("%s initializing API handler failed: %w", nodeInstanceID, err)
	}

	if cfg.RunsEmbeddedWorker() {
		switch err := rt.startWorker(ctx); {
		case errors.Is(err, errNoRunnerCommand) && cfg.NATSURL == "":
			slog.Warn("recipe_runner_command not set, trust update requests will be rejected")
		case errors.Is(err, errNoRunnerCommand):
			slog.Warn("recipe_runner_command not set, trust updates need a separate pkgbot worker")
		case err != nil:
			return err
		default:
			defer libroutine.GetGroup().Stop(trustrunner.LoopKey)
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr + ":" + cfg.GetPort(),
		Handler:           serverapi.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "node", nodeInstanceID, "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", nodeInstanceID, err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down", "node", nodeInstanceID)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", nodeInstanceID, err)
	}
	return nil
}
