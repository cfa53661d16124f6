package pkgbotcli

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/contenox/pkgbot/libroutine"
	"github.com/contenox/pkgbot/trustrunner"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume trust jobs from NATS and run the packaging tool.",
		Long: `Run a standalone trust worker. Workers share the queue group
"pkgbot-workers", so each approved update runs exactly once no matter how many
workers are attached. Requires nats_url and recipe_runner_command.`,
		Args: cobra.NoArgs,
		RunE: runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.NATSURL == "" {
		return fmt.Errorf("nats_url is required for a standalone worker")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.startWorker(ctx); err != nil {
		return err
	}
	defer libroutine.GetGroup().Stop(trustrunner.LoopKey)

	<-ctx.Done()
	slog.Info("worker stopping")
	return nil
}
