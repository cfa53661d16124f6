package pkgbotcli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contenox/pkgbot/libbus"
	libdb "github.com/contenox/pkgbot/libdbexec"
	libkv "github.com/contenox/pkgbot/libkvstore"
	"github.com/contenox/pkgbot/libredact"
	"github.com/contenox/pkgbot/libroutine"
	"github.com/contenox/pkgbot/serverapi"
	"github.com/contenox/pkgbot/trustrunner"
	"github.com/contenox/pkgbot/trustworkflow"
)

var errNoRunnerCommand = errors.New("recipe_runner_command is not set")

// services holds the backing services shared by serve and worker.
type services struct {
	cfg      *serverapi.Config
	db       libdb.DBManager
	bus      libbus.Messenger
	kv       libkv.KVManager
	redactor *libredact.Redactor
	workflow trustworkflow.Service
	cleanups []func() error
}

func bootstrap(ctx context.Context, cfg *serverapi.Config) (*services, error) {
	rt := &services{cfg: cfg, redactor: serverapi.NewRedactor(cfg)}

	db, err := serverapi.InitDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.db = db
	rt.cleanups = append(rt.cleanups, db.Close)

	bus, err := serverapi.InitPubSub(ctx, cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.bus = bus
	rt.cleanups = append(rt.cleanups, bus.Close)

	kv, err := serverapi.InitKV(ctx, cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.kv = kv
	rt.cleanups = append(rt.cleanups, kv.Close)

	workflow, err := serverapi.NewWorkflow(cfg, db, bus, kv, serverapi.NewNotifier(cfg, rt.redactor))
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.workflow = workflow
	return rt, nil
}

// close releases the backing services in reverse order.
func (rt *services) close() {
	for i := len(rt.cleanups) - 1; i >= 0; i-- {
		if err := rt.cleanups[i](); err != nil {
			slog.Warn("cleanup failed", "error", err)
		}
	}
	rt.cleanups = nil
}

// startWorker runs a trust runner under the process-wide routine group.
func (rt *services) startWorker(ctx context.Context) error {
	if rt.cfg.RecipeRunnerCommand == "" {
		return errNoRunnerCommand
	}
	timeout, err := rt.cfg.GetRecipeRunnerTimeout()
	if err != nil {
		return fmt.Errorf("failed to configure trust runner: %w", err)
	}
	worker := trustrunner.New(rt.bus, rt.workflow, trustrunner.Config{
		Command:  rt.cfg.RecipeRunnerCommand,
		Timeout:  timeout,
		Redactor: rt.redactor,
	})
	worker.Start(ctx, libroutine.GetGroup())
	return nil
}
