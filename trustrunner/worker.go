// Package trustrunner consumes trust jobs from the bus and runs the
// packaging tool for each of them.
package trustrunner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/contenox/pkgbot/libbus"
	"github.com/contenox/pkgbot/libredact"
	"github.com/contenox/pkgbot/libroutine"
	"github.com/contenox/pkgbot/librunner"
	"github.com/contenox/pkgbot/libtracker"
	"github.com/contenox/pkgbot/trustworkflow"
)

const (
	LoopKey    = "trust-runner"
	QueueGroup = "pkgbot-workers"
)

type Config struct {
	// Command is the packaging tool invocation; job arguments are appended
	// shell-quoted.
	Command  string
	Timeout  time.Duration
	Redactor *libredact.Redactor
}

type Worker struct {
	bus      libbus.Messenger
	workflow trustworkflow.Service
	cfg      Config
}

func New(bus libbus.Messenger, workflow trustworkflow.Service, cfg Config) *Worker {
	return &Worker{bus: bus, workflow: workflow, cfg: cfg}
}

// Start keeps Consume running under group, restarting it after failures.
func (w *Worker) Start(ctx context.Context, group *libroutine.Group) {
	group.StartLoop(ctx, &libroutine.LoopConfig{
		Key:          LoopKey,
		Threshold:    3,
		ResetTimeout: 30 * time.Second,
		Interval:     5 * time.Second,
		Operation:    w.Consume,
	})
}

// Consume handles jobs one at a time until ctx is done.
func (w *Worker) Consume(ctx context.Context) error {
	ch := make(chan []byte, 1)
	sub, err := w.bus.Queue(ctx, trustworkflow.SubjectTrustRun, QueueGroup, ch)
	if err != nil {
		return err
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, libbus.ErrConnectionClosed) {
			slog.Warn("failed to unsubscribe trust runner", "error", err)
		}
	}()

	slog.Info("trust runner consuming", "subject", trustworkflow.SubjectTrustRun, "group", QueueGroup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-ch:
			jobCtx := libtracker.WithNewRequestID(ctx)
			if err := w.Handle(jobCtx, data); err != nil {
				slog.ErrorContext(jobCtx, "trust job failed", "error", w.cfg.Redactor.Redact(err.Error()))
			}
		}
	}
}

// Handle runs one encoded TrustJob and reconciles its outcome.
func (w *Worker) Handle(ctx context.Context, data []byte) error {
	job, err := trustworkflow.DecodeJob(data)
	if err != nil {
		return err
	}
	if job.RequestID != "" {
		ctx = libtracker.WithRequestID(ctx, job.RequestID)
	}
	outcome := w.run(ctx, job)
	slog.InfoContext(ctx, "trust job finished",
		"recipe_id", job.RecipeID,
		"error_id", job.ErrorID,
		"requested_by", job.RequestedBy,
		"status", outcome.Status,
		"success", outcome.Success,
	)
	if outcome.Stderr != "" {
		slog.DebugContext(ctx, "trust job stderr", "recipe_id", job.RecipeID, "stderr", outcome.Stderr)
	}
	return w.workflow.ReconcileTrustRun(ctx, job, outcome)
}

func (w *Worker) run(ctx context.Context, job trustworkflow.TrustJob) trustworkflow.RunOutcome {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	command := w.cfg.Command + " " + librunner.Join(job.Args...)
	res, err := librunner.RunShell(ctx, command, "")
	if err != nil {
		return trustworkflow.RunOutcome{Status: -1, Err: errors.New(w.cfg.Redactor.Redact(err.Error()))}
	}
	return trustworkflow.RunOutcome{
		Success: res.Success,
		Status:  res.Status,
		Stdout:  w.cfg.Redactor.Redact(res.Stdout),
		Stderr:  w.cfg.Redactor.Redact(res.Stderr),
	}
}
