package libtracker

import (
	"context"
	"log/slog"
	"time"
)

// ActivityTracker observes service operations. Start returns callbacks to
// report a failure, report a state change of the entity with the given id,
// and mark the end of the operation.
type ActivityTracker interface {
	Start(ctx context.Context, operation string, subject string, kvArgs ...any) (
		reportErr func(err error),
		reportChange func(id string, data any),
		end func(),
	)
}

type NoopTracker struct{}

func (NoopTracker) Start(context.Context, string, string, ...any) (func(error), func(string, any), func()) {
	return func(error) {}, func(string, any) {}, func() {}
}

// LogActivityTracker writes one structured record per reported event.
type LogActivityTracker struct {
	logger *slog.Logger
}

func NewLogActivityTracker(logger *slog.Logger) *LogActivityTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogActivityTracker{logger: logger}
}

func (t *LogActivityTracker) Start(ctx context.Context, operation string, subject string, kvArgs ...any) (func(error), func(string, any), func()) {
	start := time.Now()
	attrs := []any{
		"operation", operation,
		"subject", subject,
	}
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if traceID, ok := ctx.Value(ContextKeyTraceID).(string); ok && traceID != "" {
		attrs = append(attrs, "trace_id", traceID)
	}
	attrs = append(attrs, kvArgs...)
	logger := t.logger.With(attrs...)

	reportErr := func(err error) {
		logger.ErrorContext(ctx, "activity failed", "error", err)
	}
	reportChange := func(id string, data any) {
		logger.InfoContext(ctx, "activity changed state", "entity_id", id, "data", data)
	}
	end := func() {
		logger.DebugContext(ctx, "activity finished", "duration", time.Since(start))
	}
	return reportErr, reportChange, end
}

// ChainedTracker fans every callback out to each tracker in order.
type ChainedTracker []ActivityTracker

func (c ChainedTracker) Start(ctx context.Context, operation string, subject string, kvArgs ...any) (func(error), func(string, any), func()) {
	errFns := make([]func(error), 0, len(c))
	changeFns := make([]func(string, any), 0, len(c))
	endFns := make([]func(), 0, len(c))
	for _, t := range c {
		e, ch, en := t.Start(ctx, operation, subject, kvArgs...)
		errFns = append(errFns, e)
		changeFns = append(changeFns, ch)
		endFns = append(endFns, en)
	}
	return func(err error) {
			for _, f := range errFns {
				f(err)
			}
		}, func(id string, data any) {
			for _, f := range changeFns {
				f(id, data)
			}
		}, func() {
			for i := len(endFns) - 1; i >= 0; i-- {
				endFns[i]()
			}
		}
}

var (
	_ ActivityTracker = NoopTracker{}
	_ ActivityTracker = (*LogActivityTracker)(nil)
	_ ActivityTracker = ChainedTracker{}
)
