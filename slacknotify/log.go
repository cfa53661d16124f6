package slacknotify

import (
	"context"
	"log/slog"

	"github.com/contenox/pkgbot/libredact"
	"github.com/contenox/pkgbot/recipestore"
	"github.com/contenox/pkgbot/trustworkflow"
)

// LogNotifier writes notifications to slog instead of Slack. It is used when
// no bot token is configured and never returns handles.
type LogNotifier struct {
	logger   *slog.Logger
	redactor *libredact.Redactor
}

var _ trustworkflow.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger, redactor *libredact.Redactor) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, redactor: redactor}
}

func (n *LogNotifier) log(ctx context.Context, event string, msg *recipestore.ErrorMessage, args ...any) {
	args = append([]any{"event", event, "recipe_id", msg.RecipeID, "error_id", msg.ID}, args...)
	n.logger.InfoContext(ctx, "notification", args...)
}

func (n *LogNotifier) RecipeError(ctx context.Context, msg *recipestore.ErrorMessage, payload map[string]any) (trustworkflow.Handles, error) {
	n.log(ctx, "recipe_error", msg, "payload", n.redactor.Redact(string(msg.Payload)))
	return trustworkflow.Handles{}, nil
}

func (n *LogNotifier) TrustDiff(ctx context.Context, msg *recipestore.ErrorMessage, diff string) (trustworkflow.Handles, error) {
	n.log(ctx, "trust_diff", msg, "diff", n.redactor.Redact(diff))
	return trustworkflow.Handles{}, nil
}

func (n *LogNotifier) TrustUpdateSucceeded(ctx context.Context, msg *recipestore.ErrorMessage) (trustworkflow.Handles, error) {
	n.log(ctx, "trust_update_succeeded", msg)
	return trustworkflow.Handles{}, nil
}

func (n *LogNotifier) TrustUpdateFailed(ctx context.Context, msg *recipestore.ErrorMessage, errText string) (trustworkflow.Handles, error) {
	n.log(ctx, "trust_update_failed", msg, "error", n.redactor.Redact(errText))
	return trustworkflow.Handles{}, nil
}

func (n *LogNotifier) TrustDenied(ctx context.Context, msg *recipestore.ErrorMessage) (trustworkflow.Handles, error) {
	n.log(ctx, "trust_denied", msg)
	return trustworkflow.Handles{}, nil
}

func (n *LogNotifier) MissingRecipe(ctx context.Context, userID, channel, recipeID, action string) error {
	n.logger.WarnContext(ctx, "notification",
		"event", "missing_recipe",
		"recipe_id", recipeID,
		"action", action,
		"user_id", userID,
		"channel", channel,
	)
	return nil
}
