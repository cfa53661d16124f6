package trustworkflow

import (
	"context"
	"strconv"

	"github.com/contenox/pkgbot/libtracker"
	"github.com/contenox/pkgbot/recipestore"
)

type activityTrackerDecorator struct {
	service Service
	tracker libtracker.ActivityTracker
}

func (d *activityTrackerDecorator) ReportError(ctx context.Context, recipeID, rawError string) (*recipestore.ErrorMessage, error) {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "report_error", "recipe", "recipe_id", recipeID)
	defer endFn()

	msg, err := d.service.ReportError(ctx, recipeID, rawError)
	if err != nil {
		reportErrFn(err)
	}
	if msg != nil {
		reportChangeFn(strconv.FormatInt(msg.ID, 10), StateErrorReported)
	}
	return msg, err
}

func (d *activityTrackerDecorator) RequestTrustUpdate(ctx context.Context, errorID int64, userID, channel string) (bool, error) {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "request_trust_update", "error_message",
		"error_id", errorID,
		"user_id", userID,
	)
	defer endFn()

	queued, err := d.service.RequestTrustUpdate(ctx, errorID, userID, channel)
	if err != nil {
		reportErrFn(err)
	} else if queued {
		reportChangeFn(strconv.FormatInt(errorID, 10), StateTrustUpdateRequested)
	}
	return queued, err
}

func (d *activityTrackerDecorator) DenyTrustUpdate(ctx context.Context, errorID int64) error {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "deny_trust_update", "error_message", "error_id", errorID)
	defer endFn()

	err := d.service.DenyTrustUpdate(ctx, errorID)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(errorID, 10), StateTrustDenied)
	}
	return err
}

func (d *activityTrackerDecorator) TrustUpdateSucceeded(ctx context.Context, recipeID, msg string, errorID int64) error {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "trust_update_succeeded", "error_message",
		"recipe_id", recipeID,
		"error_id", errorID,
	)
	defer endFn()

	err := d.service.TrustUpdateSucceeded(ctx, recipeID, msg, errorID)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(errorID, 10), StateTrustUpdateSucceeded)
	}
	return err
}

func (d *activityTrackerDecorator) TrustUpdateFailed(ctx context.Context, recipeID, msg string, errorID int64) error {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "trust_update_failed", "error_message",
		"recipe_id", recipeID,
		"error_id", errorID,
	)
	defer endFn()

	err := d.service.TrustUpdateFailed(ctx, recipeID, msg, errorID)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(recipeID, StateTrustUpdateFailed)
	}
	return err
}

func (d *activityTrackerDecorator) TrustVerifyFailed(ctx context.Context, recipeID, text string) (*recipestore.ErrorMessage, error) {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "trust_verify_failed", "recipe", "recipe_id", recipeID)
	defer endFn()

	msg, err := d.service.TrustVerifyFailed(ctx, recipeID, text)
	if err != nil {
		reportErrFn(err)
	}
	if msg != nil {
		reportChangeFn(strconv.FormatInt(msg.ID, 10), StateTrustVerifyFailed)
	}
	return msg, err
}

func (d *activityTrackerDecorator) ReconcileTrustRun(ctx context.Context, job TrustJob, outcome RunOutcome) error {
	reportErrFn, _, endFn := d.tracker.Start(ctx, "reconcile_trust_run", "trust_job",
		"recipe_id", job.RecipeID,
		"error_id", job.ErrorID,
		"status", outcome.Status,
	)
	defer endFn()

	err := d.service.ReconcileTrustRun(ctx, job, outcome)
	if err != nil {
		reportErrFn(err)
	}
	return err
}

func WithActivityTracker(service Service, tracker libtracker.ActivityTracker) Service {
	return &activityTrackerDecorator{
		service: service,
		tracker: tracker,
	}
}
