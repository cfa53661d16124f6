package trustworkflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contenox/pkgbot/apiframework"
	libdb "github.com/contenox/pkgbot/libdbexec"
	"github.com/contenox/pkgbot/libtracker"
	"github.com/contenox/pkgbot/recipestore"
	"github.com/google/uuid"
)

type Service interface {
	// ReportError records a failed recipe run, disables the recipe and
	// posts the error.
	ReportError(ctx context.Context, recipeID, rawError string) (*recipestore.ErrorMessage, error)
	// RequestTrustUpdate queues a trust update for the recipe behind
	// errorID and re-enables it. It reports false when the recipe no longer
	// exists, in which case userID is told so in channel.
	RequestTrustUpdate(ctx context.Context, errorID int64, userID, channel string) (bool, error)
	DenyTrustUpdate(ctx context.Context, errorID int64) error
	TrustUpdateSucceeded(ctx context.Context, recipeID, msg string, errorID int64) error
	// TrustUpdateFailed uses the latest error message for recipeID when
	// errorID is zero.
	TrustUpdateFailed(ctx context.Context, recipeID, msg string, errorID int64) error
	TrustVerifyFailed(ctx context.Context, recipeID, msg string) (*recipestore.ErrorMessage, error)
	// ReconcileTrustRun finishes a job whose tool run exited without
	// calling back.
	ReconcileTrustRun(ctx context.Context, job TrustJob, outcome RunOutcome) error
}

type service struct {
	dbInstance libdb.DBManager
	notifier   Notifier
	dispatcher Dispatcher
	leases     LeaseStore
}

func New(db libdb.DBManager, notifier Notifier, dispatcher Dispatcher, leases LeaseStore) Service {
	return &service{
		dbInstance: db,
		notifier:   notifier,
		dispatcher: dispatcher,
		leases:     leases,
	}
}

func (s *service) store() recipestore.Store {
	return recipestore.New(s.dbInstance.WithoutTransaction())
}

// disable clears the enabled flag. A missing recipe is logged and ignored.
func (s *service) disable(ctx context.Context, store recipestore.Store, recipeID string) error {
	err := store.SetRecipeEnabled(ctx, recipeID, false)
	if errors.Is(err, libdb.ErrNotFound) {
		slog.WarnContext(ctx, "recipe not found, nothing to disable", "recipe_id", recipeID)
		return nil
	}
	return err
}

func (s *service) saveHandles(ctx context.Context, store recipestore.Store, msg *recipestore.ErrorMessage, h Handles) error {
	if h.Empty() || (h.TS == msg.SlackTS && h.Channel == msg.SlackChannel) {
		return nil
	}
	if err := store.UpdateErrorMessageHandles(ctx, msg.ID, h.TS, h.Channel); err != nil {
		return err
	}
	msg.SlackTS = h.TS
	msg.SlackChannel = h.Channel
	return nil
}

func (s *service) setState(ctx context.Context, store recipestore.Store, msg *recipestore.ErrorMessage, state State) error {
	if err := store.SetErrorMessageState(ctx, msg.ID, string(state)); err != nil {
		return err
	}
	msg.State = string(state)
	return nil
}

func (s *service) ReportError(ctx context.Context, recipeID, rawError string) (*recipestore.ErrorMessage, error) {
	if recipeID == "" {
		return nil, apiframework.MissingParameter("recipe_id")
	}
	payload := ParseError(recipeID, rawError)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode error payload: %w", err)
	}

	store := s.store()
	msg := &recipestore.ErrorMessage{
		RecipeID: recipeID,
		Payload:  encoded,
		State:    string(StateErrorReported),
	}
	if err := store.CreateErrorMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.disable(ctx, store, recipeID); err != nil {
		return msg, err
	}

	handles, err := s.notifier.RecipeError(ctx, msg, payload)
	if err != nil {
		return msg, fmt.Errorf("failed to post recipe error: %w", err)
	}
	return msg, s.saveHandles(ctx, store, msg, handles)
}

func (s *service) RequestTrustUpdate(ctx context.Context, errorID int64, userID, channel string) (bool, error) {
	store := s.store()
	msg, err := store.GetErrorMessage(ctx, errorID)
	if err != nil {
		return false, err
	}

	if _, err := store.GetRecipeByRecipeID(ctx, msg.RecipeID); err != nil {
		if !errors.Is(err, libdb.ErrNotFound) {
			return false, err
		}
		if err := s.notifier.MissingRecipe(ctx, userID, channel, msg.RecipeID, "update trust for"); err != nil {
			return false, fmt.Errorf("failed to notify about missing recipe: %w", err)
		}
		return false, nil
	}

	lease := &Lease{
		Token:      uuid.NewString(),
		RecipeID:   msg.RecipeID,
		ErrorID:    msg.ID,
		AcquiredAt: time.Now().UTC(),
	}
	acquired, err := s.leases.Acquire(ctx, lease)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, fmt.Errorf("%w: %s", ErrTrustActionInFlight, msg.RecipeID)
	}

	// Enabled before dispatch: a failure reconciled before Dispatch returns
	// must leave the recipe disabled.
	prev := State(msg.State)
	if err := store.SetRecipeEnabled(ctx, msg.RecipeID, true); err != nil {
		s.release(ctx, lease)
		return false, err
	}
	if err := s.setState(ctx, store, msg, StateTrustUpdateRequested); err != nil {
		s.rollbackRequest(ctx, store, msg, prev, lease)
		return false, err
	}

	job := TrustJob{
		RecipeID:    msg.RecipeID,
		ErrorID:     msg.ID,
		LeaseToken:  lease.Token,
		RequestedBy: userID,
		RequestID:   libtracker.RequestID(ctx),
		Args:        TrustArgs(msg.RecipeID, msg.ID),
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.rollbackRequest(ctx, store, msg, prev, lease)
		return false, err
	}
	return true, nil
}

// rollbackRequest undoes an optimistic enable whose job never reached a worker.
func (s *service) rollbackRequest(ctx context.Context, store recipestore.Store, msg *recipestore.ErrorMessage, prev State, lease *Lease) {
	if err := s.disable(ctx, store, msg.RecipeID); err != nil {
		slog.ErrorContext(ctx, "failed to disable recipe after dispatch error", "recipe_id", msg.RecipeID, "error", err)
	}
	if msg.State != string(prev) {
		if err := s.setState(ctx, store, msg, prev); err != nil {
			slog.ErrorContext(ctx, "failed to restore error state after dispatch error", "error_id", msg.ID, "error", err)
		}
	}
	s.release(ctx, lease)
}

func (s *service) DenyTrustUpdate(ctx context.Context, errorID int64) error {
	store := s.store()
	msg, err := store.GetErrorMessage(ctx, errorID)
	if err != nil {
		return err
	}
	if err := s.setState(ctx, store, msg, StateTrustDenied); err != nil {
		return err
	}
	handles, err := s.notifier.TrustDenied(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to post trust denial: %w", err)
	}
	return s.saveHandles(ctx, store, msg, handles)
}

// checkLease returns the lease held for msg's recipe, or ErrStaleCallback
// when that lease belongs to a different error message.
func (s *service) checkLease(ctx context.Context, msg *recipestore.ErrorMessage) (*Lease, error) {
	lease, err := s.leases.Get(ctx, msg.RecipeID)
	if err != nil {
		return nil, err
	}
	if lease != nil && lease.ErrorID != msg.ID {
		return nil, fmt.Errorf("%w: lease for error %d, callback for error %d", ErrStaleCallback, lease.ErrorID, msg.ID)
	}
	return lease, nil
}

func (s *service) release(ctx context.Context, lease *Lease) {
	if err := s.leases.Release(ctx, lease); err != nil {
		slog.ErrorContext(ctx, "failed to release trust lease", "recipe_id", lease.RecipeID, "error", err)
	}
}

func (s *service) TrustUpdateSucceeded(ctx context.Context, recipeID, text string, errorID int64) error {
	store := s.store()
	msg, err := store.GetErrorMessage(ctx, errorID)
	if err != nil {
		return err
	}
	if recipeID != "" && recipeID != msg.RecipeID {
		slog.WarnContext(ctx, "success callback recipe does not match error message",
			"recipe_id", recipeID, "error_recipe_id", msg.RecipeID, "error_id", errorID)
	}
	lease, err := s.checkLease(ctx, msg)
	if err != nil {
		return err
	}
	if err := s.setState(ctx, store, msg, StateTrustUpdateSucceeded); err != nil {
		return err
	}
	if lease != nil {
		s.release(ctx, lease)
	}

	handles, err := s.notifier.TrustUpdateSucceeded(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to post trust update success: %w", err)
	}
	return s.saveHandles(ctx, store, msg, handles)
}

func (s *service) TrustUpdateFailed(ctx context.Context, recipeID, text string, errorID int64) error {
	store := s.store()
	var (
		msg *recipestore.ErrorMessage
		err error
	)
	if errorID > 0 {
		msg, err = store.GetErrorMessage(ctx, errorID)
	} else {
		if recipeID == "" {
			return apiframework.MissingParameter("recipe_id")
		}
		msg, err = store.GetLatestErrorMessageForRecipe(ctx, recipeID)
	}
	if err != nil {
		return err
	}
	lease, err := s.checkLease(ctx, msg)
	if err != nil {
		return err
	}
	if err := s.disable(ctx, store, msg.RecipeID); err != nil {
		return err
	}
	if err := s.setState(ctx, store, msg, StateTrustUpdateFailed); err != nil {
		return err
	}
	if lease != nil {
		s.release(ctx, lease)
	}

	handles, err := s.notifier.TrustUpdateFailed(ctx, msg, text)
	if err != nil {
		return fmt.Errorf("failed to post trust update failure: %w", err)
	}
	return s.saveHandles(ctx, store, msg, handles)
}

func (s *service) TrustVerifyFailed(ctx context.Context, recipeID, text string) (*recipestore.ErrorMessage, error) {
	if recipeID == "" {
		return nil, apiframework.MissingParameter("recipe_id")
	}
	encoded, err := json.Marshal(map[string]string{recipeID: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode error payload: %w", err)
	}

	store := s.store()
	msg := &recipestore.ErrorMessage{
		RecipeID: recipeID,
		Payload:  encoded,
		State:    string(StateTrustVerifyFailed),
	}
	if err := store.CreateErrorMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.disable(ctx, store, recipeID); err != nil {
		return msg, err
	}

	handles, err := s.notifier.TrustDiff(ctx, msg, text)
	if err != nil {
		return msg, fmt.Errorf("failed to post trust diff: %w", err)
	}
	return msg, s.saveHandles(ctx, store, msg, handles)
}

func (s *service) ReconcileTrustRun(ctx context.Context, job TrustJob, outcome RunOutcome) error {
	lease, err := s.leases.Get(ctx, job.RecipeID)
	if err != nil {
		return err
	}
	if lease == nil || lease.Token != job.LeaseToken {
		return nil
	}

	slog.WarnContext(ctx, "trust run exited without calling back",
		"recipe_id", job.RecipeID, "error_id", job.ErrorID, "status", outcome.Status, "success", outcome.Success)
	if outcome.Err == nil && outcome.Success {
		return s.TrustUpdateSucceeded(ctx, job.RecipeID, outcome.Stdout, job.ErrorID)
	}

	text := outcome.Stderr
	if outcome.Err != nil {
		text = outcome.Err.Error()
	}
	if text == "" {
		text = fmt.Sprintf("trust update exited with status %d", outcome.Status)
	}
	return s.TrustUpdateFailed(ctx, job.RecipeID, text, job.ErrorID)
}
