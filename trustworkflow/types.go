// Package trustworkflow drives the recipe error and trust approval flow:
// packaging tool callbacks and Slack decisions move an ErrorMessage between
// states, toggle the recipe's enabled flag and post notifications.
package trustworkflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/recipestore"
)

// State is persisted on the ErrorMessage that a transition touched.
type State string

const (
	StateEnabled              State = "Enabled"
	StateErrorReported        State = "ErrorReported"
	StateTrustUpdateRequested State = "TrustUpdateRequested"
	StateTrustUpdateSucceeded State = "TrustUpdateSucceeded"
	StateTrustUpdateFailed    State = "TrustUpdateFailed"
	StateTrustDenied          State = "TrustDenied"
	StateTrustVerifyFailed    State = "TrustVerifyFailed"
)

var (
	ErrTrustActionInFlight = fmt.Errorf("trust action already in flight for recipe: %w", apiframework.ErrConflict)
	ErrStaleCallback       = fmt.Errorf("callback does not match the active trust action: %w", apiframework.ErrConflict)
)

// Handles locate a posted chat message so it can be edited later.
type Handles struct {
	TS      string
	Channel string
}

func (h Handles) Empty() bool {
	return h.TS == "" && h.Channel == ""
}

// Notifier posts workflow notifications. Posting methods return the handles
// of the message they created or edited.
type Notifier interface {
	RecipeError(ctx context.Context, msg *recipestore.ErrorMessage, payload map[string]any) (Handles, error)
	TrustDiff(ctx context.Context, msg *recipestore.ErrorMessage, diff string) (Handles, error)
	TrustUpdateSucceeded(ctx context.Context, msg *recipestore.ErrorMessage) (Handles, error)
	TrustUpdateFailed(ctx context.Context, msg *recipestore.ErrorMessage, errText string) (Handles, error)
	TrustDenied(ctx context.Context, msg *recipestore.ErrorMessage) (Handles, error)
	MissingRecipe(ctx context.Context, userID, channel, recipeID, action string) error
}

// TrustJob asks a worker to run the packaging tool's trust action.
type TrustJob struct {
	RecipeID    string   `json:"recipe_id"`
	ErrorID     int64    `json:"error_id"`
	LeaseToken  string   `json:"lease_token"`
	RequestedBy string   `json:"requested_by,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
	Args        []string `json:"args"`
}

// TrustArgs returns the packaging tool arguments for a trust update.
func TrustArgs(recipeID string, errorID int64) []string {
	return []string{
		"--recipe-identifier", recipeID,
		"--action", "trust",
		"--error_id", strconv.FormatInt(errorID, 10),
	}
}

// Dispatcher hands a job to a worker without waiting for it to run.
type Dispatcher interface {
	Dispatch(ctx context.Context, job TrustJob) error
}

// RunOutcome is what a worker observed when running a TrustJob.
type RunOutcome struct {
	Success bool
	Status  int
	Stdout  string
	Stderr  string
	Err     error
}
